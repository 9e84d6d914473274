package engine

import (
	"sync"
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/corpact/ruleflow/pkg/api"
)

// Hub fans engine lifecycle events out to subscribers: websocket clients,
// test waiters, anything holding a consumer
type Hub struct {
	topic     topic.Topic[*api.Event]
	prod      topic.Producer[*api.Event]
	closeOnce sync.Once
}

// NewHub creates an engine event hub
func NewHub() *Hub {
	t := caravan.NewTopic[*api.Event]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish sends an event to all current consumers, stamping the timestamp
// when the caller left it zero
func (h *Hub) Publish(ev *api.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	message.Send(h.prod, ev)
}

// NewConsumer registers a new subscriber. The caller owns the consumer and
// must Close it
func (h *Hub) NewConsumer() topic.Consumer[*api.Event] {
	return h.topic.NewConsumer()
}

// Close shuts down the hub's producer
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.prod.Close()
	})
}
