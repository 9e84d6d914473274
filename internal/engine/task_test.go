package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunnerExecutesEnqueued(t *testing.T) {
	tr := NewTaskRunner()
	tr.Start()
	defer tr.Flush()

	var ran atomic.Int32
	for range 5 {
		tr.Enqueue(func() {
			ran.Add(1)
		})
	}

	assert.Eventually(t, func() bool {
		return tr.Completed() == 5
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(5), ran.Load())
}

func TestTaskRunnerRecoversFromPanic(t *testing.T) {
	tr := NewTaskRunner()
	tr.Start()
	defer tr.Flush()

	tr.Enqueue(func() {
		panic("detached task blew up")
	})
	tr.Enqueue(func() {})

	assert.Eventually(t, func() bool {
		return tr.Completed() == 2
	}, time.Second, time.Millisecond)
}

func TestTaskRunnerFlushDrains(t *testing.T) {
	tr := NewTaskRunner()

	var ran atomic.Int32
	tr.Enqueue(func() {
		ran.Add(1)
	})
	tr.Start()
	tr.Flush()

	assert.Equal(t, int32(1), ran.Load())
	tr.Enqueue(nil) // no-op after stop
}
