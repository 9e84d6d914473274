package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

type (
	// Coordinator is the rendezvous behind the CONSENSUS strategy: one
	// goroutine blocks awaiting a threshold of external approval votes for
	// a transaction id, and approver-facing adapters resolve the wait.
	//
	// Tickets live only in memory; a process restart loses in-flight
	// consensus state and the affected jobs time out
	Coordinator struct {
		cfg config.ConsensusConfig
		hub *Hub
		mu  sync.Mutex

		tickets map[api.TxID]*ticket
	}

	ticket struct {
		required  int
		votes     int
		approvers map[string]struct{}
		amount    float64
		resolved  bool
		done      chan struct{}
	}
)

// NewCoordinator creates a consensus coordinator
func NewCoordinator(cfg config.ConsensusConfig, hub *Hub) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		hub:     hub,
		tickets: map[api.TxID]*ticket{},
	}
}

// Wait blocks the calling goroutine until the configured vote threshold is
// reached for txID, the wait window elapses, or the context is cancelled.
// It returns true only on approval. The ticket is removed on every exit
// path, so a later vote for the same id is rejected as not-waiting
func (c *Coordinator) Wait(
	ctx context.Context, txID api.TxID, amount float64,
) bool {
	t, ok := c.register(txID, amount)
	if !ok {
		slog.Warn("Transaction is already awaiting consensus",
			log.TxID(txID))
		return false
	}
	defer c.remove(txID)

	slog.Info("Awaiting consensus",
		log.TxID(txID),
		slog.Float64("amount", amount),
		slog.Int("required_votes", t.required))

	timer := time.NewTimer(c.cfg.WaitTimeout)
	defer timer.Stop()

	approved := false
	select {
	case <-t.done:
		approved = true
	case <-timer.C:
	case <-ctx.Done():
	}

	c.hub.Publish(&api.Event{
		Type:   api.EventTypeConsensusResolved,
		TxID:   txID,
		Status: resolution(approved),
	})
	return approved
}

// SubmitVote counts one approval vote for a waiting transaction. Votes for
// a transaction that is not waiting are rejected explicitly, never counted
// toward a future wait. Reaching the threshold resolves the waiting
// goroutine exactly once
func (c *Coordinator) SubmitVote(
	txID api.TxID, approverID string,
) api.VoteStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tickets[txID]
	if !ok || t.resolved {
		return api.VoteNotWaiting
	}

	if c.cfg.DistinctApprovers {
		if _, voted := t.approvers[approverID]; voted {
			return api.VoteDuplicate
		}
		t.approvers[approverID] = struct{}{}
	}

	t.votes++
	c.hub.Publish(&api.Event{
		Type:   api.EventTypeVoteReceived,
		TxID:   txID,
		Status: approverID,
	})

	if t.votes >= t.required {
		t.resolved = true
		close(t.done)
		return api.VoteApproved
	}
	return api.VoteAccepted
}

// Pending returns the number of transactions currently awaiting consensus
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickets)
}

func (c *Coordinator) register(
	txID api.TxID, amount float64,
) (*ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tickets[txID]; ok {
		return nil, false
	}
	t := &ticket{
		required:  c.cfg.RequiredVotes,
		approvers: map[string]struct{}{},
		amount:    amount,
		done:      make(chan struct{}),
	}
	c.tickets[txID] = t
	return t, true
}

func (c *Coordinator) remove(txID api.TxID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tickets, txID)
}

func resolution(approved bool) string {
	if approved {
		return "approved"
	}
	return "timed-out"
}
