package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/pkg/api"
)

func newCoordinator(cfg config.ConsensusConfig) *Coordinator {
	return NewCoordinator(cfg, NewHub())
}

func TestConsensusThresholdReached(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 2,
		WaitTimeout:   5 * time.Second,
	})

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(context.Background(), "TXN-1", 25000000)
	}()

	waitForPending(t, c, 1)
	assert.Equal(t, api.VoteAccepted, c.SubmitVote("TXN-1", "approver-a"))
	assert.Equal(t, api.VoteApproved, c.SubmitVote("TXN-1", "approver-b"))

	select {
	case approved := <-done:
		assert.True(t, approved)
	case <-time.After(time.Second):
		t.Fatal("wait did not resolve")
	}
}

func TestConsensusTimeout(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 2,
		WaitTimeout:   50 * time.Millisecond,
	})

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(context.Background(), "TXN-2", 100)
	}()

	waitForPending(t, c, 1)
	assert.Equal(t, api.VoteAccepted, c.SubmitVote("TXN-2", "approver-a"))

	select {
	case approved := <-done:
		assert.False(t, approved)
	case <-time.After(time.Second):
		t.Fatal("wait did not time out")
	}
}

func TestConsensusTicketCleanup(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 1,
		WaitTimeout:   time.Second,
	})

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(context.Background(), "TXN-3", 100)
	}()
	waitForPending(t, c, 1)
	assert.Equal(t, api.VoteApproved, c.SubmitVote("TXN-3", "approver-a"))
	assert.True(t, <-done)

	waitForPending(t, c, 0)
	assert.Equal(t, api.VoteNotWaiting, c.SubmitVote("TXN-3", "approver-b"))
}

func TestConsensusVoteWithoutTicket(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 2,
		WaitTimeout:   time.Second,
	})
	assert.Equal(t, api.VoteNotWaiting, c.SubmitVote("NOPE", "approver-a"))
	assert.Equal(t, 0, c.Pending())
}

// One approver voting twice satisfies the threshold unless the distinct
// policy is enabled; the permissive default mirrors the original counting
// behavior, questionable as it is
func TestConsensusSameApproverTwiceByDefault(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 2,
		WaitTimeout:   time.Second,
	})

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(context.Background(), "TXN-4", 100)
	}()
	waitForPending(t, c, 1)

	assert.Equal(t, api.VoteAccepted, c.SubmitVote("TXN-4", "approver-a"))
	assert.Equal(t, api.VoteApproved, c.SubmitVote("TXN-4", "approver-a"))
	assert.True(t, <-done)
}

func TestConsensusDistinctApproverPolicy(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes:     2,
		WaitTimeout:       200 * time.Millisecond,
		DistinctApprovers: true,
	})

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(context.Background(), "TXN-5", 100)
	}()
	waitForPending(t, c, 1)

	assert.Equal(t, api.VoteAccepted, c.SubmitVote("TXN-5", "approver-a"))
	assert.Equal(t, api.VoteDuplicate, c.SubmitVote("TXN-5", "approver-a"))
	assert.Equal(t, api.VoteApproved, c.SubmitVote("TXN-5", "approver-b"))
	assert.True(t, <-done)
}

func TestConsensusConcurrentVotesResolveOnce(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 2,
		WaitTimeout:   2 * time.Second,
	})

	done := make(chan bool, 1)
	go func() {
		done <- c.Wait(context.Background(), "TXN-6", 100)
	}()
	waitForPending(t, c, 1)

	var wg sync.WaitGroup
	approvals := make([]api.VoteStatus, 8)
	for i := range approvals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			approvals[i] = c.SubmitVote("TXN-6", "approver")
		}()
	}
	wg.Wait()
	assert.True(t, <-done)

	resolved := 0
	for _, st := range approvals {
		if st == api.VoteApproved {
			resolved++
		}
	}
	assert.Equal(t, 1, resolved)
}

func TestConsensusDuplicateWaitRejected(t *testing.T) {
	c := newCoordinator(config.ConsensusConfig{
		RequiredVotes: 1,
		WaitTimeout:   time.Second,
	})

	release := make(chan bool, 1)
	go func() {
		release <- c.Wait(context.Background(), "TXN-7", 100)
	}()
	waitForPending(t, c, 1)

	// a second wait on the same id must not create a second ticket
	assert.False(t, c.Wait(context.Background(), "TXN-7", 100))
	assert.Equal(t, api.VoteApproved, c.SubmitVote("TXN-7", "approver-a"))
	assert.True(t, <-release)
}

func waitForPending(t *testing.T, c *Coordinator, want int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return c.Pending() == want
	}, time.Second, time.Millisecond)
}
