package idempotency_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpact/ruleflow/internal/idempotency"
)

func TestGateAcquireAndRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	gate := idempotency.NewGate(client, "ruleflow")
	ctx := context.Background()

	ok, err := gate.Acquire(ctx, "JOB-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// duplicate submission is rejected while the window holds
	ok, err = gate.Acquire(ctx, "JOB-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// a different job is unaffected
	ok, err = gate.Acquire(ctx, "JOB-2")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, gate.Release(ctx, "JOB-1"))
	ok, err = gate.Acquire(ctx, "JOB-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
