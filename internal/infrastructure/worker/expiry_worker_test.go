package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
)

// sweepOnlyRepo implements just the method the worker touches
type sweepOnlyRepo struct {
	port.CheckRepository
	sweeps  atomic.Int64
	failing bool
}

func (r *sweepOnlyRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.sweeps.Add(1)
	if r.failing {
		return 0, errors.New("db closed")
	}
	return 2, nil
}

func TestExpiryWorker_SweepsOnStartAndTick(t *testing.T) {
	repo := &sweepOnlyRepo{}
	w := NewExpiryWorker(repo, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	assert.Eventually(t, func() bool {
		return repo.sweeps.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, w.Stop())
}

func TestExpiryWorker_SurvivesSweepFailure(t *testing.T) {
	repo := &sweepOnlyRepo{failing: true}
	w := NewExpiryWorker(repo, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	assert.Eventually(t, func() bool {
		return repo.sweeps.Load() >= 2
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, w.Stop())
}

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	w := NewExpiryWorker(&sweepOnlyRepo{}, time.Hour, zap.NewNop())
	m.Register(w)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.StopAll())
}
