package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorProcessesSubmittedJobs(t *testing.T) {
	e := NewExecutor(2, 10)
	e.Start()
	defer e.Stop()

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		e.Submit(Job{Name: "incr", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
	}

	require.Eventually(t, func() bool { return ran.Load() == 5 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 5, e.Health().Processed)
}

func TestExecutorRetriesOnceThenDrops(t *testing.T) {
	e := NewExecutor(1, 10)
	e.Start()
	defer e.Stop()

	var attempts atomic.Int64
	done := make(chan struct{})
	e.Submit(Job{Name: "always-fails", Run: func(ctx context.Context) error {
		attempts.Add(1)
		if attempts.Load() == 2 {
			close(done)
		}
		return errors.New("boom")
	}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
	require.Eventually(t, func() bool { return e.Health().Dropped == 1 }, time.Second, 5*time.Millisecond)
}

func TestExecutorFallsBackSynchronouslyWhenQueueFull(t *testing.T) {
	e := NewExecutor(1, 1)
	// Do not Start: with no worker draining, the single slot fills
	// immediately and the next Submit must run synchronously.
	e.jobs <- Job{Name: "occupying", Run: func(ctx context.Context) error { return nil }}

	var ranSync bool
	e.Submit(Job{Name: "overflow", Run: func(ctx context.Context) error {
		ranSync = true
		return nil
	}})

	assert.True(t, ranSync)
	assert.EqualValues(t, 1, e.Health().Fallbacks)
}
