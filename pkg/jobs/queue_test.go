package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueProcessesTasks(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	q := NewQueue("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{ID: "a"}))
	require.NoError(t, q.Enqueue(Task{ID: "b"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["a"] == 1 && seen["b"] == 1
	})
}

func TestQueueRetriesFailedTask(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	q := NewQueue("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Task{ID: "a"}))
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	})
}

func TestQueueStopWaitsForPendingRetry(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, task Task) error {
		return errors.New("always fails")
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 50 * time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Task{ID: "a"}))

	// let the first attempt fail and schedule its backoff sleeper
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		q.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a retry was pending")
	}

	assert.Error(t, q.Enqueue(Task{ID: "b"}))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, task Task) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Task{ID: "a"}))
}
