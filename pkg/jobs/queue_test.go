package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsRegisteredHandler(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 1)
	q.Handle("thumb", func(ctx context.Context, j Job) error {
		done <- j
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "thumb", Payload: "img"}))
	select {
	case j := <-done:
		assert.Equal(t, "img", j.Payload)
		assert.False(t, j.Enqueued.IsZero())
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetries(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	var calls int32
	finished := make(chan struct{})
	q.Handle("flaky", func(ctx context.Context, j Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("boom")
		}
		close(finished)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "flaky"}))
	select {
	case <-finished:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(time.Second):
		t.Fatal("job did not succeed after retries")
	}
}

func TestQueueRejects(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Handle("known", func(context.Context, Job) error { return nil })
	assert.ErrorIs(t, q.Enqueue(Job{Type: "known"}), ErrNotStarted)

	q.Start(context.Background())
	defer q.Stop()
	assert.Error(t, q.Enqueue(Job{Type: "unknown"}))
}
