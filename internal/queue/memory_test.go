package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"photocurate/internal/models"
)

type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) handle(_ context.Context, photoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, photoID)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestMemory_DeliversJobsEnqueuedBeforeRun(t *testing.T) {
	q, err := NewMemory(2, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "p1"))
	require.NoError(t, q.Enqueue(ctx, "p2"))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	rec := &recorder{}
	done := make(chan error, 1)
	go func() { done <- q.Run(runCtx, rec.handle) }()

	require.NoError(t, q.Enqueue(ctx, "p3"))

	assert.Eventually(t, func() bool { return len(rec.seen()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"p1", "p2", "p3"}, rec.seen())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemory_HandlerContextOutlivesRun(t *testing.T) {
	q, err := NewMemory(1, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var jobErr error
	done := make(chan error, 1)
	go func() {
		done <- q.Run(runCtx, func(ctx context.Context, _ string) error {
			close(started)
			<-release
			jobErr = ctx.Err()
			return nil
		})
	}()

	require.NoError(t, q.Enqueue(context.Background(), "p1"))
	<-started
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.NoError(t, jobErr, "in-flight job must not see cancellation")
}

func TestMemory_CancelWhileBusyKeepsQueuedJob(t *testing.T) {
	q, err := NewMemory(1, zap.NewNop())
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	runCtx, cancel := context.WithCancel(ctx)
	started := make(chan struct{})
	release := make(chan struct{})
	first := &recorder{}
	done := make(chan error, 1)
	go func() {
		done <- q.Run(runCtx, func(ctx context.Context, photoID string) error {
			_ = first.handle(ctx, photoID)
			if photoID == "p1" {
				close(started)
				<-release
			}
			return nil
		})
	}()

	require.NoError(t, q.Enqueue(ctx, "p1"))
	<-started
	require.NoError(t, q.Enqueue(ctx, "p2"))
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, []string{"p1"}, first.seen())

	secondCtx, stop := context.WithCancel(ctx)
	defer stop()
	second := &recorder{}
	go func() { _ = q.Run(secondCtx, second.handle) }()

	assert.Eventually(t, func() bool { return len(second.seen()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"p2"}, second.seen())
}

func TestOpen(t *testing.T) {
	logger := zap.NewNop()

	q, err := Open(models.QueueConfig{Driver: "memory", Workers: 1}, logger)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, q)
	require.NoError(t, q.Close())

	q, err = Open(models.QueueConfig{Driver: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &Kafka{}, q)
	require.NoError(t, q.Close())

	_, err = Open(models.QueueConfig{Driver: "sqs"}, logger)
	assert.Error(t, err)
}
