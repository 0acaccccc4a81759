package idempotency

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
)

func seedKeys(t *testing.T, repo domain.IdempotencyRepository, prefix string, n int, ttl time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.CreateProcessing(context.Background(), fmt.Sprintf("%s-%d", prefix, i), "hash", ttl)
		require.NoError(t, err)
	}
}

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	repo := memory.NewIdempotencyRepository()
	now := time.Now().UTC()
	seedKeys(t, repo, "expired", 5, now.Add(-time.Minute))
	seedKeys(t, repo, "active", 2, now.Add(time.Hour))

	worker := NewCleanupWorker(repo,
		WithBatchSize(2),
		WithMetrics(metrics.NewIdempotencyMetrics(prometheus.NewRegistry())),
	)

	deleted, err := worker.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 5, deleted)

	_, err = repo.Get(context.Background(), "active-0")
	require.NoError(t, err)
	_, err = repo.Get(context.Background(), "expired-0")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
}

func TestCleanupWorker_DeleteExpired_CanceledContext(t *testing.T) {
	t.Parallel()

	repo := memory.NewIdempotencyRepository()
	seedKeys(t, repo, "expired", 1, time.Now().Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleted, err := NewCleanupWorker(repo).DeleteExpired(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, deleted)
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := memory.NewIdempotencyRepository()
	seedKeys(t, repo, "expired", 3, time.Now().Add(-time.Minute))

	worker := NewCleanupWorker(repo, WithInterval(5*time.Millisecond), WithBatchSize(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		_, err := repo.Get(context.Background(), "expired-2")
		return err != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop after context cancellation")
	}
}

func TestCleanupWorker_RunDisabledWithoutRepo(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		NewCleanupWorker(nil).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without repo must return immediately")
	}
}
