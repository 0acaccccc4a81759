package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
)

func counting(body []byte, err error) (func(context.Context) ([]byte, error), *int) {
	calls := 0
	return func(context.Context) ([]byte, error) {
		calls++
		return body, err
	}, &calls
}

func TestGuard_ReplaysSuccess(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository())
	fn, calls := counting([]byte(`{"id":"order-1"}`), nil)

	body, replayed, err := guard.Do(ctx, "key-1", "hash", fn)
	require.NoError(t, err)
	require.False(t, replayed)
	require.JSONEq(t, `{"id":"order-1"}`, string(body))

	body, replayed, err = guard.Do(ctx, "key-1", "hash", fn)
	require.NoError(t, err)
	require.True(t, replayed)
	require.JSONEq(t, `{"id":"order-1"}`, string(body))
	require.Equal(t, 1, *calls)
}

func TestGuard_WithoutKeyAlwaysExecutes(t *testing.T) {
	guard := NewGuard(memory.NewIdempotencyRepository())
	fn, calls := counting([]byte(`{}`), nil)

	for i := 0; i < 2; i++ {
		_, replayed, err := guard.Do(context.Background(), "  ", "hash", fn)
		require.NoError(t, err)
		require.False(t, replayed)
	}
	require.Equal(t, 2, *calls)
}

func TestGuard_ReplaysBusinessFailure(t *testing.T) {
	ctx := context.Background()
	guard := NewGuard(memory.NewIdempotencyRepository())
	stockErr := &domain.InsufficientStockError{ProductName: "Widget"}
	fn, calls := counting(nil, stockErr)

	_, _, err := guard.Do(ctx, "key-2", "hash", fn)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, replayed, err := guard.Do(ctx, "key-2", "hash", fn)
	require.True(t, replayed)
	require.Equal(t, domain.CodeInsufficientStock, domain.ErrorCode(err))
	require.Equal(t, "insufficient quantity for product Widget", err.Error())
	require.Equal(t, 1, *calls)
}

func TestGuard_ReleasesKeyOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo)

	_, _, err := guard.Do(ctx, "key-3", "hash", func(context.Context) ([]byte, error) {
		return nil, errors.New("db down")
	})
	require.Error(t, err)

	_, err = repo.Get(ctx, "key-3")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)

	body, replayed, err := guard.Do(ctx, "key-3", "hash", func(context.Context) ([]byte, error) {
		return []byte(`"ok"`), nil
	})
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, `"ok"`, string(body))
}

func TestGuard_HashMismatchAndInProgress(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewIdempotencyRepository()
	guard := NewGuard(repo)

	_, err := repo.CreateProcessing(ctx, "key-4", "hash-a", guard.now().Add(guard.ttl))
	require.NoError(t, err)

	fn, calls := counting(nil, nil)
	_, _, err = guard.Do(ctx, "key-4", "hash-a", fn)
	require.ErrorIs(t, err, domain.ErrIdempotencyInProgress)

	_, _, err = guard.Do(ctx, "key-4", "hash-b", fn)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
	require.Zero(t, *calls)
}

func TestHashRequest(t *testing.T) {
	type req struct {
		CustomerID string `json:"customer_id"`
		Qty        int    `json:"qty"`
	}

	a, err := HashRequest("CreateOrder", req{CustomerID: "c1", Qty: 1})
	require.NoError(t, err)
	b, err := HashRequest("CreateOrder", req{CustomerID: "c1", Qty: 1})
	require.NoError(t, err)
	c, err := HashRequest("CreateOrder", req{CustomerID: "c1", Qty: 2})
	require.NoError(t, err)
	d, err := HashRequest("Other", req{CustomerID: "c1", Qty: 1})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, a, d)
	require.Len(t, a, 64)
}
