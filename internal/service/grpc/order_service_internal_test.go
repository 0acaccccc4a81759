package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestGrpcCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{name: "validation", err: domain.ErrItemsRequired, want: codes.InvalidArgument},
		{name: "customer", err: domain.ErrCustomerNotFound, want: codes.NotFound},
		{name: "order", err: domain.ErrOrderNotFound, want: codes.NotFound},
		{name: "amount overflow", err: domain.ErrOrderAmountOverflow, want: codes.InvalidArgument},
		{name: "product set", err: domain.ErrProductSetMismatch, want: codes.FailedPrecondition},
		{name: "stock", err: &domain.InsufficientStockError{ProductName: "x"}, want: codes.FailedPrecondition},
		{name: "email taken", err: domain.ErrCustomerEmailTaken, want: codes.AlreadyExists},
		{name: "conflict", err: fmt.Errorf("update: %w", domain.ErrStockConflict), want: codes.Aborted},
		{name: "in progress", err: domain.ErrIdempotencyInProgress, want: codes.Aborted},
		{name: "replayed", err: &domain.CodedError{Code: domain.CodeInsufficientStock, Message: "x"}, want: codes.FailedPrecondition},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), want: codes.Canceled},
		{name: "deadline", err: context.DeadlineExceeded, want: codes.DeadlineExceeded},
		{name: "internal", err: errors.New("db down"), want: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grpcCodeFor(tt.err, domain.ErrorCode(tt.err)); got != tt.want {
				t.Fatalf("grpcCodeFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadIdempotencyKey(t *testing.T) {
	if got := readIdempotencyKey(context.Background()); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(idempotencyKeyHeader, "  key-1 "))
	if got := readIdempotencyKey(ctx); got != "key-1" {
		t.Fatalf("expected key-1, got %q", got)
	}
}
