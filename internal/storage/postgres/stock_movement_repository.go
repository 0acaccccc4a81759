package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type stockMovementRepository struct {
	conn conn
}

// NewStockMovementRepository создаёт PostgreSQL-реализацию журнала движений остатков.
func NewStockMovementRepository(store *Store) domain.StockMovementRepository {
	return &stockMovementRepository{conn: conn{db: store.DB()}}
}

func (r *stockMovementRepository) Append(ctx context.Context, movements []domain.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	return r.conn.atomic(ctx, func(q querier) error {
		for _, m := range movements {
			occurred := m.Occurred
			if occurred.IsZero() {
				occurred = now
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO stock_movements (
					product_id, order_id, delta, quantity_before, quantity_after, occurred_at
				) VALUES ($1,$2,$3,$4,$5,$6)
			`, m.ProductID, m.OrderID, m.Delta, m.QuantityBefore, m.QuantityAfter, occurred); err != nil {
				return fmt.Errorf("insert stock movement: %w", err)
			}
		}
		return nil
	})
}

// ListByProduct возвращает движения товара, начиная с последнего.
func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT product_id, order_id, delta, quantity_before, quantity_after, occurred_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY id DESC
	`
	args := []any{productID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.conn.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	result := make([]domain.StockMovement, 0)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ProductID, &m.OrderID, &m.Delta, &m.QuantityBefore, &m.QuantityAfter, &m.Occurred); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}
	return result, nil
}

var _ domain.StockMovementRepository = (*stockMovementRepository)(nil)
