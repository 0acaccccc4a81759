package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type stockMovementRepositoryInMemory struct {
	store *Store
	tx    *state
}

// NewStockMovementRepository возвращает журнал движений остатков, работающий вне единицы работы.
func NewStockMovementRepository(store *Store) domain.StockMovementRepository {
	return &stockMovementRepositoryInMemory{store: store}
}

func (r *stockMovementRepositoryInMemory) Append(ctx context.Context, movements []domain.StockMovement) error {
	return r.store.write(r.tx, func(st *state) error {
		now := time.Now().UTC()
		for _, m := range movements {
			if m.Occurred.IsZero() {
				m.Occurred = now
			}
			put(st, st.movements, m.ProductID, append(st.movements[m.ProductID], m))
		}
		return nil
	})
}

// ListByProduct возвращает движения товара, начиная с последнего.
func (r *stockMovementRepositoryInMemory) ListByProduct(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	var result []domain.StockMovement
	err := r.store.read(r.tx, func(st *state) error {
		history := st.movements[productID]
		result = make([]domain.StockMovement, 0, len(history))
		for i := len(history) - 1; i >= 0; i-- {
			result = append(result, history[i])
			if limit > 0 && len(result) >= limit {
				break
			}
		}
		return nil
	})
	return result, err
}

var _ domain.StockMovementRepository = (*stockMovementRepositoryInMemory)(nil)
