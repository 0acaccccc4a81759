package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// orderRepositoryInMemory: простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	store *Store
	tx    *state
}

// NewOrderRepository возвращает репозиторий заказов, работающий вне единицы работы.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Create назначает заказу и позициям идентификаторы и сохраняет его.
// Клиент должен существовать, как и при внешнем ключе в Postgres.
func (r *orderRepositoryInMemory) Create(ctx context.Context, newOrder domain.NewOrder) (domain.Order, error) {
	var order domain.Order
	err := r.store.write(r.tx, func(st *state) error {
		customer, ok := st.customers[newOrder.Customer.ID]
		if !ok {
			return domain.ErrCustomerNotFound
		}

		amount, err := newOrder.AmountMinor()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		order = domain.Order{
			ID:          uuid.NewString(),
			CustomerID:  customer.ID,
			Customer:    customer,
			AmountMinor: amount,
			Items:       make([]domain.OrderItem, 0, len(newOrder.Items)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, item := range newOrder.Items {
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.CreatedAt = now
			order.Items = append(order.Items, item)
		}
		if _, exists := st.orders[order.ID]; exists {
			return domain.ErrOrderAlreadyExists
		}
		put(st, st.orders, order.ID, order)
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return cloneOrder(order), nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(ctx context.Context, id string) (domain.Order, error) {
	var order domain.Order
	err := r.store.read(r.tx, func(st *state) error {
		found, ok := st.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		order = cloneOrder(found)
		return nil
	})
	return order, err
}

// ListByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (r *orderRepositoryInMemory) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	var result []domain.Order
	err := r.store.read(r.tx, func(st *state) error {
		result = make([]domain.Order, 0)
		for _, order := range st.orders {
			if order.CustomerID != customerID {
				continue
			}
			result = append(result, cloneOrder(order))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	return dst
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
