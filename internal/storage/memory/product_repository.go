package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// productRepositoryInMemory реализует ProductRepository поверх Store.
type productRepositoryInMemory struct {
	store *Store
	tx    *state
}

// NewProductRepository возвращает репозиторий товаров, работающий вне единицы работы.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

// FindAllByID возвращает найденные товары без повторов в порядке запроса.
// Блокировки строк не нужны: единица работы и так выполняется эксклюзивно.
func (r *productRepositoryInMemory) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	var result []domain.Product
	err := r.store.read(r.tx, func(st *state) error {
		seen := make(map[string]struct{}, len(ids))
		result = make([]domain.Product, 0, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if p, ok := st.products[id]; ok {
				result = append(result, p)
			}
		}
		return nil
	})
	return result, err
}

// UpdateQuantity проверяет все ожидания до первой записи, поэтому пакет применяется целиком.
func (r *productRepositoryInMemory) UpdateQuantity(ctx context.Context, updates []domain.ProductQuantity) error {
	return r.store.write(r.tx, func(st *state) error {
		for _, u := range updates {
			p, ok := st.products[u.ID]
			if !ok {
				return fmt.Errorf("product %s: %w", u.ID, domain.ErrProductNotFound)
			}
			if u.Quantity < 0 {
				return fmt.Errorf("product %s: %w", u.ID, domain.ErrProductQtyInvalid)
			}
			if p.Quantity != u.Expected {
				return fmt.Errorf("product %s: %w", u.ID, domain.ErrStockConflict)
			}
		}

		now := time.Now().UTC()
		for _, u := range updates {
			p := st.products[u.ID]
			p.Quantity = u.Quantity
			p.UpdatedAt = now
			put(st, st.products, u.ID, p)
		}
		return nil
	})
}

func (r *productRepositoryInMemory) Get(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := r.store.read(r.tx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrProductNotFound
		}
		product = p
		return nil
	})
	return product, err
}

func (r *productRepositoryInMemory) FindByName(ctx context.Context, name string) (domain.Product, error) {
	var product domain.Product
	err := r.store.read(r.tx, func(st *state) error {
		for _, p := range st.products {
			if p.Name == name {
				product = p
				return nil
			}
		}
		return domain.ErrProductNotFound
	})
	return product, err
}

// Create сохраняет товар; название уникально.
func (r *productRepositoryInMemory) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	err := r.store.write(r.tx, func(st *state) error {
		for _, p := range st.products {
			if p.Name == product.Name {
				return domain.ErrProductNameTaken
			}
		}
		if product.ID == "" {
			product.ID = uuid.NewString()
		}
		if _, exists := st.products[product.ID]; exists {
			return domain.ErrProductNameTaken
		}
		now := time.Now().UTC()
		product.CreatedAt = now
		product.UpdatedAt = now
		put(st, st.products, product.ID, product)
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
