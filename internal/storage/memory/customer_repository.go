package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// customerRepositoryInMemory реализует CustomerRepository поверх Store.
type customerRepositoryInMemory struct {
	store *Store
	tx    *state
}

// NewCustomerRepository возвращает репозиторий клиентов, работающий вне единицы работы.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepositoryInMemory{store: store}
}

func (r *customerRepositoryInMemory) FindByID(ctx context.Context, id string) (domain.Customer, error) {
	var customer domain.Customer
	err := r.store.read(r.tx, func(st *state) error {
		found, ok := st.customers[id]
		if !ok {
			return domain.ErrCustomerNotFound
		}
		customer = found
		return nil
	})
	return customer, err
}

func (r *customerRepositoryInMemory) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	var customer domain.Customer
	err := r.store.read(r.tx, func(st *state) error {
		for _, c := range st.customers {
			if strings.EqualFold(c.Email, email) {
				customer = c
				return nil
			}
		}
		return domain.ErrCustomerNotFound
	})
	return customer, err
}

// Create сохраняет клиента; email уникален без учёта регистра.
func (r *customerRepositoryInMemory) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	err := r.store.write(r.tx, func(st *state) error {
		for _, c := range st.customers {
			if strings.EqualFold(c.Email, customer.Email) {
				return domain.ErrCustomerEmailTaken
			}
		}
		if customer.ID == "" {
			customer.ID = uuid.NewString()
		}
		if _, exists := st.customers[customer.ID]; exists {
			return domain.ErrCustomerEmailTaken
		}
		now := time.Now().UTC()
		customer.CreatedAt = now
		customer.UpdatedAt = now
		put(st, st.customers, customer.ID, customer)
		return nil
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
