package order

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// CreateCustomerCommand: данные нового клиента.
type CreateCustomerCommand struct {
	Name  string
	Email string
}

// CreateProductCommand: данные нового товара.
type CreateProductCommand struct {
	Name       string
	PriceMinor int64
	Quantity   int32
}

// CreateCustomer регистрирует клиента. Email уникален без учёта регистра.
func (s *Service) CreateCustomer(ctx context.Context, cmd CreateCustomerCommand) (domain.Customer, error) {
	customer := domain.Customer{
		Name:  strings.TrimSpace(cmd.Name),
		Email: strings.TrimSpace(cmd.Email),
	}
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	// Create в хранилище повторно проверяет уникальность.
	repos := s.store.Repositories()
	if _, err := repos.Customers.FindByEmail(ctx, customer.Email); err == nil {
		return domain.Customer{}, domain.ErrCustomerEmailTaken
	} else if !errors.Is(err, domain.ErrCustomerNotFound) {
		return domain.Customer{}, err
	}

	created, err := repos.Customers.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", created.ID).Info("customer created")
	return created, nil
}

// CreateProduct добавляет товар в каталог с начальным остатком.
func (s *Service) CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error) {
	product := domain.Product{
		Name:       strings.TrimSpace(cmd.Name),
		PriceMinor: cmd.PriceMinor,
		Quantity:   cmd.Quantity,
	}
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	repos := s.store.Repositories()
	if _, err := repos.Products.FindByName(ctx, product.Name); err == nil {
		return domain.Product{}, domain.ErrProductNameTaken
	} else if !errors.Is(err, domain.ErrProductNotFound) {
		return domain.Product{}, err
	}

	created, err := repos.Products.Create(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"quantity":   created.Quantity,
	}).Info("product created")
	return created, nil
}

// GetProduct возвращает товар с текущим остатком.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, domain.ErrProductIDRequired
	}
	return s.store.Repositories().Products.Get(ctx, id)
}

// GetOrder возвращает заказ вместе с клиентом и позициями.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return s.store.Repositories().Orders.Get(ctx, id)
}

// ListOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, domain.ErrCustomerRequired
	}
	repos := s.store.Repositories()
	if _, err := repos.Customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	return repos.Orders.ListByCustomer(ctx, customerID, clampLimit(limit))
}

// ListMovements возвращает журнал изменений остатка товара, новые первыми.
func (s *Service) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.ErrProductIDRequired
	}
	repos := s.store.Repositories()
	if _, err := repos.Products.Get(ctx, productID); err != nil {
		return nil, err
	}
	return repos.Movements.ListByProduct(ctx, productID, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
