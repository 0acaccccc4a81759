package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/service/idempotency"
)

const createOrderOperation = "CreateOrder"

// LineItem: запрошенный товар и количество.
type LineItem struct {
	ProductID string `json:"id"`
	Quantity  int32  `json:"quantity"`
}

// CreateOrderCommand: запрос на создание заказа.
type CreateOrderCommand struct {
	CustomerID string     `json:"customer_id"`
	Items      []LineItem `json:"products"`
}

// Validate проверяет форму запроса до обращения к хранилищу.
// Возвращается первая найденная ошибка.
func (c CreateOrderCommand) Validate() error {
	if strings.TrimSpace(c.CustomerID) == "" {
		return domain.ErrCustomerRequired
	}
	if len(c.Items) == 0 {
		return domain.ErrItemsRequired
	}

	seen := make(map[string]struct{}, len(c.Items))
	for i, item := range c.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("products[%d]: %w", i, domain.ErrProductIDRequired)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("products[%d]: %w", i, domain.ErrItemQtyInvalid)
		}
		if _, dup := seen[item.ProductID]; dup {
			return fmt.Errorf("products[%d] %s: %w", i, item.ProductID, domain.ErrDuplicateProduct)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// CreateOrder проверяет клиента, товары и остатки, списывает остатки и сохраняет заказ.
// Все изменения (остатки, заказ, журнал движений, событие outbox) фиксируются одной единицей работы.
// Повтор без ключа идемпотентности создаёт новый заказ.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder", trace.WithAttributes(
		attribute.String("customer.id", cmd.CustomerID),
		attribute.Int("order.lines", len(cmd.Items)),
	))
	defer span.End()

	start := time.Now()
	s.metrics.InFlightStarted()
	defer func() {
		s.metrics.InFlightFinished()
		s.metrics.RecordCreateDuration(time.Since(start))
	}()

	logger := s.logger.WithField("customer_id", cmd.CustomerID)

	if err := cmd.Validate(); err != nil {
		s.recordFailure(span, err)
		return domain.Order{}, err
	}

	var created domain.Order
	err := s.withStockRetry(ctx, createOrderOperation, func(ctx context.Context) error {
		order, err := s.createOnce(ctx, cmd)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		s.recordFailure(span, err)
		if domain.ErrorCode(err) == domain.CodeInternal {
			logger.WithError(err).Error("failed to create order")
		} else {
			logger.WithError(err).Info("order rejected")
		}
		return domain.Order{}, err
	}

	var units int64
	for _, item := range created.Items {
		units += int64(item.Quantity)
	}
	s.metrics.RecordOrderCreated(len(created.Items), units)
	s.metrics.RecordOutboxEnqueued()
	span.SetAttributes(
		attribute.String("order.id", created.ID),
		attribute.Int64("order.amount_minor", created.AmountMinor),
	)

	logger.WithFields(log.Fields{
		"order_id":     created.ID,
		"items":        len(created.Items),
		"amount_minor": created.AmountMinor,
	}).Info("order created")

	return created, nil
}

// CreateOrderIdempotent выполняет CreateOrder не более одного раза на ключ.
// Повтор с тем же ключом и телом возвращает сохранённый результат (replayed=true).
// Пустой ключ эквивалентен обычному CreateOrder.
func (s *Service) CreateOrderIdempotent(ctx context.Context, key string, cmd CreateOrderCommand) (order domain.Order, replayed bool, err error) {
	if strings.TrimSpace(key) == "" || s.guard == nil {
		order, err = s.CreateOrder(ctx, cmd)
		return order, false, err
	}

	hash, err := idempotency.HashRequest(createOrderOperation, cmd)
	if err != nil {
		return domain.Order{}, false, err
	}

	body, replayed, err := s.guard.Do(ctx, key, hash, func(ctx context.Context) ([]byte, error) {
		created, err := s.CreateOrder(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return json.Marshal(created)
	})
	if err != nil {
		return domain.Order{}, replayed, err
	}

	if err := json.Unmarshal(body, &order); err != nil {
		return domain.Order{}, replayed, fmt.Errorf("decode stored order: %w", err)
	}
	return order, replayed, nil
}

// createOnce выполняет одну попытку создания заказа внутри единицы работы.
func (s *Service) createOnce(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	var created domain.Order

	err := s.store.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		customer, err := repos.Customers.FindByID(ctx, cmd.CustomerID)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(cmd.Items))
		for _, item := range cmd.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := repos.Products.FindAllByID(ctx, ids)
		if err != nil {
			return fmt.Errorf("find products: %w", err)
		}
		if len(products) != len(ids) {
			return domain.ErrProductSetMismatch
		}

		requested := make(map[string]int32, len(cmd.Items))
		for _, item := range cmd.Items {
			requested[item.ProductID] = item.Quantity
		}

		// Проверки завершаются до первой записи. Остатки сверяются в порядке
		// найденных товаров, поэтому при нескольких нехватках сообщается первый из них.
		byID := make(map[string]domain.Product, len(products))
		for _, product := range products {
			qty, ok := requested[product.ID]
			if !ok {
				return domain.ErrProductSetMismatch
			}
			if qty > product.Quantity {
				return &domain.InsufficientStockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   qty,
					Available:   product.Quantity,
				}
			}
			byID[product.ID] = product
		}

		updates := make([]domain.ProductQuantity, 0, len(cmd.Items))
		lines := make([]domain.OrderItem, 0, len(cmd.Items))
		for _, item := range cmd.Items {
			product := byID[item.ProductID]
			updates = append(updates, domain.ProductQuantity{
				ID:       product.ID,
				Quantity: product.Quantity - item.Quantity,
				Expected: product.Quantity,
			})
			lines = append(lines, domain.OrderItem{
				ProductID:  product.ID,
				PriceMinor: product.PriceMinor,
				Quantity:   item.Quantity,
			})
		}

		newOrder := domain.NewOrder{Customer: customer, Items: lines}
		if _, err := newOrder.AmountMinor(); err != nil {
			return err
		}

		if err := repos.Products.UpdateQuantity(ctx, updates); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		order, err := repos.Orders.Create(ctx, newOrder)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		movements := make([]domain.StockMovement, 0, len(updates))
		for i, update := range updates {
			movements = append(movements, domain.StockMovement{
				ProductID:      update.ID,
				OrderID:        order.ID,
				Delta:          -cmd.Items[i].Quantity,
				QuantityBefore: update.Expected,
				QuantityAfter:  update.Quantity,
				Occurred:       order.CreatedAt,
			})
		}
		if err := repos.Movements.Append(ctx, movements); err != nil {
			return fmt.Errorf("append stock movements: %w", err)
		}

		payload, err := json.Marshal(kafka.NewOrderCreatedEvent(order))
		if err != nil {
			return fmt.Errorf("marshal order created event: %w", err)
		}
		if _, err := repos.Outbox.Enqueue(ctx, domain.OutboxMessage{
			AggregateType: kafka.AggregateTypeOrder,
			AggregateID:   order.ID,
			EventType:     string(kafka.EventTypeOrderCreated),
			Payload:       payload,
		}); err != nil {
			return fmt.Errorf("enqueue order created event: %w", err)
		}

		created = order
		return nil
	})
	return created, err
}

func (s *Service) recordFailure(span trace.Span, err error) {
	code := domain.ErrorCode(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		code = "canceled"
	}
	s.metrics.RecordOrderFailed(code)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
}
