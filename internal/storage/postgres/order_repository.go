package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

type orderRepository struct {
	conn conn
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{conn: conn{db: store.DB()}}
}

const orderSelect = `
	SELECT o.id, o.customer_id, o.amount_minor, o.created_at, o.updated_at,
	       c.name, c.email, c.created_at, c.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
`

func (r *orderRepository) Create(ctx context.Context, newOrder domain.NewOrder) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	amount, err := newOrder.AmountMinor()
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:          uuid.NewString(),
		CustomerID:  newOrder.Customer.ID,
		Customer:    newOrder.Customer,
		AmountMinor: amount,
		Items:       make([]domain.OrderItem, 0, len(newOrder.Items)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = r.conn.atomic(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, amount_minor, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5)
		`, order.ID, order.CustomerID, order.AmountMinor, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			switch {
			case isUniqueViolation(err):
				return domain.ErrOrderAlreadyExists
			case isForeignKeyViolation(err):
				return domain.ErrCustomerNotFound
			case isCheckViolation(err):
				// единственная проверка orders: amount_minor >= 0
				return domain.ErrOrderAmountOverflow
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i, item := range newOrder.Items {
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.CreatedAt = now
			if _, err := q.ExecContext(ctx, `
				INSERT INTO order_items (
					id, order_id, product_id, quantity, price_minor, position, created_at
				) VALUES ($1,$2,$3,$4,$5,$6,$7)
			`,
				item.ID, order.ID, item.ProductID, item.Quantity, item.PriceMinor, i, item.CreatedAt,
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrProductNotFound)
				}
				return fmt.Errorf("insert order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.conn.q().QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := orderSelect + `
		WHERE o.customer_id = $1
		ORDER BY o.created_at DESC, o.id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.conn.q().QueryContext(ctx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.conn.q().QueryContext(ctx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	// Позиции читаются после закрытия курсора: внутри транзакции нельзя держать два открытых запроса.
	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.conn.q().QueryContext(ctx, `
		SELECT id, product_id, quantity, price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.PriceMinor, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.AmountMinor, &o.CreatedAt, &o.UpdatedAt,
		&o.Customer.Name, &o.Customer.Email, &o.Customer.CreatedAt, &o.Customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Customer.ID = o.CustomerID
	return o, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
