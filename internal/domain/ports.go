package domain

import (
	"context"
	"time"
)

// CustomerRepository описывает хранилище клиентов.
type CustomerRepository interface {
	// FindByID возвращает клиента или ErrCustomerNotFound.
	FindByID(ctx context.Context, id string) (Customer, error)
	// FindByEmail возвращает клиента по email или ErrCustomerNotFound.
	FindByEmail(ctx context.Context, email string) (Customer, error)
	// Create сохраняет клиента и назначает ему идентификатор, если он пуст.
	Create(ctx context.Context, customer Customer) (Customer, error)
}

// ProductRepository описывает хранилище товаров и их остатков.
type ProductRepository interface {
	// FindAllByID возвращает только найденные товары; отсутствие id сигнализирует об отсутствии товара.
	// Внутри UnitOfWork найденные строки блокируются до конца транзакции.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)
	// UpdateQuantity применяет пакет новых остатков целиком или не применяет ничего.
	// Возвращает ErrStockConflict, если остаток товара отличается от Expected.
	UpdateQuantity(ctx context.Context, updates []ProductQuantity) error
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// FindByName возвращает товар по названию или ErrProductNotFound.
	FindByName(ctx context.Context, name string) (Product, error)
	// Create сохраняет товар и назначает ему идентификатор, если он пуст.
	Create(ctx context.Context, product Product) (Product, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ и назначает ему идентификатор.
	Create(ctx context.Context, order NewOrder) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
}

// StockMovementRepository хранит журнал изменений остатков.
type StockMovementRepository interface {
	Append(ctx context.Context, movements []StockMovement) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]StockMovement, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
	// Delete освобождает ключ, чтобы запрос можно было повторить.
	Delete(ctx context.Context, key string) error
}

// Repositories: набор репозиториев, привязанных к одной единице работы.
type Repositories struct {
	Customers CustomerRepository
	Products  ProductRepository
	Orders    OrderRepository
	Movements StockMovementRepository
	Outbox    OutboxRepository
}

// UnitOfWork выполняет fn атомарно: все изменения фиксируются вместе или не фиксируются вовсе.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
