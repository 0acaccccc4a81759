package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// EventTypeOrderCreated публикуется после фиксации заказа и списания остатков.
	EventTypeOrderCreated EventType = "order.created"
)

// AggregateTypeOrder: тип агрегата для событий заказа в outbox.
const AggregateTypeOrder = "order"

// Topics для Kafka
const (
	TopicOrderEvents     = "shop.order.events"
	TopicDeadLetterQueue = "shop.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
)

// OrderCreatedItem: позиция заказа в событии.
type OrderCreatedItem struct {
	ProductID  string `json:"product_id"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

// OrderCreatedEvent: полезная нагрузка события order.created.
type OrderCreatedEvent struct {
	EventType   EventType          `json:"event_type"`
	OrderID     string             `json:"order_id"`
	CustomerID  string             `json:"customer_id"`
	AmountMinor int64              `json:"amount_minor"`
	Items       []OrderCreatedItem `json:"items"`
	CreatedAt   time.Time          `json:"created_at"`
}

// NewOrderCreatedEvent строит событие по созданному заказу.
func NewOrderCreatedEvent(order domain.Order) OrderCreatedEvent {
	items := make([]OrderCreatedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderCreatedItem{
			ProductID:  item.ProductID,
			PriceMinor: item.PriceMinor,
			Quantity:   item.Quantity,
		})
	}
	return OrderCreatedEvent{
		EventType:   EventTypeOrderCreated,
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		AmountMinor: order.AmountMinor,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	}
}
