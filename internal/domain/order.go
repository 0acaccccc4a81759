package domain

import (
	"math"
	"math/bits"
	"time"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID        string
	ProductID string
	// PriceMinor: цена товара на момент заказа, позже не пересчитывается.
	PriceMinor int64
	// Quantity: заказанное количество единиц.
	Quantity  int32
	CreatedAt time.Time
}

// Order агрегирует заказ клиента и его позиции. После создания не изменяется.
type Order struct {
	ID          string
	CustomerID  string
	Customer    Customer
	AmountMinor int64
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder: данные для создания заказа; идентификатор назначает репозиторий.
type NewOrder struct {
	Customer Customer
	Items    []OrderItem
}

// AmountMinor считает сумму позиций: qty * price.
// Возвращает ErrOrderAmountOverflow, если сумма не помещается в int64.
func (n NewOrder) AmountMinor() (int64, error) {
	var total int64
	for _, item := range n.Items {
		if item.Quantity < 0 || item.PriceMinor < 0 {
			return 0, ErrOrderAmountOverflow
		}
		hi, lo := bits.Mul64(uint64(item.Quantity), uint64(item.PriceMinor))
		if hi != 0 || lo > math.MaxInt64 || int64(lo) > math.MaxInt64-total {
			return 0, ErrOrderAmountOverflow
		}
		total += int64(lo)
	}
	return total, nil
}
