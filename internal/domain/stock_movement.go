package domain

import "time"

// StockMovement фиксирует изменение остатка товара в рамках заказа.
type StockMovement struct {
	ProductID      string
	OrderID        string
	Delta          int32
	QuantityBefore int32
	QuantityAfter  int32
	Occurred       time.Time
}
