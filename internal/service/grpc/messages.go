package grpcsvc

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// Customer: клиент в ответах API.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Product: товар каталога с текущим остатком.
type Product struct {
	ID         string
	Name       string
	PriceMinor int64
	Quantity   int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem: позиция заказа с ценой на момент заказа.
type OrderItem struct {
	ID         string
	ProductID  string
	PriceMinor int64
	Quantity   int32
}

// Order: заказ вместе с клиентом и позициями.
type Order struct {
	ID          string
	CustomerID  string
	Customer    *Customer
	AmountMinor int64
	Items       []OrderItem
	CreatedAt   time.Time
}

// OrderLine: запрошенный товар и количество.
type OrderLine struct {
	ID       string
	Quantity int32
}

type CreateOrderRequest struct {
	CustomerID string
	Products   []OrderLine
}

type CreateOrderResponse struct {
	Order    *Order
	Replayed bool
}

type GetOrderRequest struct {
	OrderID string
}

type GetOrderResponse struct {
	Order *Order
}

type ListOrdersRequest struct {
	CustomerID string
	Limit      int32
}

type ListOrdersResponse struct {
	Orders []*Order
}

type CreateCustomerRequest struct {
	Name  string
	Email string
}

type CreateCustomerResponse struct {
	Customer *Customer
}

type CreateProductRequest struct {
	Name       string
	PriceMinor int64
	Quantity   int32
}

type CreateProductResponse struct {
	Product *Product
}

type GetProductRequest struct {
	ProductID string
}

type GetProductResponse struct {
	Product *Product
}

func toCustomer(c domain.Customer) *Customer {
	return &Customer{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

func toProduct(p domain.Product) *Product {
	return &Product{
		ID:         p.ID,
		Name:       p.Name,
		PriceMinor: p.PriceMinor,
		Quantity:   p.Quantity,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toOrder(order domain.Order) *Order {
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{
			ID:         item.ID,
			ProductID:  item.ProductID,
			PriceMinor: item.PriceMinor,
			Quantity:   item.Quantity,
		})
	}

	result := &Order{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		AmountMinor: order.AmountMinor,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	}
	if order.Customer.ID != "" {
		result.Customer = toCustomer(order.Customer)
	}
	return result
}
