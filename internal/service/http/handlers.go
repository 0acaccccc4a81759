package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/order"
)

type handlers struct {
	orders    Orders
	responder *Responder
}

type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createProductRequest struct {
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

type orderLineRequest struct {
	ID       string `json:"id"`
	Quantity int32  `json:"quantity"`
}

type createOrderRequest struct {
	CustomerID string             `json:"customer_id"`
	Products   []orderLineRequest `json:"products"`
}

type customerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type productResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceMinor int64     `json:"price_minor"`
	Quantity   int32     `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	PriceMinor int64  `json:"price_minor"`
	Quantity   int32  `json:"quantity"`
}

type orderResponse struct {
	ID          string              `json:"id"`
	CustomerID  string              `json:"customer_id"`
	Customer    *customerResponse   `json:"customer,omitempty"`
	AmountMinor int64               `json:"amount_minor"`
	Items       []orderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
}

type movementResponse struct {
	ProductID      string    `json:"product_id"`
	OrderID        string    `json:"order_id"`
	Delta          int32     `json:"delta"`
	QuantityBefore int32     `json:"quantity_before"`
	QuantityAfter  int32     `json:"quantity_after"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (h *handlers) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, "invalid JSON body: "+err.Error())
		return
	}

	customer, err := h.orders.CreateCustomer(c.Request.Context(), order.CreateCustomerCommand{Name: req.Name, Email: req.Email})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCustomerResponse(customer))
}

func (h *handlers) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, "invalid JSON body: "+err.Error())
		return
	}

	product, err := h.orders.CreateProduct(c.Request.Context(), order.CreateProductCommand{
		Name:       req.Name,
		PriceMinor: req.PriceMinor,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProductResponse(product))
}

func (h *handlers) getProduct(c *gin.Context) {
	product, err := h.orders.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(product))
}

func (h *handlers) listMovements(c *gin.Context) {
	limit, ok := h.limitParam(c)
	if !ok {
		return
	}

	movements, err := h.orders.ListMovements(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}

	resp := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		resp = append(resp, movementResponse{
			ProductID:      m.ProductID,
			OrderID:        m.OrderID,
			Delta:          m.Delta,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			OccurredAt:     m.Occurred,
		})
	}
	c.JSON(http.StatusOK, gin.H{"movements": resp})
}

// createOrder обслуживает POST /v1/orders. Повтор с тем же Idempotency-Key возвращает исходный заказ.
func (h *handlers) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, "invalid JSON body: "+err.Error())
		return
	}

	cmd := order.CreateOrderCommand{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Items:      make([]order.LineItem, 0, len(req.Products)),
	}
	for _, line := range req.Products {
		cmd.Items = append(cmd.Items, order.LineItem{ProductID: strings.TrimSpace(line.ID), Quantity: line.Quantity})
	}

	created, replayed, err := h.orders.CreateOrderIdempotent(c.Request.Context(), c.GetHeader(IdempotencyKeyHeader), cmd)
	if replayed {
		c.Header(ReplayedHeader, "true")
	}
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}

	c.Header("Location", "/v1/orders/"+created.ID)
	c.JSON(http.StatusCreated, toOrderResponse(created))
}

func (h *handlers) getOrder(c *gin.Context) {
	found, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(found))
}

func (h *handlers) listOrders(c *gin.Context) {
	limit, ok := h.limitParam(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

func (h *handlers) limitParam(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		h.responder.BadRequest(c, "limit must be a non-negative integer")
		return 0, false
	}
	return limit, true
}

func toCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		PriceMinor: p.PriceMinor,
		Quantity:   p.Quantity,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ID:         item.ID,
			ProductID:  item.ProductID,
			PriceMinor: item.PriceMinor,
			Quantity:   item.Quantity,
		})
	}

	resp := orderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		AmountMinor: o.AmountMinor,
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
	if o.Customer.ID != "" {
		customer := toCustomerResponse(o.Customer)
		resp.Customer = &customer
	}
	return resp
}
