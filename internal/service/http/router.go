package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/service/order"
)

// IdempotencyKeyHeader: заголовок ключа идемпотентности для POST /v1/orders.
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

// Orders: операции сервиса заказов, доступные по HTTP.
type Orders interface {
	CreateOrderIdempotent(ctx context.Context, key string, cmd order.CreateOrderCommand) (domain.Order, bool, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	CreateCustomer(ctx context.Context, cmd order.CreateCustomerCommand) (domain.Customer, error)
	CreateProduct(ctx context.Context, cmd order.CreateProductCommand) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)
}

// RouterConfig собирает зависимости HTTP-роутера.
type RouterConfig struct {
	Orders         Orders
	Health         *health.Handler
	MetricsHandler http.Handler
	ServiceName    string
	TracerProvider trace.TracerProvider
	Logger         *log.Entry
}

// NewRouter собирает gin.Engine с API, health-пробами и /metrics.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "shop-order-service"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.TracerProvider != nil {
		router.Use(otelgin.Middleware(serviceName, otelgin.WithTracerProvider(cfg.TracerProvider)))
	} else {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(requestLogger(logger))

	h := &handlers{orders: cfg.Orders, responder: &Responder{}}

	v1 := router.Group("/v1")
	v1.POST("/customers", h.createCustomer)
	v1.GET("/customers/:id/orders", h.listOrders)
	v1.POST("/products", h.createProduct)
	v1.GET("/products/:id", h.getProduct)
	v1.GET("/products/:id/movements", h.listMovements)
	v1.POST("/orders", h.createOrder)
	v1.GET("/orders/:id", h.getOrder)

	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}
	router.GET("/livez", gin.WrapF(health.LivenessHandler))
	if cfg.Health != nil {
		router.GET("/healthz", gin.WrapH(cfg.Health))
		router.GET("/readyz", gin.WrapF(cfg.Health.ReadinessHandler))
	}

	router.NoRoute(func(c *gin.Context) {
		h.responder.Respond(c, problemNotFound.WithDetail("route "+c.Request.URL.Path+" not found"))
	})

	return router
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if span := trace.SpanContextFromContext(c.Request.Context()); span.HasTraceID() {
			entry = entry.WithField("trace_id", span.TraceID().String())
		}

		if len(c.Errors) > 0 {
			entry = entry.WithError(c.Errors.Last().Err)
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("http request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Info("http request rejected")
		default:
			entry.Debug("http request served")
		}
	}
}
