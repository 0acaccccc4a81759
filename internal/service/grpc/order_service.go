package grpcsvc

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/service/order"
)

const (
	idempotencyKeyHeader = "idempotency-key"
	// ErrorCodeTrailer несёт стабильный код доменной ошибки.
	ErrorCodeTrailer = "x-error-code"
	// ReplayedHeader выставляется, если ответ воспроизведён по ключу идемпотентности.
	ReplayedHeader = "x-idempotent-replayed"
)

// Orders: операции сервиса заказов, которые публикует gRPC API.
type Orders interface {
	CreateOrderIdempotent(ctx context.Context, key string, cmd order.CreateOrderCommand) (domain.Order, bool, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, customerID string, limit int) ([]domain.Order, error)
	CreateCustomer(ctx context.Context, cmd order.CreateCustomerCommand) (domain.Customer, error)
	CreateProduct(ctx context.Context, cmd order.CreateProductCommand) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// OrderService реализует gRPC API поверх сервиса заказов.
type OrderService struct {
	orders Orders
	logger *log.Entry
}

// NewOrderService конструирует сервис с зависимостями.
func NewOrderService(orders Orders, logger *log.Entry) *OrderService {
	if logger == nil {
		logger = log.New().WithField("component", "grpc-order-service")
	}
	return &OrderService{
		orders: orders,
		logger: logger,
	}
}

// CreateOrder создаёт заказ. Необязательный metadata-ключ idempotency-key включает воспроизведение ответа.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	cmd := order.CreateOrderCommand{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Items:      make([]order.LineItem, 0, len(req.Products)),
	}
	for _, line := range req.Products {
		cmd.Items = append(cmd.Items, order.LineItem{ProductID: strings.TrimSpace(line.ID), Quantity: line.Quantity})
	}

	created, replayed, err := s.orders.CreateOrderIdempotent(ctx, readIdempotencyKey(ctx), cmd)
	if replayed {
		_ = grpc.SetHeader(ctx, metadata.Pairs(ReplayedHeader, "true"))
	}
	if err != nil {
		return nil, s.toStatus(ctx, "CreateOrder", err)
	}

	return &CreateOrderResponse{Order: toOrder(created), Replayed: replayed}, nil
}

// GetOrder возвращает заказ вместе с клиентом.
func (s *OrderService) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	if req == nil || strings.TrimSpace(req.OrderID) == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	found, err := s.orders.GetOrder(ctx, strings.TrimSpace(req.OrderID))
	if err != nil {
		return nil, s.toStatus(ctx, "GetOrder", err)
	}
	return &GetOrderResponse{Order: toOrder(found)}, nil
}

// ListOrders возвращает заказы клиента, новые первыми.
func (s *OrderService) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersResponse, error) {
	if req == nil || strings.TrimSpace(req.CustomerID) == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_id is required")
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must be >= 0")
	}

	orders, err := s.orders.ListOrders(ctx, strings.TrimSpace(req.CustomerID), int(req.Limit))
	if err != nil {
		return nil, s.toStatus(ctx, "ListOrders", err)
	}

	resp := &ListOrdersResponse{Orders: make([]*Order, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrder(o))
	}
	return resp, nil
}

// CreateCustomer регистрирует клиента.
func (s *OrderService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CreateCustomerResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	customer, err := s.orders.CreateCustomer(ctx, order.CreateCustomerCommand{Name: req.Name, Email: req.Email})
	if err != nil {
		return nil, s.toStatus(ctx, "CreateCustomer", err)
	}
	return &CreateCustomerResponse{Customer: toCustomer(customer)}, nil
}

// CreateProduct добавляет товар в каталог.
func (s *OrderService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*CreateProductResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	product, err := s.orders.CreateProduct(ctx, order.CreateProductCommand{
		Name:       req.Name,
		PriceMinor: req.PriceMinor,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return nil, s.toStatus(ctx, "CreateProduct", err)
	}
	return &CreateProductResponse{Product: toProduct(product)}, nil
}

// GetProduct возвращает товар с текущим остатком.
func (s *OrderService) GetProduct(ctx context.Context, req *GetProductRequest) (*GetProductResponse, error) {
	if req == nil || strings.TrimSpace(req.ProductID) == "" {
		return nil, status.Error(codes.InvalidArgument, "product_id is required")
	}

	product, err := s.orders.GetProduct(ctx, strings.TrimSpace(req.ProductID))
	if err != nil {
		return nil, s.toStatus(ctx, "GetProduct", err)
	}
	return &GetProductResponse{Product: toProduct(product)}, nil
}

// toStatus переводит доменную ошибку в gRPC status и кладёт её код в trailer.
func (s *OrderService) toStatus(ctx context.Context, operation string, err error) error {
	code := domain.ErrorCode(err)
	grpcCode := grpcCodeFor(err, code)
	_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorCodeTrailer, code))

	if grpcCode == codes.Internal {
		s.logger.WithError(err).WithField("operation", operation).Error("request failed")
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(grpcCode, err.Error())
}

func grpcCodeFor(err error, code string) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}

	switch code {
	case domain.CodeInvalidArgument:
		return codes.InvalidArgument
	case domain.CodeCustomerNotFound, domain.CodeNotFound:
		return codes.NotFound
	case domain.CodeProductSetMismatch, domain.CodeInsufficientStock:
		return codes.FailedPrecondition
	case domain.CodeAlreadyExists:
		return codes.AlreadyExists
	case domain.CodeConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

func readIdempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(idempotencyKeyHeader)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

var _ OrderServiceServer = (*OrderService)(nil)
