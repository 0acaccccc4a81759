package order

import (
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/service/idempotency"
)

const tracerName = "github.com/vladislavdragonenkov/shop/internal/service/order"

// Store: хранилище, над которым работает сервис: атомарные единицы работы и чтения вне них.
type Store interface {
	domain.UnitOfWork
	Repositories() domain.Repositories
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics задаёт метрики заказов.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracerProvider задаёт провайдер трассировки.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Service) {
		if provider != nil {
			s.tracer = provider.Tracer(tracerName)
		}
	}
}

// WithRetryConfig задаёт политику повторов при конфликте остатков.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg.normalize()
	}
}

// WithIdempotencyGuard включает воспроизведение ответа CreateOrder по ключу идемпотентности.
func WithIdempotencyGuard(guard *idempotency.Guard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

// Service реализует создание заказов и сопутствующие операции каталога.
type Service struct {
	store   Store
	guard   *idempotency.Guard
	logger  *log.Entry
	metrics *metrics.OrderMetrics
	tracer  trace.Tracer
	retry   RetryConfig
	sleep   func(d time.Duration) <-chan time.Time
}

// NewService создаёт сервис заказов.
func NewService(store Store, options ...Option) *Service {
	s := &Service{
		store:  store,
		logger: log.WithField("component", "order-service"),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		retry:  DefaultRetryConfig(),
		sleep:  time.After,
	}
	for _, option := range options {
		option(s)
	}
	return s
}
