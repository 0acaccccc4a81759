package app

import (
	"time"

	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/service/order"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres использует PostgreSQL.
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr string
	HTTPAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers: список брокеров через запятую. Пустое значение отключает публикацию событий.
	KafkaBrokers  string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending: порог backlog, после которого health-проверка outbox деградирует. 0 отключает проверку.
	OutboxMaxPending int

	IdempotencyKeyTTL           time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	StockRetryMaxAttempts  int
	StockRetryInitialDelay time.Duration
	StockRetryMaxDelay     time.Duration

	TracingEnabled  bool
	TracingEndpoint string
	TracingStdout   bool
	Environment     string

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	retry := order.DefaultRetryConfig()
	return Config{
		GRPCAddr:                    ":50051",
		HTTPAddr:                    ":8080",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		KafkaTopic:                  kafka.TopicOrderEvents,
		KafkaDLQTopic:               kafka.TopicDeadLetterQueue,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
		OutboxMaxPending:            1000,
		IdempotencyKeyTTL:           24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		StockRetryMaxAttempts:       retry.MaxAttempts,
		StockRetryInitialDelay:      retry.InitialDelay,
		StockRetryMaxDelay:          retry.MaxDelay,
		Environment:                 "local",
		ShutdownTimeout:             5 * time.Second,
	}
}

// retryConfig собирает настройки повторов при конфликте остатков.
func (c Config) retryConfig() order.RetryConfig {
	retry := order.DefaultRetryConfig()
	retry.MaxAttempts = c.StockRetryMaxAttempts
	retry.InitialDelay = c.StockRetryInitialDelay
	retry.MaxDelay = c.StockRetryMaxDelay
	return retry
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout
}
