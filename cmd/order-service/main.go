package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/app"
	"github.com/vladislavdragonenkov/shop/internal/version"
)

const (
	envGRPCAddr                    = "SHOP_GRPC_ADDR"
	envHTTPAddr                    = "SHOP_HTTP_ADDR"
	envStorageDriver               = "SHOP_STORAGE_DRIVER"
	envPostgresDSN                 = "SHOP_POSTGRES_DSN"
	envPostgresAutoMigrate         = "SHOP_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers                = "SHOP_KAFKA_BROKERS"
	envKafkaTopic                  = "SHOP_KAFKA_TOPIC"
	envKafkaDLQTopic               = "SHOP_KAFKA_DLQ_TOPIC"
	envOutboxPollInterval          = "SHOP_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "SHOP_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "SHOP_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "SHOP_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending            = "SHOP_OUTBOX_MAX_PENDING"
	envIdempotencyKeyTTL           = "SHOP_IDEMPOTENCY_KEY_TTL"
	envIdempotencyCleanupInterval  = "SHOP_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "SHOP_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envStockRetryMaxAttempts       = "SHOP_STOCK_RETRY_MAX_ATTEMPTS"
	envStockRetryInitialDelay      = "SHOP_STOCK_RETRY_INITIAL_DELAY"
	envStockRetryMaxDelay          = "SHOP_STOCK_RETRY_MAX_DELAY"
	envTracingEnabled              = "SHOP_TRACING_ENABLED"
	envTracingEndpoint             = "SHOP_TRACING_ENDPOINT"
	envTracingStdout               = "SHOP_TRACING_STDOUT"
	envEnvironment                 = "SHOP_ENVIRONMENT"
	envLogLevel                    = "SHOP_LOG_LEVEL"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(lookup envLookup) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if raw, ok := lookup(envLogLevel); ok && strings.TrimSpace(raw) != "" {
		level, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			log.WithError(err).Warn("invalid log level, keeping info")
			return
		}
		log.SetLevel(level)
	}
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректные значения игнорируются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []error) {
	cfg := app.DefaultConfig()
	var warnings []error

	positiveInt := func(v int) bool { return v > 0 }
	nonNegativeInt := func(v int) bool { return v >= 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	setString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setBool := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = parsed
	}
	setInt := func(key string, dst *int, valid func(int) bool, rule string) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		parsed, err := parseInt(v, valid, rule)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = parsed
	}
	setDuration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok {
			return
		}
		parsed, err := parseDuration(v, valid, rule)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = parsed
	}

	setString(envGRPCAddr, &cfg.GRPCAddr)
	setString(envHTTPAddr, &cfg.HTTPAddr)
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	setString(envPostgresDSN, &cfg.PostgresDSN)
	setBool(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	setString(envKafkaBrokers, &cfg.KafkaBrokers)
	setString(envKafkaTopic, &cfg.KafkaTopic)
	setString(envKafkaDLQTopic, &cfg.KafkaDLQTopic)

	setDuration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	setInt(envOutboxBatchSize, &cfg.OutboxBatchSize, positiveInt, "must be > 0")
	setInt(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positiveInt, "must be > 0")
	setDuration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")
	setInt(envOutboxMaxPending, &cfg.OutboxMaxPending, nonNegativeInt, "must be >= 0")

	setDuration(envIdempotencyKeyTTL, &cfg.IdempotencyKeyTTL, positiveDuration, "must be > 0")
	setDuration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	setInt(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positiveInt, "must be > 0")

	setInt(envStockRetryMaxAttempts, &cfg.StockRetryMaxAttempts, positiveInt, "must be > 0")
	setDuration(envStockRetryInitialDelay, &cfg.StockRetryInitialDelay, nonNegativeDuration, "must be >= 0")
	setDuration(envStockRetryMaxDelay, &cfg.StockRetryMaxDelay, positiveDuration, "must be > 0")

	setBool(envTracingEnabled, &cfg.TracingEnabled)
	setString(envTracingEndpoint, &cfg.TracingEndpoint)
	setBool(envTracingStdout, &cfg.TracingStdout)
	setString(envEnvironment, &cfg.Environment)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}

func main() {
	setupLogger(os.LookupEnv)
	gin.SetMode(gin.ReleaseMode)

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.WithError(warning).Warn("ignoring invalid config value, using default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"http_addr":      cfg.HTTPAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  cfg.KafkaBrokers != "",
		"build":          version.String(),
	}).Info("starting order service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("order service exited with error")
	}

	log.Info("order service stopped")
}
