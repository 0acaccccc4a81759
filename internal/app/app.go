package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
	"github.com/vladislavdragonenkov/shop/internal/observability"
	grpcsvc "github.com/vladislavdragonenkov/shop/internal/service/grpc"
	httpapi "github.com/vladislavdragonenkov/shop/internal/service/http"
	"github.com/vladislavdragonenkov/shop/internal/service/idempotency"
	"github.com/vladislavdragonenkov/shop/internal/service/order"
	"github.com/vladislavdragonenkov/shop/internal/service/outbox"
	"github.com/vladislavdragonenkov/shop/internal/version"
)

const serviceName = "shop-order-service"

// Run поднимает хранилище, фоновые воркеры, gRPC и HTTP серверы и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	tracerProvider, shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
		Insecure:    true,
		Stdout:      cfg.TracingStdout,
	}, log.WithField("component", "tracing"))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout())
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	idempotencyMetrics := metrics.NewIdempotencyMetrics(registry)

	guard := idempotency.NewGuard(deps.idempotencyRepo,
		idempotency.WithKeyTTL(cfg.IdempotencyKeyTTL),
		idempotency.WithGuardLogger(log.WithField("component", "idempotency-guard")),
		idempotency.WithGuardMetrics(idempotencyMetrics),
	)
	orders := order.NewService(deps.store,
		order.WithLogger(log.WithField("component", "order-service")),
		order.WithMetrics(metrics.NewOrderMetricsWithRegisterer(registry)),
		order.WithTracerProvider(tracerProvider),
		order.WithRetryConfig(cfg.retryConfig()),
		order.WithIdempotencyGuard(guard),
	)

	// Ошибка подключения к Kafka не останавливает сервис: события копятся в outbox.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(producer, logger)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if cfg.OutboxMaxPending > 0 {
		healthHandler.RegisterChecker("outbox", healthcheck.NewOptionalChecker("outbox",
			outboxBacklogCheck(deps.outboxRepo, cfg.OutboxMaxPending)))
	}
	if len(parseBrokers(cfg.KafkaBrokers)) > 0 {
		healthHandler.RegisterChecker("kafka", healthcheck.NewOptionalChecker("kafka", func(context.Context) error {
			if producer == nil {
				return errors.New("kafka producer is not available")
			}
			return nil
		}))
	}

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := startWorkers(workersCtx, cfg, deps, producer, registry, idempotencyMetrics, logger)

	grpcMetrics := promgrpc.NewServerMetrics()
	registry.MustRegister(grpcMetrics)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	grpcsvc.RegisterOrderServiceServer(grpcServer, grpcsvc.NewOrderService(orders, logger.WithField("layer", "grpc")))
	grpcMetrics.InitializeMetrics(grpcServer)
	reflection.Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcsvc.ServiceName, healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		shutdownWorkers(stopWorkers, workersDone, cfg.shutdownTimeout(), logger)
		return fmt.Errorf("listen grpc %s: %w", cfg.GRPCAddr, err)
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Orders:         orders,
		Health:         healthHandler,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ServiceName:    serviceName,
		TracerProvider: tracerProvider,
		Logger:         logger.WithField("layer", "http"),
	})
	httpSrv := startHTTPServer(ctx, cfg.HTTPAddr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", lis.Addr().String()).Info("grpc server listening")
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping servers")
		healthServer.Shutdown()
		stopGRPC(grpcServer, cfg.shutdownTimeout(), logger)
		shutdownHTTP(httpSrv, logger)
		shutdownWorkers(stopWorkers, workersDone, cfg.shutdownTimeout(), logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(httpSrv, logger)
		shutdownWorkers(stopWorkers, workersDone, cfg.shutdownTimeout(), logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// startWorkers запускает outbox worker (при наличии Kafka) и очистку ключей идемпотентности.
func startWorkers(
	ctx context.Context,
	cfg Config,
	deps *runtimeDependencies,
	producer *kafka.Producer,
	registry prometheus.Registerer,
	idempotencyMetrics *metrics.IdempotencyMetrics,
	logger *log.Entry,
) <-chan struct{} {
	var wg sync.WaitGroup

	if producer != nil {
		worker := outbox.NewWorker(deps.outboxRepo, kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			outbox.WithLogger(log.WithField("component", "outbox-worker")),
			outbox.WithMetrics(metrics.NewOutboxMetrics(registry)),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, cfg.KafkaDLQTopic)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
		logger.WithField("topic", cfg.KafkaTopic).Info("outbox worker started")
	} else {
		logger.Info("kafka is not configured, order events stay in outbox")
	}

	cleanup := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(log.WithField("component", "idempotency-cleanup-worker")),
		idempotency.WithMetrics(idempotencyMetrics),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// shutdownWorkers отменяет фоновые воркеры и ждёт их завершения не дольше timeout.
func shutdownWorkers(cancel context.CancelFunc, done <-chan struct{}, timeout time.Duration, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("background workers did not stop in time")
	}
}

// stopGRPC пытается остановить сервер мягко и принудительно останавливает по таймауту.
func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop timed out, forcing grpc server stop")
		server.Stop()
	}
}

// startHTTPServer запускает HTTP API вместе с /metrics и health-пробами.
func startHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *log.Entry) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
