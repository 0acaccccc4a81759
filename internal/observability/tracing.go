package observability

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig описывает экспорт трейсов.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	// Endpoint задаёт адрес OTLP/HTTP коллектора. Пустое значение берёт OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string
	Insecure bool
	// Stdout включает экспорт в stdout вместо OTLP.
	Stdout bool
}

// ShutdownFunc сбрасывает накопленные спаны и освобождает экспортёр.
type ShutdownFunc func(ctx context.Context) error

// InitTracing настраивает глобальный TracerProvider и пропагаторы W3C.
// При выключенной трассировке возвращает noop-провайдер.
func InitTracing(ctx context.Context, cfg TracingConfig, logger *log.Entry) (trace.TracerProvider, ShutdownFunc, error) {
	if logger == nil {
		logger = log.New().WithField("component", "tracing")
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		provider := noop.NewTracerProvider()
		otel.SetTracerProvider(provider)
		return provider, func(context.Context) error { return nil }, nil
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "order-service"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "local"
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("deployment.environment", environment),
		),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, nil, err
	}

	exporter, err := newSpanExporter(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	logger.WithFields(log.Fields{
		"service":     serviceName,
		"environment": environment,
		"stdout":      cfg.Stdout,
	}).Info("tracing initialized")

	return provider, provider.Shutdown, nil
}

func newSpanExporter(ctx context.Context, cfg TracingConfig, logger *log.Entry) (sdktrace.SpanExporter, error) {
	if cfg.Stdout {
		return stdouttrace.New()
	}

	opts := []otlptracehttp.Option{}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err == nil {
		return exporter, nil
	}
	logger.WithError(err).Warn("failed to initialize OTLP trace exporter, falling back to stdout")
	return stdouttrace.New()
}
