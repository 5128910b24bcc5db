package app

import (
	"context"
	"net/url"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const serviceName = "pawamm"

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	// OTLPEndpoint enables span export over OTLP/HTTP when set.
	OTLPEndpoint string
	SampleRate   float64
	// PrometheusEnabled exposes engine call metrics through Gatherer.
	PrometheusEnabled bool
}

// Telemetry manages OpenTelemetry tracing and metrics
type Telemetry struct {
	config   TelemetryConfig
	tracer   *trace.TracerProvider
	meters   *metricsdk.MeterProvider
	registry *promclient.Registry
	calls    *CallMetrics
}

// InitTelemetry initializes OpenTelemetry tracing and metrics
func InitTelemetry(cfg TelemetryConfig) (*Telemetry, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			attribute.String("engine", "constant-product"),
		),
	)
	if err != nil {
		return nil, err
	}

	tel := &Telemetry{config: cfg}
	if cfg.OTLPEndpoint != "" {
		if err := tel.initTracing(res); err != nil {
			return nil, err
		}
	}
	if cfg.PrometheusEnabled {
		if err := tel.initMetrics(res); err != nil {
			return nil, err
		}
	}
	return tel, nil
}

// initTracing sets up OTLP/HTTP tracing
func (t *Telemetry) initTracing(res *resource.Resource) error {
	if _, err := url.Parse(t.config.OTLPEndpoint); err != nil {
		return err
	}

	endpoint := strings.TrimPrefix(t.config.OTLPEndpoint, "http://")
	exp, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return err
	}

	rate := t.config.SampleRate
	if rate <= 0 {
		rate = 1
	}
	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(rate))),
	)

	otel.SetTracerProvider(tp)
	t.tracer = tp
	return nil
}

// initMetrics sets up an OpenTelemetry meter exported to a private
// Prometheus registry, so repeated runs in one process never collide.
func (t *Telemetry) initMetrics(res *resource.Resource) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}

	provider := metricsdk.NewMeterProvider(
		metricsdk.WithResource(res),
		metricsdk.WithReader(exporter),
	)
	calls, err := NewCallMetrics(provider.Meter(serviceName))
	if err != nil {
		return err
	}

	t.meters = provider
	t.registry = registry
	t.calls = calls
	return nil
}

// Calls returns the call metrics, or nil when metrics are disabled.
func (t *Telemetry) Calls() *CallMetrics { return t.calls }

// Gatherer returns the Prometheus view of the telemetry metrics together
// with the process-wide keeper metrics.
func (t *Telemetry) Gatherer() promclient.Gatherer {
	if t.registry == nil {
		return promclient.DefaultGatherer
	}
	return promclient.Gatherers{promclient.DefaultGatherer, t.registry}
}

// Shutdown flushes pending spans and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.meters != nil {
		if err := t.meters.Shutdown(ctx); err != nil {
			return err
		}
	}
	if t.tracer != nil {
		return t.tracer.Shutdown(ctx)
	}
	return nil
}

// CallMetrics records engine calls driven from outside the keeper.
type CallMetrics struct {
	calls       metric.Int64Counter
	duration    metric.Float64Histogram
	blockHeight metric.Int64Gauge
}

// NewCallMetrics creates the call instruments on meter.
func NewCallMetrics(meter metric.Meter) (*CallMetrics, error) {
	calls, err := meter.Int64Counter(
		"pawamm.calls",
		metric.WithDescription("Engine calls by action and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"pawamm.call.duration",
		metric.WithDescription("Engine call processing time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	blockHeight, err := meter.Int64Gauge(
		"pawamm.block.height",
		metric.WithDescription("Current block height"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	return &CallMetrics{calls: calls, duration: duration, blockHeight: blockHeight}, nil
}

// RecordCall records one engine call. A nil receiver records nothing.
func (m *CallMetrics) RecordCall(ctx context.Context, action string, duration time.Duration, errKind string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("status", status),
		attribute.String("error_kind", errKind),
	)
	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordBlockHeight records the current block height
func (m *CallMetrics) RecordBlockHeight(ctx context.Context, height int64) {
	if m == nil {
		return
	}
	m.blockHeight.Record(ctx, height)
}

// TraceCall starts a span for an engine call. The returned func ends it,
// marking the span failed when err is non-nil.
func TraceCall(ctx context.Context, action string, height int64) (context.Context, func(err error)) {
	ctx, span := otel.Tracer(serviceName).Start(ctx, "engine."+action,
		oteltrace.WithAttributes(
			attribute.String("action", action),
			attribute.Int64("block.height", height),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
