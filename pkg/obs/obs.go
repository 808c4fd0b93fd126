// Package obs provides OpenTelemetry tracing and metrics for the engine's
// plan/apply/extract cycle: one span per REST call, one span per applied
// change, and summary counters for each verb. Grounded on
// pkg/observability/observability.go's provider shape (trace+metric
// providers built together, RED-style counters, TrackOperation helper),
// narrowed to this engine's three verbs and gated by the presence of
// OTEL_EXPORTER_OTLP_ENDPOINT rather than an always-on config flag: a CLI
// tool should be silent by default and only export when an operator has
// pointed it at a collector.
package obs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "apimctl"

// Config configures the provider. Endpoint empty means disabled: New
// returns a Provider whose Tracer/Meter are the otel no-op defaults, so
// callers never need to branch on whether telemetry is active.
type Config struct {
	ServiceVersion string
	Endpoint       string
	Insecure       bool
}

// ConfigFromEnv builds a Config from OTEL_EXPORTER_OTLP_ENDPOINT and
// OTEL_EXPORTER_OTLP_INSECURE, the standard OTel SDK environment
// variables.
func ConfigFromEnv(serviceVersion string) Config {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	insecure := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	return Config{ServiceVersion: serviceVersion, Endpoint: endpoint, Insecure: insecure}
}

// Provider holds the tracer/meter and the per-verb counters used across a
// plan/apply/extract run.
type Provider struct {
	enabled        bool
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	restCalls      metric.Int64Counter
	restErrors     metric.Int64Counter
	restDuration   metric.Float64Histogram
	changesApplied metric.Int64Counter
	planSummary    metric.Int64Counter
}

// New builds a Provider. When cfg.Endpoint is empty, it returns a
// disabled Provider backed by otel's global no-op tracer/meter — every
// method remains safe to call, it just does nothing.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{logger: slog.Default().With("component", "obs")}

	if cfg.Endpoint == "" {
		p.enabled = false
		p.tracer = otel.Tracer(instrumentationName)
		p.meter = otel.Meter(instrumentationName)
		return p, p.initInstruments()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(instrumentationName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("obs: build resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, cfg, res); err != nil {
		return nil, fmt.Errorf("obs: init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, cfg, res); err != nil {
		return nil, fmt.Errorf("obs: init metric provider: %w", err)
	}

	p.enabled = true
	p.tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	p.meter = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

	if err := p.initInstruments(); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "telemetry exporting", "endpoint", cfg.Endpoint)
	return p, nil
}

func (p *Provider) initTraceProvider(ctx context.Context, cfg Config, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return err
	}
	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, cfg Config, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return err
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initInstruments() error {
	var err error
	p.restCalls, err = p.meter.Int64Counter("apimctl.rest.calls",
		metric.WithDescription("REST calls made against the control plane"), metric.WithUnit("{call}"))
	if err != nil {
		return err
	}
	p.restErrors, err = p.meter.Int64Counter("apimctl.rest.errors",
		metric.WithDescription("REST calls that returned an error"), metric.WithUnit("{error}"))
	if err != nil {
		return err
	}
	p.restDuration, err = p.meter.Float64Histogram("apimctl.rest.duration",
		metric.WithDescription("REST call duration"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30))
	if err != nil {
		return err
	}
	p.changesApplied, err = p.meter.Int64Counter("apimctl.apply.changes",
		metric.WithDescription("Changes applied, by action"), metric.WithUnit("{change}"))
	if err != nil {
		return err
	}
	p.planSummary, err = p.meter.Int64Counter("apimctl.plan.changes",
		metric.WithDescription("Changes recorded in a generated plan, by action"), metric.WithUnit("{change}"))
	if err != nil {
		return err
	}
	return nil
}

// Shutdown flushes and releases the providers. Safe to call on a
// disabled Provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown trace provider", "error", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			p.logger.ErrorContext(ctx, "shutdown metric provider", "error", err)
		}
	}
	return nil
}

// Enabled reports whether this Provider is exporting telemetry.
func (p *Provider) Enabled() bool { return p.enabled }

// StartRESTSpan starts a span for one REST call and returns a function to
// record its completion (duration, error, and the call/error counters).
func (p *Provider) StartRESTSpan(ctx context.Context, method, path string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "rest."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.method", method), attribute.String("apim.path", path)),
	)
	attrs := metric.WithAttributes(attribute.String("http.method", method))
	p.restCalls.Add(ctx, 1, attrs)

	return ctx, func(err error) {
		p.restDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		if err != nil {
			span.RecordError(err)
			p.restErrors.Add(ctx, 1, attrs)
		}
		span.End()
	}
}

// StartApplyChangeSpan starts a span covering one applied change.
func (p *Provider) StartApplyChangeSpan(ctx context.Context, action, key string) (context.Context, func(err error)) {
	ctx, span := p.tracer.Start(ctx, "apply.change",
		trace.WithAttributes(attribute.String("apim.action", action), attribute.String("apim.key", key)),
	)
	p.changesApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("apim.action", action)))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}

// RecordPlanCounts records a generated plan's per-action totals.
func (p *Provider) RecordPlanCounts(ctx context.Context, create, update, delete, noop int) {
	p.planSummary.Add(ctx, int64(create), metric.WithAttributes(attribute.String("apim.action", "create")))
	p.planSummary.Add(ctx, int64(update), metric.WithAttributes(attribute.String("apim.action", "update")))
	p.planSummary.Add(ctx, int64(delete), metric.WithAttributes(attribute.String("apim.action", "delete")))
	p.planSummary.Add(ctx, int64(noop), metric.WithAttributes(attribute.String("apim.action", "noop")))
}
