package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer and meter names used across the module.
const (
	InstrumentationName = "nodemesh"
	TracerDiscovery     = "nodemesh.discovery"
	TracerNetwork       = "nodemesh.network"
	TracerMirror        = "nodemesh.mirror"
)

// Exporter names accepted by Setup.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
	ExporterNone   = "none"
)

// Config selects how traces are exported.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Namespace      string
	Exporter       string  // otlp, stdout or none
	Endpoint       string  // OTLP gRPC endpoint, e.g. "otel-collector:4317"
	Insecure       bool    // plaintext gRPC to the collector
	SamplingRate   float64 // 0..1, applied to root spans
	Writer         io.Writer

	// MetricsEndpoint, when set, pushes metrics over OTLP/HTTP every
	// MetricsInterval (default 30s).
	MetricsEndpoint string
	MetricsInterval time.Duration

	// MetricReader lets callers (tests, custom exporters) attach a reader to
	// the meter provider.
	MetricReader sdkmetric.Reader
}

// Provider owns the SDK tracer and meter providers. Setup installs them as
// the otel globals, so packages that call otel.Tracer pick them up.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	serviceName    string
}

// Setup builds and installs the tracer and meter providers.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = os.Getenv("OTEL_SERVICE_NAME")
		if cfg.ServiceName == "" {
			cfg.ServiceName = InstrumentationName
		}
	}
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterOTLP
	}

	res := newResource(cfg)

	exporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
	}
	if exporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.MetricsEndpoint != "" {
		reader, err := newPeriodicReader(ctx, cfg)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(reader))
	}
	if cfg.MetricReader != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(cfg.MetricReader))
	}
	mp := sdkmetric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		TracerProvider: tp,
		MeterProvider:  mp,
		Tracer:         tp.Tracer(InstrumentationName),
		Meter:          mp.Meter(InstrumentationName),
		serviceName:    cfg.ServiceName,
	}, nil
}

// ServiceName returns the resolved service name.
func (p *Provider) ServiceName() string {
	return p.serviceName
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newResource(cfg Config) *resource.Resource {
	version := cfg.ServiceVersion
	if version == "" {
		version = "development"
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(version),
		semconv.ServiceNamespaceKey.String(cfg.Namespace),
		semconv.DeploymentEnvironmentKey.String(deploymentEnvironment()),
		attribute.String("nodemesh.exporter", cfg.Exporter),
	)
}

func newSpanExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterOTLP:
		if cfg.Endpoint == "" {
			return nil, errors.New("otlp exporter requires an endpoint")
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))
	case ExporterNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
}

func newPeriodicReader(ctx context.Context, cfg Config) (*sdkmetric.PeriodicReader, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.MetricsEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	interval := cfg.MetricsInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

// newSampler treats a rate outside (0, 1) as "sample everything"; use the
// "none" exporter to turn tracing off.
func newSampler(rate float64) sdktrace.Sampler {
	if rate <= 0 || rate >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

func deploymentEnvironment() string {
	if env := os.Getenv("DEPLOYMENT_ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
