package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rs/zerolog"
)

const (
	exporterTimeout = 5 * time.Second
	defaultRatio    = 0.1
	// DisabledEndpoint turns export off; spans and metrics stay in-process no-ops.
	DisabledEndpoint = "none"
)

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	MetricsInterval  time.Duration
}

// Defaults fills in unset fields.
func (c Config) Defaults() Config {
	if c.OTLPEndpoint == "" {
		c.OTLPEndpoint = "localhost:4317"
	}
	if c.ServiceName == "" {
		c.ServiceName = "preauth-service"
	}
	if c.ServiceNamespace == "" {
		c.ServiceNamespace = "wailsalutem"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.TracesSampler == "" {
		c.TracesSampler = "always_on"
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = 30 * time.Second
	}
	return c
}

// Provider holds the OpenTelemetry providers. Either may be nil when its
// exporter could not be created.
type Provider struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	logger         zerolog.Logger
}

// InitProvider installs the global tracer and meter providers and the W3C
// propagator. An unreachable collector degrades to no export, never an error.
func InitProvider(ctx context.Context, cfg Config, logger zerolog.Logger) (*Provider, error) {
	cfg = cfg.Defaults()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Provider{logger: logger}
	if cfg.OTLPEndpoint == DisabledEndpoint {
		logger.Info().Msg("OpenTelemetry export disabled")
		return p, nil
	}

	logger.Info().
		Str("endpoint", cfg.OTLPEndpoint).
		Str("sampler", cfg.TracesSampler).
		Msg("Initializing OpenTelemetry")

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		logger.Warn().Err(err).Msg("failed to initialize tracer provider, continuing without distributed tracing")
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
		logger.Info().Msg("✓ OpenTelemetry tracer provider initialized")
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		logger.Warn().Err(err).Msg("failed to initialize meter provider, continuing without metrics export")
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
		logger.Info().Dur("interval", cfg.MetricsInterval).Msg("✓ OpenTelemetry meter provider initialized")
	}

	return p, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcessRuntimeName(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Sampler maps an OTEL_TRACES_SAMPLER value to a sampler. Ratio samplers take
// an optional ":<ratio>" suffix, e.g. "parentbased_traceidratio:0.25".
func Sampler(name string) sdktrace.Sampler {
	name, arg, _ := strings.Cut(strings.ToLower(strings.TrimSpace(name)), ":")
	ratio := defaultRatio
	if r, err := strconv.ParseFloat(arg, 64); err == nil && r >= 0 && r <= 1 {
		ratio = r
	}

	switch name {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(ratio)
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	default:
		return sdktrace.AlwaysSample()
	}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(exporterTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.TracesSampler)),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(exporterTimeout),
			sdktrace.WithMaxExportBatchSize(512),
		),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(exporterTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(cfg.MetricsInterval),
		)),
	), nil
}

// Shutdown flushes and stops both providers, returning every error.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.logger.Info().Msg("Shutting down OpenTelemetry providers")

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		} else {
			p.logger.Info().Msg("✓ Tracer provider shut down")
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		} else {
			p.logger.Info().Msg("✓ Meter provider shut down")
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		p.logger.Error().Err(err).Msg("error shutting down OpenTelemetry providers")
	}
	return err
}
