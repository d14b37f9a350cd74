package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Options struct {
	ServiceName   string
	Environment   string
	Endpoint      string
	Insecure      bool
	SamplePercent int
	PortalAPI     string
	Timezone      string
}

// Setup installs an OTLP trace pipeline when an endpoint is configured and
// returns its shutdown function. Without an endpoint it only installs the
// propagator, so incoming trace context still flows to the HR API.
func Setup(opts Options) func(context.Context) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	if opts.Endpoint == "" {
		return func(context.Context) error { return nil }
	}

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(context.Background(), exporterOpts...)
	if err != nil {
		log.Printf("otel exporter error: %v", err)
		return func(context.Context) error { return nil }
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(Attributes(opts)...),
		resource.WithProcess(),
	)
	if err != nil {
		log.Printf("otel resource error: %v", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(opts.SamplePercent)),
	)
	otel.SetTracerProvider(provider)
	log.Printf("otel tracing enabled service=%s env=%s endpoint=%s sample_percent=%d", opts.ServiceName, opts.Environment, opts.Endpoint, opts.SamplePercent)

	return provider.Shutdown
}

// Attributes describes this deployment on the trace resource.
func Attributes(opts Options) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(opts.Environment))
	}
	if opts.PortalAPI != "" {
		attrs = append(attrs, attribute.String("portal.api.base_url", opts.PortalAPI))
	}
	if opts.Timezone != "" {
		attrs = append(attrs, attribute.String("portal.timezone", opts.Timezone))
	}
	return attrs
}

// Sampler keeps the parent's decision and samples root spans at percent.
func Sampler(percent int) sdktrace.Sampler {
	switch {
	case percent >= 100:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case percent <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(float64(percent) / 100))
	}
}
