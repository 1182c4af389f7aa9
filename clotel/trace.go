package clotel

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/zapr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
)

// NewTracerProvider inits a tracer provider.
func NewTracerProvider(
	cfg Config,
	logs *zap.Logger,
	exp sdktrace.SpanExporter,
	det resource.Detector,
	idg sdktrace.IDGenerator,
	txtp propagation.TextMapPropagator,
) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DetectorDetectTimeout)
	defer cancel()

	res, err := det.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect resource: %w", err)
	}

	logs.Info("detected resource", zap.Stringer("attributes", res))

	// we handle otel errors by logging it with our zap logger. This is unfortunately a global
	// setting so it may confuse testing setups
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logs.Error("otel error", zap.Error(err))
	}))

	otel.SetLogger(zapr.NewLogger(logs))
	otel.SetTextMapPropagator(txtp)

	trp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
		sdktrace.WithIDGenerator(idg),
	)

	// set it globally, but code should prefer to inject it during construction
	otel.SetTracerProvider(trp)

	return trp, nil
}

// newGrpcExporter returns the grpc exporter.
func newGrpcExporter(cfg Config) *otlptrace.Exporter {
	return otlptracegrpc.NewUnstarted(
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(cfg.ExporterTimeout),
		otlptracegrpc.WithEndpoint(cfg.ExporterEndpoint),
	)
}

// NewDetector detects the service name. Inside Lambda the function name and version are added.
func NewDetector(cfg Config) resource.Detector {
	return detector{cfg: cfg}
}

type detector struct{ cfg Config }

func (d detector) Detect(context.Context) (*resource.Resource, error) {
	name, attrs := d.cfg.ServiceName, []attribute.KeyValue{}
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		if name == "" {
			name = fn
		}

		attrs = append(attrs,
			semconv.CloudProviderAWS,
			semconv.FaaSNameKey.String(fn),
			semconv.FaaSVersionKey.String(os.Getenv("AWS_LAMBDA_FUNCTION_VERSION")),
			semconv.CloudRegionKey.String(os.Getenv("AWS_REGION")))
	}

	if name == "" {
		name = "clawsnip"
	}

	return resource.NewWithAttributes(semconv.SchemaURL, append(attrs, semconv.ServiceNameKey.String(name))...), nil
}
