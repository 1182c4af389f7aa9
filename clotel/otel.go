// Package clotel provides OpenTelemetry tracing as a dependency.
package clotel

import (
	"context"
	"strings"

	"github.com/crewlinker/clawsnip/clconfig"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// moduleName for naming conventions.
const moduleName = "clotel"

// base module with di setup shared between test and prod environment.
func base() fx.Option {
	return fx.Module(moduleName,
		// the incoming logger will be named after the module
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		// provide the environment configuration
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		// we can use the xray id generator in all cases
		fx.Provide(fx.Annotate(xray.NewIDGenerator, fx.As(new(sdktrace.IDGenerator)))),
		// we also provide an xray propagator for anywhere in code we need this
		fx.Provide(func() propagation.TextMapPropagator { return xray.Propagator{} }),
		// provide the tracer provider, flush spans on shutdown
		fx.Provide(fx.Annotate(NewTracerProvider,
			fx.OnStop(func(ctx context.Context, trp *sdktrace.TracerProvider) error { return trp.Shutdown(ctx) }),
		)),
		// also provide as more generic interface
		fx.Provide(func(trp *sdktrace.TracerProvider) trace.TracerProvider { return trp }),
	)
}

// Provide tracing for deployed lambdas and the cli, spans are exported over grpc.
func Provide() fx.Option {
	return fx.Options(base(),
		fx.Provide(fx.Annotate(newGrpcExporter,
			fx.OnStart(func(ctx context.Context, e *otlptrace.Exporter) error { return e.Start(ctx) }),
			fx.OnStop(func(ctx context.Context, e *otlptrace.Exporter) error { return e.Shutdown(ctx) }),
		)),
		fx.Provide(func(e *otlptrace.Exporter) sdktrace.SpanExporter { return e }),
		fx.Provide(NewDetector),
	)
}

// TestProvide configures the DI for a test environment, spans are kept in memory.
func TestProvide() fx.Option {
	return fx.Options(base(),
		fx.Provide(tracetest.NewInMemoryExporter),
		fx.Provide(func(e *tracetest.InMemoryExporter) sdktrace.SpanExporter { return e }),
		fx.Provide(func() resource.Detector {
			return NewDetector(Config{ServiceName: "ClTest"})
		}),
	)
}
