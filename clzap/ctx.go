package clzap

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey holds the context key under which the logger will be stored.
type ctxKey string

// LoggerFromContext returns the logger embedded in the context, if any.
func LoggerFromContext(ctx context.Context) (*zap.Logger, bool) {
	logs, ok := ctx.Value(ctxKey("clzap.logger")).(*zap.Logger)

	return logs, ok
}

// Log retrieves a zap logger from the context. If there is none the first fallback is used, or a no-op
// logger if no fallback is provided either. Tracing and Lambda request information in the context is added
// to the logger as fields.
func Log(ctx context.Context, fallback ...*zap.Logger) *zap.Logger {
	logs, ok := LoggerFromContext(ctx)
	if !ok {
		logs = zap.NewNop()
		if len(fallback) > 0 && fallback[0] != nil {
			logs = fallback[0]
		}
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasSpanID() {
		logs = logs.With(zap.String("span_id", span.SpanContext().SpanID().String()))
	}

	// log the trace id in the xray format
	if span.SpanContext().HasTraceID() {
		tid := span.SpanContext().TraceID().String()
		logs = logs.With(zap.String("trace_id", fmt.Sprintf("1-%s-%s", tid[:8], tid[8:])))
	}

	if lctx, ok := lambdacontext.FromContext(ctx); ok {
		logs = logs.With(zap.String("requestId", lctx.AwsRequestID))
	}

	return logs
}

// WithLogger returns a context with the provided logger embedded.
func WithLogger(ctx context.Context, logs *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey("clzap.logger"), logs)
}
