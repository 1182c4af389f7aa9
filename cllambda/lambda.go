// Package cllambda provides reusable fx code for building AWS Lambda handlers.
package cllambda

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/crewlinker/clawsnip/claws"
	"github.com/crewlinker/clawsnip/clbuildinfo"
	"github.com/crewlinker/clawsnip/clotel"
	"github.com/crewlinker/clawsnip/clsentry"
	"github.com/crewlinker/clawsnip/clzap"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler is a generic lambda handler interface.
type Handler[I, O any] interface {
	Handle(ctx context.Context, input I) (O, error)
}

// Invoke provides the fx Invoke option to start the lambda right after the 'start' lifecycle event. It does
// not actually start the lambda unless the AWS_LAMBDA_RUNTIME_API is present. Which will be present on a
// real deployment but not during testing.
func Invoke[I, O any]() fx.Option {
	return fx.Invoke(func(fxlc fx.Lifecycle, logs *zap.Logger, info *clbuildinfo.Info, hdlr Handler[I, O]) {
		logs = logs.Named("lambda")
		logs.Info("lambda initialized", zap.String("version", info.Version()))

		if os.Getenv("AWS_LAMBDA_RUNTIME_API") == "" {
			return // only start the runtime loop when we're actually executing inside the lambda
		}

		fxlc.Append(fx.Hook{OnStart: func(context.Context) error {
			go lambda.StartWithOptions(HandleWithLogs(logs, hdlr),
				lambda.WithContext(baseContext(logs)), //nolint:contextcheck
				lambda.WithEnableSIGTERM(func() {
					logs.Info("received SIGTERM, shutting down")
				}))

			return nil
		}})
	})
}

// HandleWithLogs returns the handle function of the handler that logs any error it returns. With Sentry
// configured these errors are reported.
func HandleWithLogs[I, O any](logs *zap.Logger, hdlr Handler[I, O]) func(context.Context, I) (O, error) {
	return func(ctx context.Context, in I) (O, error) {
		out, err := hdlr.Handle(ctx, in)
		if err != nil {
			logs.Error("handler failed", zap.Error(err))
		}

		return out, err
	}
}

// baseContext builds the root context for all lambda invocations.
func baseContext(logs *zap.Logger) context.Context {
	return clzap.WithLogger(context.Background(), logs)
}

// Lambda provides shared fx options (mostly modules) that may be used in any lambda handler so we can
// initialize them all in the same way (and even generate the main.go for all lambdas).
func Lambda[I, O any](version string, o ...fx.Option) fx.Option {
	return fx.Options(append(o, []fx.Option{
		clzap.Fx(),                   // log fx lines to zap
		clzap.Provide(),              // provide logging to all handlers
		clbuildinfo.Provide(version), // provide the build version
		clotel.Provide(),             // trace handlers and aws calls
		clsentry.Provide(),           // report errors
		claws.Provide(),              // provide the aws config
		Invoke[I, O](),               // invoke the lambda
	}...)...)
}

// TestProvide provides the shared lambda dependencies for testing, without starting the runtime.
func TestProvide(o ...fx.Option) fx.Option {
	return fx.Options(append(o, []fx.Option{
		clzap.TestProvide(),
		clbuildinfo.TestProvide(),
		clotel.TestProvide(),
		claws.Provide(),
	}...)...)
}
