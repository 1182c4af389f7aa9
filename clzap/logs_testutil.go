package clzap

import (
	"io"

	"github.com/onsi/ginkgo/v2"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

// TestProvide is a convenient fx option setup that can easily be included in all tests. It observes the
// logs for assertion and writes console output to the GinkgoWriter so all logs can easily be inspected if
// tests fail. Fx lifecycle events are logged at debug so they stay out of the observed logs by default.
func TestProvide() fx.Option {
	return fx.Options(Fx(),
		fx.Decorate(func(cfg Config) Config {
			cfg.FxLevel = zapcore.DebugLevel

			return cfg
		}),
		fx.Supply(fx.Annotate(ginkgo.GinkgoWriter, fx.As(new(io.Writer)))),
		Observed())
}
