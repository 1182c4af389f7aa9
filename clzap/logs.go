// Package clzap provides logging using the zap logging library
package clzap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/crewlinker/clawsnip/clconfig"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// SecondaryCore can be supplied to tee all logging to an additional core.
type SecondaryCore struct {
	zapcore.Core
	Name string
}

// Fx is a convenient option that configures fx to use the zap logger.
func Fx() fx.Option {
	return fx.WithLogger(func(cfg Config, l *zap.Logger) fxevent.Logger {
		zl := &fxevent.ZapLogger{Logger: l.Named("fx")}
		zl.UseLogLevel(cfg.FxLevel)

		return zl
	})
}

// moduleName for naming conventions.
const moduleName = "clzap"

// newEncoderConfig returns the encoder config. By default the keys follow the Lambda JSON log format so
// the Lambda console picks up the level and message.
func newEncoderConfig(cfg Config) zapcore.EncoderConfig {
	if cfg.DevelopmentEncodingConfig {
		return zap.NewDevelopmentEncoderConfig()
	}

	ecfg := zap.NewProductionEncoderConfig()
	ecfg.TimeKey = "timestamp"
	ecfg.MessageKey = "message"
	ecfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	return ecfg
}

// newEncoder returns the encoder based on configuration.
func newEncoder(cfg Config, ecfg zapcore.EncoderConfig) zapcore.Encoder {
	if cfg.ConsoleEncoding {
		return zapcore.NewConsoleEncoder(ecfg)
	}

	return zapcore.NewJSONEncoder(ecfg)
}

// newLogger builds the logger from a core, optionally teeing to a secondary core.
func newLogger(core zapcore.Core, sec *SecondaryCore) *zap.Logger {
	if sec != nil {
		core = zapcore.NewTee(core, sec.Core)
	}

	logs := zap.New(core)
	if sec != nil {
		logs.Info("logger initialized with secondary core", zap.String("secondary_core_name", sec.Name))
	}

	return logs
}

// syncOnStop flushes the logger when the application stops.
func syncOnStop(_ context.Context, l *zap.Logger) error {
	_ = l.Sync() // ignore to support TTY: https://github.com/uber-go/zap/issues/880

	return nil
}

// Provide logging module. It can be used as a fx Module in production binaries to provide
// high-performance structured logging.
func Provide() fx.Option {
	return fx.Module(moduleName,
		// provide the environment configuration
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		// allow environmental config to configure the level at which to log
		fx.Provide(func(cfg Config) zapcore.LevelEnabler { return cfg.Level }),
		// provide the zapper, make sure everything is synced on shutdown
		fx.Provide(fx.Annotate(newLogger,
			fx.ParamTags(``, `optional:"true"`),
			fx.OnStop(syncOnStop))),
		// provide dependencies to build the prod logger
		fx.Provide(zapcore.NewCore, newEncoder, newEncoderConfig),
		// allow environment to configure where logs are being synced to
		fx.Provide(func(cfg Config) (zapcore.WriteSyncer, error) {
			sync, _, err := zap.Open(cfg.Outputs...)
			if err != nil {
				return nil, fmt.Errorf("failed to zap-open: %w", err)
			}

			return sync, nil
		}),
	)
}

// newObservedAndConsole outputs a tee logging core that writes to an observed underlying core and also
// writes console output to the configured writer.
func newObservedAndConsole(lvl zapcore.LevelEnabler, gw io.Writer) (zapcore.Core, *observer.ObservedLogs) {
	core, obs := observer.New(lvl)
	core = zapcore.NewTee(core,
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(gw),
			lvl,
		))

	return core, obs
}

// Observed configures a logging module that allows for observing while also writing console output to
// a io.Writer that needs to be supplied.
func Observed() fx.Option {
	return fx.Module(moduleName+"-observed",
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(func(cfg Config) zapcore.LevelEnabler { return cfg.Level }),
		fx.Provide(newObservedAndConsole),
		fx.Provide(fx.Annotate(newLogger,
			fx.ParamTags(``, `optional:"true"`),
			fx.OnStop(syncOnStop))),
	)
}
