// Package clsentry reports errors of the lambdas to Sentry.
package clsentry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/crewlinker/clawsnip/clbuildinfo"
	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/crewlinker/clawsnip/clzap"
	sentry "github.com/getsentry/sentry-go"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

// Config configures.
type Config struct {
	// DSN to send events to, reporting is disabled when empty.
	DSN string `env:"DSN"`
	// Environment is reported with every event.
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	// FlushTimeout bounds the flushing of events on shutdown when the context has no deadline.
	FlushTimeout time.Duration `env:"FLUSH_TIMEOUT" envDefault:"2s"`
	// ZapLevel is the level at which log entries become Sentry events.
	ZapLevel zapcore.Level `env:"ZAP_LEVEL" envDefault:"error"`
	// ZapBreadcrumbLevel is the level at which log entries are recorded as breadcrumbs.
	ZapBreadcrumbLevel zapcore.Level `env:"ZAP_BREADCRUMB_LEVEL" envDefault:"info"`
}

// ErrFlushFailed is returned when not all events could be sent during shutdown.
var ErrFlushFailed = errors.New("failed to flush sentry hub")

// NewZapSentry creates a secondary zap core so the clzap logger sends its error logs to Sentry. It
// returns nil when no DSN is configured.
func NewZapSentry(cfg Config, hub *sentry.Hub, client *sentry.Client) (*clzap.SecondaryCore, error) {
	if cfg.DSN == "" {
		return nil, nil //nolint:nilnil
	}

	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Hub:               hub,
		Level:             cfg.ZapLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   cfg.ZapBreadcrumbLevel,
	}, zapsentry.NewSentryClientFromClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create zap-sentry core: %w", err)
	}

	return &clzap.SecondaryCore{Core: core, Name: "sentry"}, nil
}

// newOptions creates the sentry client options.
func newOptions(cfg Config, info *clbuildinfo.Info) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		AttachStacktrace: true,
		Release:          info.Version(),
	}
}

// newHub inits the hub and flushes it when the application stops.
func newHub(lc fx.Lifecycle, cfg Config, client *sentry.Client, scope *sentry.Scope) *sentry.Hub {
	hub := sentry.NewHub(client, scope)
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		dl, ok := ctx.Deadline()
		if !ok {
			dl = time.Now().Add(cfg.FlushTimeout)
		}

		if !hub.Flush(time.Until(dl)) {
			return ErrFlushFailed
		}

		return nil
	}))

	return hub
}

// FxErrorShutdownDelay is the time fx waits after an error, so the hub can send it before the process exits.
var FxErrorShutdownDelay = time.Second * 2

type delayOnFxError struct{}

func (delayOnFxError) HandleError(error) { time.Sleep(FxErrorShutdownDelay) }

// moduleName for naming conventions.
const moduleName = "clsentry"

// Provide configures the DI for reporting to Sentry.
func Provide() fx.Option {
	return fx.Module(moduleName,
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(sentry.NewClient, sentry.NewScope, newOptions, newHub, NewZapSentry),
		fx.ErrorHook(delayOnFxError{}),
	)
}
