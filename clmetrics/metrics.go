// Package clmetrics counts the metrics that are stored in CloudWatch.
package clmetrics

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/crewlinker/clawsnip/clconfig"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the counter from env.
type Config struct {
	// Namespace limits the count to a single namespace when set.
	Namespace string `env:"NAMESPACE"`
}

// CloudWatch provides the metric listing api.
type CloudWatch interface {
	cloudwatch.ListMetricsAPIClient
}

// Counter counts metrics.
type Counter struct {
	cfg  Config
	logs *zap.Logger
	cwc  CloudWatch
}

// New inits the counter.
func New(cfg Config, logs *zap.Logger, cwc CloudWatch) *Counter {
	return &Counter{cfg: cfg, logs: logs, cwc: cwc}
}

// Count pages through all metrics and returns the total.
func (c Counter) Count(ctx context.Context) (total int, err error) {
	inp := &cloudwatch.ListMetricsInput{}
	if c.cfg.Namespace != "" {
		inp.Namespace = aws.String(c.cfg.Namespace)
	}

	pgn := cloudwatch.NewListMetricsPaginator(c.cwc, inp)
	for pages := 1; pgn.HasMorePages(); pages++ {
		page, err := pgn.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list metrics: %w", err)
		}

		total += len(page.Metrics)
		c.logs.Debug("listed metrics page", zap.Int("page", pages), zap.Int("total", total))
	}

	return total, nil
}

// moduleName for naming conventions.
const moduleName = "clmetrics"

// Provide the counter.
func Provide() fx.Option {
	return fx.Module(moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(cloudwatch.NewFromConfig, fx.As(new(CloudWatch)))),
		fx.Provide(New),
	)
}
