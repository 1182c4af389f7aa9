// Package cldrift implements a Lambda that detects configuration drift by comparing an inventory table in
// Athena with an ideal configuration document.
package cldrift

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/crewlinker/clawsnip/cllambda"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type (
	// Input into the handler, every field overwrites the configured default when set.
	Input struct {
		IdealFileKey  string   `json:"idealFileKey,omitempty"`
		SettingsGroup string   `json:"settingsGroup,omitempty"`
		Table         string   `json:"table,omitempty"`
		CustomQueries []string `json:"customQueries,omitempty"`
	}
	// Output holds the misconfigured inventory rows.
	Output = []Row
)

// Config configures the handler from env.
type Config struct {
	// IdealFileBucket holds the ideal configuration document.
	IdealFileBucket string `env:"IDEAL_FILE_S3_BUCKET"`
	// IdealFileKey is the object key of the ideal configuration document.
	IdealFileKey string `env:"IDEAL_FILE_S3_KEY" envDefault:"ideal.json"`
	// SettingsGroup selects the inventory entries to compare.
	SettingsGroup string `env:"SETTINGS_GROUP"`
	// Database is the Athena database with the inventory table.
	Database string `env:"DATABASE" envDefault:"paas-config-mgmt"`
	// Table is the Athena inventory table.
	Table string `env:"TABLE"`
	// CustomQueries are run in addition to the queries built from the ideal configuration.
	CustomQueries []string `env:"CUSTOM_QUERIES" envSeparator:";"`
	// AthenaWorkGroup runs the queries.
	AthenaWorkGroup string `env:"ATHENA_WORK_GROUP" envDefault:"primary"`
	// AthenaOutputLocation is where Athena writes results, optional when the workgroup configures it.
	AthenaOutputLocation string `env:"ATHENA_OUTPUT_LOCATION"`
	// PollInterval is the time between polls of a running query.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"500ms"`
	// ReportingFunction is invoked asynchronously with the misconfigurations, if set.
	ReportingFunction string `env:"REPORTING_FUNCTION"`
}

// S3 provides an interface for reading objects.
type S3 interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Lambda provides an interface for invoking functions.
type Lambda interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Querier runs sql queries.
type Querier interface {
	Query(ctx context.Context, sql string) ([]Row, error)
}

// Handler detects drift.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	s3c  S3
	lmbc Lambda
	qry  Querier
}

// New inits the handler.
func New(cfg Config, logs *zap.Logger, s3c S3, lmbc Lambda, qry Querier) *Handler {
	return &Handler{cfg: cfg, logs: logs, s3c: s3c, lmbc: lmbc, qry: qry}
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (Output, error) {
	key, tgt, custom := h.cfg.IdealFileKey, Target{
		Database:      h.cfg.Database,
		Table:         h.cfg.Table,
		SettingsGroup: h.cfg.SettingsGroup,
	}, h.cfg.CustomQueries

	if in.IdealFileKey != "" {
		key = in.IdealFileKey
	}

	if in.SettingsGroup != "" {
		tgt.SettingsGroup = in.SettingsGroup
	}

	if in.Table != "" {
		tgt.Table = in.Table
	}

	if in.CustomQueries != nil {
		custom = in.CustomQueries
	}

	ideal, err := h.loadIdeal(ctx, key)
	if err != nil {
		return nil, err
	}

	sql, err := BuildQuery(ideal, tgt)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows := []Row{}

	for _, q := range append([]string{sql}, custom...) {
		if strings.TrimSpace(q) == "" {
			continue
		}

		res, err := h.qry.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to query: %w", err)
		}

		rows = append(rows, res...)
	}

	h.logs.Info("drift detected", zap.Int("misconfigurations", len(rows)), zap.String("settings_group", tgt.SettingsGroup))

	if len(rows) > 0 && h.cfg.ReportingFunction != "" {
		if err := h.report(ctx, rows); err != nil {
			return nil, err
		}
	}

	return rows, nil
}

// loadIdeal reads and parses the ideal configuration document.
func (h Handler) loadIdeal(ctx context.Context, key string) (Ideal, error) {
	obj, err := h.s3c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.cfg.IdealFileBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ideal file 's3://%s/%s': %w", h.cfg.IdealFileBucket, key, err)
	}

	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ideal file: %w", err)
	}

	return ParseIdeal(data)
}

// report invokes the reporting function without waiting for it.
func (h Handler) report(ctx context.Context, rows []Row) error {
	payload, err := json.Marshal(map[string]any{"misconfigurations": rows})
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	out, err := h.lmbc.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(h.cfg.ReportingFunction),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("failed to invoke reporting function: %w", err)
	}

	h.logs.Info("reported misconfigurations",
		zap.String("function", h.cfg.ReportingFunction), zap.Int32("status_code", out.StatusCode))

	return nil
}

// moduleName for naming conventions.
const moduleName = "cldrift"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/"+moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(s3.NewFromConfig, fx.As(new(S3)))),
		fx.Provide(fx.Annotate(lambda.NewFromConfig, fx.As(new(Lambda)))),
		fx.Provide(fx.Annotate(athena.NewFromConfig, fx.As(new(AthenaAPI)))),
		fx.Provide(fx.Annotate(NewAthena, fx.As(new(Querier)))),
		fx.Provide(New),
		fx.Provide(func(h *Handler) cllambda.Handler[Input, Output] { return h }),
	)
}

// TestProvide dependency setup.
func TestProvide() fx.Option {
	return cllambda.TestProvide(shared())
}

// Provide dependency setup.
func Provide(version string) fx.Option {
	return cllambda.Lambda[Input, Output](version, shared())
}

// QueryProvide provides only the query building and running, for use outside of Lambda.
func QueryProvide() fx.Option {
	return fx.Module(moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(athena.NewFromConfig, fx.As(new(AthenaAPI)))),
		fx.Provide(NewAthena),
	)
}
