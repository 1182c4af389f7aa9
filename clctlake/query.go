// Package clctlake implements a Lambda that runs CloudTrail Lake queries to completion.
package clctlake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/crewlinker/clawsnip/cllambda"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// FromEnv can be passed as the event data store to use the one configured in the environment.
const FromEnv = "FROM_ENV"

var (
	// ErrQueryFailed is returned when the query reaches a terminal state other than finished.
	ErrQueryFailed = errors.New("query failed")
	// ErrTooManyPolls is returned when the query did not finish within the configured number of polls.
	ErrTooManyPolls = errors.New("too many polls")
)

type (
	// Input into the handler.
	Input struct {
		EventDataStore    string            `json:"EventDataStore"`
		QueryStatement    string            `json:"QueryStatement"`
		QueryFormatParams map[string]string `json:"QueryFormatParams,omitempty"`
	}
	// Output of the handler. Body holds the result rows, or a JSON string naming the missing parameter.
	Output struct {
		StatusCode int `json:"statusCode"`
		Body       any `json:"body"`
	}
	// Row is a single result row, each column is a map with a single key/value pair.
	Row = []map[string]string
)

// Config configures the handler from env.
type Config struct {
	// EventDataStore is used when the input asks for it with FROM_ENV.
	EventDataStore string `env:"EVENT_DATA_STORE"`
	// MaxQueryResults is the page size when reading results.
	MaxQueryResults int32 `env:"MAX_QUERY_RESULTS" envDefault:"100" validate:"min=1,max=1000"`
	// PollInterval is the time to wait between polls while the query is queued or running.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	// MaxPolls bounds the number of polls, zero means unbounded.
	MaxPolls int `env:"MAX_POLLS" envDefault:"0" validate:"min=0"`
}

// CloudTrail provides the query api of CloudTrail Lake.
type CloudTrail interface {
	StartQuery(
		ctx context.Context, params *cloudtrail.StartQueryInput, optFns ...func(*cloudtrail.Options),
	) (*cloudtrail.StartQueryOutput, error)
	GetQueryResults(
		ctx context.Context, params *cloudtrail.GetQueryResultsInput, optFns ...func(*cloudtrail.Options),
	) (*cloudtrail.GetQueryResultsOutput, error)
}

// Handler runs CloudTrail Lake queries.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	ctc  CloudTrail
}

// New inits the handler.
func New(cfg Config, logs *zap.Logger, ctc CloudTrail) *Handler {
	return &Handler{cfg: cfg, logs: logs, ctc: ctc}
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (out Output, err error) {
	if missing := missingParameter(in); missing != "" {
		h.logs.Info("missing parameter", zap.String("parameter", missing))

		return Output{
			StatusCode: 400,
			Body:       fmt.Sprintf(`{"MissingParameter": %q}`, missing),
		}, nil
	}

	eds := in.EventDataStore
	if eds == FromEnv {
		eds = h.cfg.EventDataStore
	}

	stmt := in.QueryStatement
	if in.QueryFormatParams != nil {
		if stmt, err = FormatStatement(stmt, in.QueryFormatParams); err != nil {
			return out, fmt.Errorf("failed to format statement: %w", err)
		}
	}

	rows, err := h.Query(ctx, eds, stmt)
	if err != nil {
		return out, err
	}

	h.logs.Info("CloudTrail Lake Query",
		zap.Int("total_results", len(rows)),
		zap.String("query_statement", stmt),
		zap.String("event_data_store", eds))

	return Output{StatusCode: 200, Body: rows}, nil
}

// missingParameter returns the name of the first required parameter that is empty.
func missingParameter(in Input) string {
	switch {
	case in.EventDataStore == "":
		return "EventDataStore"
	case in.QueryStatement == "":
		return "QueryStatement"
	default:
		return ""
	}
}

// Query starts the statement and reads all result pages once the query finished.
func (h Handler) Query(ctx context.Context, eds, stmt string) (rows []Row, err error) {
	started, err := h.ctc.StartQuery(ctx, &cloudtrail.StartQueryInput{QueryStatement: aws.String(stmt)})
	if err != nil {
		return nil, fmt.Errorf("failed to start query: %w", err)
	}

	logs := h.logs.With(zap.String("query_id", aws.ToString(started.QueryId)))
	logs.Info("query started")

	rows = []Row{}

	var token *string

	for polls := 1; ; polls++ {
		if h.cfg.MaxPolls > 0 && polls > h.cfg.MaxPolls {
			return nil, fmt.Errorf("%w: gave up after %d polls", ErrTooManyPolls, h.cfg.MaxPolls)
		}

		res, err := h.ctc.GetQueryResults(ctx, &cloudtrail.GetQueryResultsInput{
			EventDataStore:  aws.String(eds), //nolint:staticcheck
			QueryId:         started.QueryId,
			MaxQueryResults: aws.Int32(h.cfg.MaxQueryResults),
			NextToken:       token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get query results: %w", err)
		}

		switch res.QueryStatus {
		case types.QueryStatusFinished:
		case types.QueryStatusFailed, types.QueryStatusCancelled, types.QueryStatusTimedOut:
			return nil, fmt.Errorf("%w: status '%s': %s", ErrQueryFailed, res.QueryStatus, aws.ToString(res.ErrorMessage))
		default:
			logs.Debug("query not finished", zap.String("status", string(res.QueryStatus)), zap.Int("poll", polls))

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to wait for query: %w", ctx.Err())
			case <-time.After(h.cfg.PollInterval):
			}

			continue
		}

		rows = append(rows, res.QueryResultRows...)
		if res.NextToken == nil {
			break
		}

		token = res.NextToken
	}

	return rows, nil
}

// moduleName for naming conventions.
const moduleName = "clctlake"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/"+moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(cloudtrail.NewFromConfig, fx.As(new(CloudTrail)))),
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
