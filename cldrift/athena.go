package cldrift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	// ErrQueryFailed is returned when an Athena query failed or was cancelled.
	ErrQueryFailed = errors.New("query failed")
	// ErrUnsupportedValue is returned when the ideal configuration holds a value that can't be compared.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// Row is a single result row, mapping column names to values.
type Row map[string]string

// AthenaAPI provides the Athena query api.
type AthenaAPI interface {
	StartQueryExecution(
		ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options),
	) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(
		ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options),
	) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(
		ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options),
	) (*athena.GetQueryResultsOutput, error)
}

// Athena runs queries and parses their results.
type Athena struct {
	cfg  Config
	logs *zap.Logger
	api  AthenaAPI
}

// NewAthena inits the query runner.
func NewAthena(cfg Config, logs *zap.Logger, api AthenaAPI) *Athena {
	return &Athena{cfg: cfg, logs: logs.Named("athena"), api: api}
}

// Query runs the sql and returns all result rows.
func (a Athena) Query(ctx context.Context, sql string) ([]Row, error) {
	inp := &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(a.cfg.Database)},
		WorkGroup:             aws.String(a.cfg.AthenaWorkGroup),
	}

	if a.cfg.AthenaOutputLocation != "" {
		inp.ResultConfiguration = &types.ResultConfiguration{OutputLocation: aws.String(a.cfg.AthenaOutputLocation)}
	}

	started, err := a.api.StartQueryExecution(ctx, inp)
	if err != nil {
		return nil, fmt.Errorf("failed to start query execution: %w", err)
	}

	logs := a.logs.With(zap.String("query_execution_id", aws.ToString(started.QueryExecutionId)))
	logs.Info("query started", zap.String("sql", sql))

	if err := a.wait(ctx, logs, started.QueryExecutionId); err != nil {
		return nil, err
	}

	rows, header := []Row{}, []string(nil)

	pgn := athena.NewGetQueryResultsPaginator(a.api, &athena.GetQueryResultsInput{
		QueryExecutionId: started.QueryExecutionId,
	})
	for pgn.HasMorePages() {
		page, err := pgn.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get query results: %w", err)
		}

		if page.ResultSet == nil {
			continue
		}

		data := page.ResultSet.Rows
		if header == nil && len(data) > 0 {
			header, data = values(data[0]), data[1:]
		}

		for _, r := range data {
			rows = append(rows, lo.Associate(lo.Zip2(header, values(r)), func(t lo.Tuple2[string, string]) (string, string) {
				return t.A, t.B
			}))
		}
	}

	logs.Info("query finished", zap.Int("rows", len(rows)))

	return rows, nil
}

// wait polls the query execution until it reached a final state.
func (a Athena) wait(ctx context.Context, logs *zap.Logger, id *string) error {
	for {
		exec, err := a.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{QueryExecutionId: id})
		if err != nil {
			return fmt.Errorf("failed to get query execution: %w", err)
		}

		var state types.QueryExecutionState
		var reason string

		if exec.QueryExecution != nil && exec.QueryExecution.Status != nil {
			state = exec.QueryExecution.Status.State
			reason = aws.ToString(exec.QueryExecution.Status.StateChangeReason)
		}

		switch state {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			return fmt.Errorf("%w: state '%s': %s", ErrQueryFailed, state, reason)
		default:
			logs.Debug("query not finished", zap.String("state", string(state)))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to wait for query: %w", ctx.Err())
		case <-time.After(a.cfg.PollInterval):
		}
	}
}

// values returns the string values of a result row.
func values(r types.Row) []string {
	return lo.Map(r.Data, func(d types.Datum, _ int) string { return aws.ToString(d.VarCharValue) })
}
