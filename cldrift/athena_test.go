package cldrift_test

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/crewlinker/clawsnip/cldrift"
	"github.com/samber/lo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
)

// fakeAthena returns the scripted states and result pages in order.
type fakeAthena struct {
	started []*athena.StartQueryExecutionInput
	states  []types.QueryExecutionState
	pages   []*athena.GetQueryResultsOutput
	tokens  []*string
	polls   int
}

func (f *fakeAthena) StartQueryExecution(
	_ context.Context, in *athena.StartQueryExecutionInput, _ ...func(*athena.Options),
) (*athena.StartQueryExecutionOutput, error) {
	f.started = append(f.started, in)

	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("qe1")}, nil
}

func (f *fakeAthena) GetQueryExecution(
	_ context.Context, _ *athena.GetQueryExecutionInput, _ ...func(*athena.Options),
) (*athena.GetQueryExecutionOutput, error) {
	state := types.QueryExecutionStateSucceeded
	if f.polls < len(f.states) {
		state = f.states[f.polls]
	}

	f.polls++

	return &athena.GetQueryExecutionOutput{QueryExecution: &types.QueryExecution{
		Status: &types.QueryExecutionStatus{State: state, StateChangeReason: aws.String("syntax error")},
	}}, nil
}

func (f *fakeAthena) GetQueryResults(
	_ context.Context, in *athena.GetQueryResultsInput, _ ...func(*athena.Options),
) (*athena.GetQueryResultsOutput, error) {
	f.tokens = append(f.tokens, in.NextToken)
	if len(f.pages) == 0 {
		return nil, errors.New("no more pages")
	}

	page := f.pages[0]
	f.pages = f.pages[1:]

	return page, nil
}

func resultRow(vals ...string) types.Row {
	return types.Row{Data: lo.Map(vals, func(v string, _ int) types.Datum {
		return types.Datum{VarCharValue: aws.String(v)}
	})}
}

var _ = Describe("athena", func() {
	var api *fakeAthena
	var ath *cldrift.Athena

	BeforeEach(func() {
		api = &fakeAthena{}
		ath = cldrift.NewAthena(cldrift.Config{
			Database:             "paas-config-mgmt",
			AthenaWorkGroup:      "primary",
			AthenaOutputLocation: "s3://results/",
			PollInterval:         time.Millisecond,
		}, zap.NewNop(), api)
	})

	It("should wait for the query and map rows by header", func(ctx context.Context) {
		api.states = []types.QueryExecutionState{types.QueryExecutionStateQueued, types.QueryExecutionStateRunning}
		api.pages = []*athena.GetQueryResultsOutput{
			{
				ResultSet: &types.ResultSet{Rows: []types.Row{
					resultRow("key", "value"),
					resultRow("Timezone", "CET"),
				}},
				NextToken: aws.String("p2"),
			},
			{
				ResultSet: &types.ResultSet{Rows: []types.Row{
					resultRow("NTP", "c.ntp"),
				}},
			},
		}

		rows, err := ath.Query(ctx, "SELECT 1")
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(Equal([]cldrift.Row{
			{"key": "Timezone", "value": "CET"},
			{"key": "NTP", "value": "c.ntp"},
		}))

		Expect(api.polls).To(Equal(3))
		Expect(api.tokens).To(HaveLen(2))
		Expect(api.tokens[0]).To(BeNil())
		Expect(*api.tokens[1]).To(Equal("p2"))

		Expect(api.started).To(HaveLen(1))
		Expect(*api.started[0].QueryString).To(Equal("SELECT 1"))
		Expect(*api.started[0].QueryExecutionContext.Database).To(Equal("paas-config-mgmt"))
		Expect(*api.started[0].WorkGroup).To(Equal("primary"))
		Expect(*api.started[0].ResultConfiguration.OutputLocation).To(Equal("s3://results/"))
	})

	It("should return an empty list when there are only headers", func(ctx context.Context) {
		api.pages = []*athena.GetQueryResultsOutput{
			{ResultSet: &types.ResultSet{Rows: []types.Row{resultRow("key", "value")}}},
		}

		Expect(ath.Query(ctx, "SELECT 1")).To(Equal([]cldrift.Row{}))
	})

	DescribeTable("failed queries", func(ctx context.Context, state types.QueryExecutionState) {
		api.states = []types.QueryExecutionState{state}

		_, err := ath.Query(ctx, "SELECT 1")
		Expect(err).To(MatchError(cldrift.ErrQueryFailed))
		Expect(err).To(MatchError(ContainSubstring("syntax error")))
	},
		Entry("failed", types.QueryExecutionStateFailed),
		Entry("cancelled", types.QueryExecutionStateCancelled),
	)

	It("should stop waiting when the context is done", func(ctx context.Context) {
		api.states = lo.Times(10000, func(int) types.QueryExecutionState { return types.QueryExecutionStateRunning })

		ctx, cancel := context.WithTimeout(ctx, time.Millisecond*20)
		defer cancel()

		_, err := ath.Query(ctx, "SELECT 1")
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
