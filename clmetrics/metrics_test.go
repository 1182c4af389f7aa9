package clmetrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/caarlos0/env/v10"
	"github.com/crewlinker/clawsnip/claws"
	"github.com/crewlinker/clawsnip/clmetrics"
	"github.com/crewlinker/clawsnip/clzap"
	"github.com/samber/lo"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestClmetrics(t *testing.T) {
	t.Parallel()
	RegisterFailHandler(Fail)
	RunSpecs(t, "clmetrics")
}

// fakeCloudWatch returns pages with the given number of metrics.
type fakeCloudWatch struct {
	pages  []int
	inputs []*cloudwatch.ListMetricsInput
	err    error
}

func (f *fakeCloudWatch) ListMetrics(
	_ context.Context, in *cloudwatch.ListMetricsInput, _ ...func(*cloudwatch.Options),
) (*cloudwatch.ListMetricsOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}

	out := &cloudwatch.ListMetricsOutput{
		Metrics: lo.Times(f.pages[0], func(int) types.Metric { return types.Metric{MetricName: aws.String("m")} }),
	}

	if f.pages = f.pages[1:]; len(f.pages) > 0 {
		out.NextToken = aws.String("next")
	}

	return out, nil
}

var _ = Describe("counter", func() {
	var cwc *fakeCloudWatch

	BeforeEach(func() {
		cwc = &fakeCloudWatch{pages: []int{500, 500, 12}}
	})

	It("should sum all pages", func(ctx context.Context) {
		Expect(clmetrics.New(clmetrics.Config{}, zap.NewNop(), cwc).Count(ctx)).To(Equal(1012))
		Expect(cwc.inputs).To(HaveLen(3))
		Expect(cwc.inputs[0].Namespace).To(BeNil())
		Expect(*cwc.inputs[2].NextToken).To(Equal("next"))
	})

	It("should filter by namespace", func(ctx context.Context) {
		Expect(clmetrics.New(clmetrics.Config{Namespace: "AWS/Lambda"}, zap.NewNop(), cwc).Count(ctx)).To(Equal(1012))
		Expect(*cwc.inputs[0].Namespace).To(Equal("AWS/Lambda"))
	})

	It("should count zero metrics", func(ctx context.Context) {
		cwc.pages = []int{0}
		Expect(clmetrics.New(clmetrics.Config{}, zap.NewNop(), cwc).Count(ctx)).To(Equal(0))
	})

	It("should return errors", func(ctx context.Context) {
		cwc.err = errors.New("denied")

		_, err := clmetrics.New(clmetrics.Config{}, zap.NewNop(), cwc).Count(ctx)
		Expect(err).To(MatchError(ContainSubstring("failed to list metrics: denied")))
	})
})

var _ = Describe("di", func() {
	var cnt *clmetrics.Counter

	BeforeEach(func(ctx context.Context) {
		app := fx.New(
			fx.Supply(env.Options{Environment: map[string]string{"CLMETRICS_NAMESPACE": "AWS/EC2"}}),
			clzap.TestProvide(),
			claws.Provide(),
			clmetrics.Provide(),
			fx.Populate(&cnt),
		)
		Expect(app.Start(ctx)).To(Succeed())
		DeferCleanup(app.Stop)
	})

	It("should provide the counter", func() {
		Expect(cnt).ToNot(BeNil())
	})
})
