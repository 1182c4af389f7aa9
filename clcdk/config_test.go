package clcdk_test

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("config", func() {
	It("should copy without changing the original", func() {
		stag1 := clcdk.NewStagingConfig()
		stag2 := stag1.Copy(clcdk.WithLambdaApplicationLogLevel(jsii.String("INFO")))

		Expect(*stag1.LambdaApplicationLogLevel()).To(Equal("DEBUG")) // should not have changed
		Expect(*stag2.LambdaApplicationLogLevel()).To(Equal("INFO"))  // should have changed
		Expect(*stag2.LambdaSystemLogLevel()).To(Equal("DEBUG"))      // should not have changed
	})

	It("should select config per environment", func() {
		Expect(clcdk.ConfigForEnvironment("prod").LogRetention()).To(Equal(awslogs.RetentionDays_ONE_MONTH))
		Expect(clcdk.ConfigForEnvironment("prod").LambdaReservedConcurrency()).To(BeNil())
		Expect(clcdk.ConfigForEnvironment("dev").LogRetention()).To(Equal(awslogs.RetentionDays_FIVE_DAYS))
		Expect(*clcdk.ConfigForEnvironment("dev").LambdaMemorySize()).To(Equal(256.0))
	})
})
