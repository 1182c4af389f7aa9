package clcdk_test

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("stack", Serial, func() {
	var app awscdk.App
	var conv clcdk.Conventions

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		conv = clcdk.NewConventions("ClFoo", "eu-west-1")

		os.Setenv("CDK_DEFAULT_ACCOUNT", "1111111")
		os.Setenv("CDK_DEFAULT_REGION", "eu-foo-1")
		DeferCleanup(os.Unsetenv, "CDK_DEFAULT_ACCOUNT")
		DeferCleanup(os.Unsetenv, "CDK_DEFAULT_REGION")
	})

	It("should create an instanced stack with instance context", func() {
		app.Node().SetContext(jsii.String("instance"), jsii.String("1"))
		app.Node().SetContext(jsii.String("environment"), jsii.String("prod"))

		stack := clcdk.NewInstancedStack(app, conv, "Drift")
		tmpl := assertions.Template_FromStack(stack, nil)
		data := *tmpl.ToJSON()

		Expect(*stack.Node().Id()).To(Equal("ClFooDrift1"))
		Expect(data["Description"]).To(Equal("ClFoo Drift (env: prod, instance: 1)"))
		Expect(*awscdk.Stack_Of(stack).Account()).To(Equal("1111111"))
		Expect(*awscdk.Stack_Of(stack).Region()).To(Equal("eu-foo-1"))
	})

	// bootstrapping and synth without context should not panic
	It("should default without instance context", func() {
		os.Unsetenv("CDK_DEFAULT_REGION")

		stack := clcdk.NewInstancedStack(app, conv, "Drift")
		tmpl := assertions.Template_FromStack(stack, nil)
		data := *tmpl.ToJSON()

		Expect(*stack.Node().Id()).To(Equal("ClFooDrift0"))
		Expect(data["Description"]).To(Equal("ClFoo Drift (env: dev, instance: 0)"))
		Expect(*awscdk.Stack_Of(stack).Region()).To(Equal("eu-west-1"))
	})

	It("should panic on a malformed instance", func() {
		app.Node().SetContext(jsii.String("instance"), jsii.String("one"))
		Expect(func() { clcdk.NewInstancedStack(app, conv, "Drift") }).To(PanicWith(ContainSubstring("isn't a number")))
	})
})
