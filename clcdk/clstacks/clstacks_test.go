package clstacks_test

import (
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
	"github.com/crewlinker/clawsnip/clcdk/clstacks"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestClstacks(t *testing.T) {
	t.Parallel()

	RegisterFailHandler(Fail)
	RunSpecs(t, "clcdk/clstacks")
}

func testCode(string) awslambda.Code {
	return awslambda.AssetCode_FromAsset(jsii.String(filepath.Join("testdata", "pkg")), nil)
}

var _ = Describe("stacks", func() {
	var app awscdk.App
	var stack awscdk.Stack
	var cfg clcdk.Config

	BeforeEach(func() {
		app = awscdk.NewApp(nil)
		cfg = clcdk.NewStagingConfig()
	})

	Describe("cloudtrail lake", func() {
		It("should take parameters when context is missing", func() {
			stack = awscdk.NewStack(app, jsii.String("Lake1"), nil)
			clstacks.NewCloudTrailLakeStack(stack, cfg, testCode)

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.HasParameter(jsii.String("CloudtraillakeEventDataStoreArn"), map[string]any{
				"AllowedPattern": "^arn:aws:cloudtrail:.*",
			})
			tmpl.HasParameter(jsii.String("NotifyEmailAddress"), map[string]any{"Type": "String"})
			tmpl.ResourceCountIs(jsii.String("AWS::StepFunctions::StateMachine"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::SNS::Subscription"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::KMS::Key"), jsii.Number(1))
		})

		It("should use the context", func() {
			app.Node().SetContext(jsii.String("event-data-store"), jsii.String("arn:aws:cloudtrail:eu-west-1:111:eventdatastore/abc"))
			app.Node().SetContext(jsii.String("notify-email"), jsii.String("ops@example.com"))
			stack = awscdk.NewStack(app, jsii.String("Lake2"), nil)
			clstacks.NewCloudTrailLakeStack(stack, cfg, testCode)

			tmpl := assertions.Template_FromStack(stack, nil)
			Expect(*tmpl.FindParameters(jsii.String("NotifyEmailAddress"), nil)).To(BeEmpty())
			Expect(*tmpl.FindParameters(jsii.String("CloudtraillakeEventDataStoreArn"), nil)).To(BeEmpty())
			tmpl.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
				"Timeout": 300,
				"Environment": map[string]any{"Variables": map[string]any{
					"CLCTLAKE_EVENT_DATA_STORE": "arn:aws:cloudtrail:eu-west-1:111:eventdatastore/abc",
				}},
			})
			tmpl.HasResourceProperties(jsii.String("AWS::SNS::Subscription"), map[string]any{
				"Protocol": "email",
				"Endpoint": "ops@example.com",
			})
		})
	})

	Describe("opa config rule", func() {
		It("should deploy a custom rule", func() {
			stack = awscdk.NewStack(app, jsii.String("Opa1"), nil)
			rule := clstacks.NewOPAConfigRuleStack(stack, cfg, testCode)
			Expect(rule).ToNot(BeNil())

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::Config::ConfigRule"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String("AWS::Config::ConfigRule"), map[string]any{
				"Scope": map[string]any{"ComplianceResourceTypes": []any{"AWS::S3::Bucket"}},
				"InputParameters": assertions.Match_ObjectLike(&map[string]any{
					"REGO_POLICY_KEY":         "s3_versioning.rego",
					"OPA_POLICY_PACKAGE_NAME": "s3.versioning",
					"OPA_POLICY_RULE_TO_EVAL": "compliant",
				}),
			})
		})
	})

	Describe("drift", func() {
		It("should schedule the detector daily", func() {
			app.Node().SetContext(jsii.String("reporting-function"), jsii.String("arn:aws:lambda:eu-west-1:111:function:report"))
			stack = awscdk.NewStack(app, jsii.String("Drift1"), nil)
			clstacks.NewDriftStack(stack, cfg, testCode)

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(2))
			tmpl.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]any{
				"ScheduleExpression": "rate(1 day)",
			})
			tmpl.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]any{
				"Environment": map[string]any{"Variables": assertions.Match_ObjectLike(&map[string]any{
					"CLDRIFT_DATABASE":           "paas-config-mgmt",
					"CLDRIFT_TABLE":              "inventory",
					"CLDRIFT_REPORTING_FUNCTION": "arn:aws:lambda:eu-west-1:111:function:report",
				})},
			})
		})
	})

	Describe("organization accounts", func() {
		It("should deploy the account lambdas", func() {
			stack = awscdk.NewStack(app, jsii.String("Org1"), nil)
			clstacks.NewOrgSSMStack(stack, cfg, testCode)

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::Lambda::Function"), jsii.Number(3))
			tmpl.ResourceCountIs(jsii.String("AWS::SNS::Topic"), jsii.Number(1))
			tmpl.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]any{
				"EventPattern": map[string]any{
					"source":      []any{"aws.organizations"},
					"detail-type": []any{"AWS API Call via CloudTrail"},
					"detail": map[string]any{
						"eventName": []any{"InviteAccountToOrganization", "CreateAccount"},
					},
				},
			})
		})
	})

	Describe("service catalog", func() {
		It("should register the portfolio", func() {
			stack = awscdk.NewStack(app, jsii.String("Catalog1"), nil)
			clstacks.NewServiceCatalogStack(stack)

			tmpl := assertions.Template_FromStack(stack, nil)
			tmpl.ResourceCountIs(jsii.String("AWS::ServiceCatalog::Portfolio"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::ServiceCatalog::CloudFormationProduct"), jsii.Number(1))
			tmpl.ResourceCountIs(jsii.String("AWS::ServiceCatalog::TagOption"), jsii.Number(3))
			tmpl.HasResourceProperties(jsii.String("AWS::ServiceCatalog::Portfolio"), map[string]any{
				"Description": "Portfolio with approved list of developer tools products",
			})
		})
	})
})
