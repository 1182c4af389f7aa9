package clstacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsconfig"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
)

// NewOPAConfigRuleStack deploys an AWS Config custom rule that evaluates S3 buckets with an OPA policy
// that is read from the assets bucket. The policy is configured with the "rego-policy-key",
// "opa-package" and "opa-rule" context.
func NewOPAConfigRuleStack(stack awscdk.Stack, cfg clcdk.Config, code clcdk.CodeFunc) awsconfig.CustomRule {
	assets := awss3.NewBucket(stack, jsii.String("Assets"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(true),
	})

	handler := clcdk.WithNativeLambda(stack, "Evaluator", cfg, code("clopa"), &map[string]*string{
		"CLOPA_ENGINE": jsii.String("rego"),
	}, nil)

	assets.GrantRead(handler, nil)
	handler.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("config:PutEvaluations"),
		Resources: jsii.Strings("*"),
	}))

	return awsconfig.NewCustomRule(stack, jsii.String("Rule"), &awsconfig.CustomRuleProps{
		LambdaFunction:       handler,
		ConfigurationChanges: jsii.Bool(true),
		RuleScope:            awsconfig.RuleScope_FromResources(&[]awsconfig.ResourceType{awsconfig.ResourceType_S3_BUCKET()}),
		InputParameters: &map[string]any{
			"ASSETS_BUCKET":           assets.BucketName(),
			"REGO_POLICIES_PREFIX":    jsii.String(clcdk.ContextString(stack, "rego-policies-prefix", "policies/")),
			"REGO_POLICY_KEY":         jsii.String(clcdk.ContextString(stack, "rego-policy-key", "s3_versioning.rego")),
			"OPA_POLICY_PACKAGE_NAME": jsii.String(clcdk.ContextString(stack, "opa-package", "s3.versioning")),
			"OPA_POLICY_RULE_TO_EVAL": jsii.String(clcdk.ContextString(stack, "opa-rule", "compliant")),
		},
	})
}
