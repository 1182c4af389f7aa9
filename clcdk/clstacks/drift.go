package clstacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
	"github.com/crewlinker/clawsnip/cldrift"
)

// NewDriftStack deploys the drift detector on a daily schedule. The inventory table and settings group
// are read from the "inventory-table" and "settings-group" context, a reporting function can be
// configured with the "reporting-function" context.
func NewDriftStack(stack awscdk.Stack, cfg clcdk.Config, code clcdk.CodeFunc) awslambda.Alias {
	ideal := awss3.NewBucket(stack, jsii.String("Ideal"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(true),
	})

	results := awss3.NewBucket(stack, jsii.String("AthenaResults"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
		LifecycleRules: &[]*awss3.LifecycleRule{{
			Expiration: awscdk.Duration_Days(jsii.Number(7)), //nolint:gomnd
		}},
	})

	env := map[string]*string{
		"CLDRIFT_IDEAL_FILE_S3_BUCKET":   ideal.BucketName(),
		"CLDRIFT_DATABASE":               jsii.String(cldrift.DefaultDatabase),
		"CLDRIFT_TABLE":                  jsii.String(clcdk.ContextString(stack, "inventory-table", "inventory")),
		"CLDRIFT_SETTINGS_GROUP":         jsii.String(clcdk.ContextString(stack, "settings-group", "default")),
		"CLDRIFT_ATHENA_OUTPUT_LOCATION": results.S3UrlForObject(jsii.String("results/")),
	}

	reporting := clcdk.ContextString(stack, "reporting-function", "")
	if reporting != "" {
		env["CLDRIFT_REPORTING_FUNCTION"] = jsii.String(reporting)
	}

	handler := clcdk.WithNativeLambda(stack, "Detector",
		cfg.Copy(clcdk.WithLambdaTimeout(awscdk.Duration_Minutes(jsii.Number(5)))), //nolint:gomnd
		code("cldrift"), &env, nil)

	ideal.GrantRead(handler, nil)
	results.GrantReadWrite(handler, nil)
	handler.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"athena:StartQueryExecution", "athena:GetQueryExecution", "athena:GetQueryResults",
			"glue:GetDatabase", "glue:GetTable", "glue:GetPartitions",
		),
		Resources: jsii.Strings("*"),
	}))

	if reporting != "" {
		handler.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Actions:   jsii.Strings("lambda:InvokeFunction"),
			Resources: jsii.Strings(reporting),
		}))
	}

	awsevents.NewRule(stack, jsii.String("Schedule"), &awsevents.RuleProps{
		Schedule: awsevents.Schedule_Rate(awscdk.Duration_Days(jsii.Number(1))),
		Targets:  &[]awsevents.IRuleTarget{awseventstargets.NewLambdaFunction(handler, nil)},
	})

	return handler
}
