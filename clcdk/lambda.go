package clcdk

import (
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// sub-set of the total interface for lamba config.
type lambdaConfig interface {
	LogRetention() awslogs.RetentionDays
	LambdaTimeout() awscdk.Duration
	LambdaMemorySize() *float64
	LambdaReservedConcurrency() *float64
	LambdaProvisionedConcurrency() *float64
	LambdaApplicationLogLevel() *string
	LambdaSystemLogLevel() *string
}

// WithNativeLambda creates a lambda for code that compiles Natively (such as Go). It returns the
// default alias.
func WithNativeLambda(
	scope constructs.Construct,
	name ScopeName,
	cfg lambdaConfig,
	code awslambda.Code,
	env *map[string]*string,
	logs awslogs.ILogGroup,
) awslambda.Alias {
	scope = name.ChildScope(scope)

	if logs == nil {
		logs = awslogs.NewLogGroup(scope, jsii.String("Logs"), &awslogs.LogGroupProps{
			Retention: cfg.LogRetention(),
		})
	}

	handler := awslambda.NewFunction(scope, jsii.String("Handler"), &awslambda.FunctionProps{
		Code:                         code,
		Handler:                      jsii.String("bootstrap"),
		Runtime:                      awslambda.Runtime_PROVIDED_AL2023(),
		Timeout:                      cfg.LambdaTimeout(),
		MemorySize:                   cfg.LambdaMemorySize(),
		ReservedConcurrentExecutions: cfg.LambdaReservedConcurrency(),
		Architecture:                 awslambda.Architecture_ARM_64(),
		Tracing:                      awslambda.Tracing_ACTIVE,

		LogGroup:            logs,
		LogFormat:           jsii.String("JSON"),
		ApplicationLogLevel: cfg.LambdaApplicationLogLevel(),
		SystemLogLevel:      cfg.LambdaSystemLogLevel(),
		Environment:         env,
	})

	return awslambda.NewAlias(scope, jsii.String("Alias"), &awslambda.AliasProps{
		AliasName:                       jsii.String("Default"),
		Version:                         handler.CurrentVersion(),
		ProvisionedConcurrentExecutions: cfg.LambdaProvisionedConcurrency(),
	})
}

// CodeFunc returns the code for the lambda package with the given name.
type CodeFunc func(pkg string) awslambda.Code

// PackageCode returns the code assets of the lambda packages that are build by the magefiles.
func PackageCode(buildDir string) CodeFunc {
	return func(pkg string) awslambda.Code {
		return awslambda.AssetCode_FromAsset(jsii.String(filepath.Join(buildDir, pkg, "pkg.zip")), nil)
	}
}
