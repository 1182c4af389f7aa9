package clcdk

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// NewInstancedStack creates the stack for a component. The "instance" context variable allows different
// copies of the stack to exist in the same AWS account, the "environment" context variable is reported
// in the description and tags. The account and region are taken from the CDK cli environment, the region
// falls back to the main region of the conventions.
func NewInstancedStack(scope constructs.Construct, conv Conventions, component string) awscdk.Stack {
	instance, env := InstanceFromScope(scope), EnvironmentFromScope(scope)

	region := os.Getenv("CDK_DEFAULT_REGION")
	if region == "" {
		region = conv.MainRegion()
	}

	stack := awscdk.NewStack(scope,
		jsii.String(conv.StackName(component, instance)),
		&awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: envOrNil("CDK_DEFAULT_ACCOUNT"),
				Region:  jsii.String(region),
			},
			Description: jsii.String(fmt.Sprintf("%s %s (env: %s, instance: %d)",
				conv.Qualifier(), component, env, instance)),
			Synthesizer: awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
				Qualifier: jsii.String(strings.ToLower(conv.Qualifier())),
			}),
		})

	awscdk.Tags_Of(stack).Add(jsii.String("Environment"), jsii.String(env), nil)
	awscdk.Tags_Of(stack).Add(jsii.String("Component"), jsii.String(component), nil)

	return stack
}

// InstanceFromScope retrieves the instance number from the context, or zero.
func InstanceFromScope(s constructs.Construct) int {
	nrv := ContextString(s, "instance", "0")

	n, err := strconv.Atoi(nrv)
	if err != nil {
		panic("instance number isn't a number: " + nrv)
	}

	return n
}

// EnvironmentFromScope retrieves the environment from the context, or "dev".
func EnvironmentFromScope(s constructs.Construct) string {
	return ContextString(s, "environment", "dev")
}

// envOrNil returns the environment variable, or nil when it is empty.
func envOrNil(name string) *string {
	if v := os.Getenv(name); v != "" {
		return jsii.String(v)
	}

	return nil
}
