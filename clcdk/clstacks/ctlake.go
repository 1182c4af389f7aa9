package clstacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsstepfunctionstasks"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
	"github.com/crewlinker/clawsnip/clctlake"
)

// NewCloudTrailLakeStack deploys the query Lambda with a state machine that runs a query and sends the
// results to an e-mail address. The event data store and address are read from the "event-data-store" and
// "notify-email" context, or become stack parameters when not set.
func NewCloudTrailLakeStack(
	stack awscdk.Stack, cfg clcdk.Config, code clcdk.CodeFunc,
) awsstepfunctions.StateMachine {
	eds := clcdk.ContextString(stack, "event-data-store", "")
	if eds == "" {
		eds = *awscdk.NewCfnParameter(stack, jsii.String("CloudtraillakeEventDataStoreArn"), &awscdk.CfnParameterProps{
			Type:           jsii.String("String"),
			AllowedPattern: jsii.String(`^arn:aws:cloudtrail:.*`),
			Description: jsii.String("The ARN of the CloudTrail Lake Event Data Store. Permission will be given " +
				"to the Lambda function to query this event data store."),
		}).ValueAsString()
	}

	email := clcdk.ContextString(stack, "notify-email", "")
	if email == "" {
		email = *awscdk.NewCfnParameter(stack, jsii.String("NotifyEmailAddress"), &awscdk.CfnParameterProps{
			Type:           jsii.String("String"),
			AllowedPattern: jsii.String(`.+@.+`),
			Description:    jsii.String("The email address which will receive the query results."),
		}).ValueAsString()
	}

	handler := clcdk.WithNativeLambda(stack, "CloudtraillakeQuery",
		cfg.Copy(clcdk.WithLambdaTimeout(awscdk.Duration_Minutes(jsii.Number(5)))), //nolint:gomnd
		code("clctlake"), &map[string]*string{
			"CLCTLAKE_EVENT_DATA_STORE": jsii.String(eds),
		}, nil)

	handler.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("cloudtrail:StartQuery", "cloudtrail:GetQueryResults"),
		Resources: jsii.Strings(eds),
	}))

	key := awskms.NewKey(stack, jsii.String("NotifyKey"), &awskms.KeyProps{
		EnableKeyRotation: jsii.Bool(true),
	})

	topic := awssns.NewTopic(stack, jsii.String("Notify"), &awssns.TopicProps{MasterKey: key})
	topic.AddSubscription(awssnssubscriptions.NewEmailSubscription(jsii.String(email), nil))

	query := awsstepfunctionstasks.NewLambdaInvoke(stack, jsii.String("Query"),
		&awsstepfunctionstasks.LambdaInvokeProps{
			LambdaFunction: handler,
			Payload: awsstepfunctions.TaskInput_FromObject(&map[string]any{
				"EventDataStore": clctlake.FromEnv,
				"QueryStatement": awsstepfunctions.JsonPath_StringAt(jsii.String("$.QueryStatement")),
			}),
			OutputPath: jsii.String("$.Payload"),
		})

	report := awsstepfunctionstasks.NewSnsPublish(stack, jsii.String("SendReport"),
		&awsstepfunctionstasks.SnsPublishProps{
			Topic: topic,
			Message: awsstepfunctions.TaskInput_FromText(awsstepfunctions.JsonPath_JsonToString(
				awsstepfunctions.JsonPath_StringAt(jsii.String("$.body")))),
		})

	machine := awsstepfunctions.NewStateMachine(stack, jsii.String("CloudtraillakeOrchestrator"),
		&awsstepfunctions.StateMachineProps{
			DefinitionBody: awsstepfunctions.DefinitionBody_FromChainable(query.Next(report)),
			Timeout:        awscdk.Duration_Minutes(jsii.Number(30)), //nolint:gomnd
		})

	key.GrantEncryptDecrypt(machine.Role())

	return machine
}
