package clstacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
)

// NewOrgSSMStack deploys the lambdas that track new and invited accounts of the organization, and the
// topic on which the accounts are announced.
func NewOrgSSMStack(stack awscdk.Stack, cfg clcdk.Config, code clcdk.CodeFunc) awssns.Topic {
	topic := awssns.NewTopic(stack, jsii.String("Accounts"), &awssns.TopicProps{
		DisplayName: jsii.String("Organization accounts for Systems Manager"),
	})

	status := clcdk.WithNativeLambda(stack, "AccountStatus", cfg, code("accountstatus"), nil, nil)
	status.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("organizations:DescribeCreateAccountStatus"),
		Resources: jsii.Strings("*"),
	}))

	invitation := clcdk.WithNativeLambda(stack, "Invitation", cfg, code("invitation"), nil, nil)
	awsevents.NewRule(stack, jsii.String("AccountEvents"), &awsevents.RuleProps{
		EventPattern: &awsevents.EventPattern{
			Source:     jsii.Strings("aws.organizations"),
			DetailType: jsii.Strings("AWS API Call via CloudTrail"),
			Detail: &map[string]any{
				"eventName": []string{"InviteAccountToOrganization", "CreateAccount"},
			},
		},
		Targets: &[]awsevents.IRuleTarget{awseventstargets.NewLambdaFunction(invitation, nil)},
	})

	publish := clcdk.WithNativeLambda(stack, "PublishAccount", cfg, code("publishaccount"), &map[string]*string{
		"SNS_ARN": topic.TopicArn(),
	}, nil)
	topic.GrantPublish(publish)

	return topic
}
