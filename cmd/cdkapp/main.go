// Package main synthesizes the CDK app that deploys the automations.
package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/crewlinker/clawsnip/clcdk"
	"github.com/crewlinker/clawsnip/clcdk/clstacks"
)

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)
	conv := clcdk.NewConventions("Clawsnip", "eu-west-1")
	cfg := clcdk.ConfigForEnvironment(clcdk.EnvironmentFromScope(app))
	code := clcdk.PackageCode(conv.BuildDir())

	clstacks.NewCloudTrailLakeStack(clcdk.NewInstancedStack(app, conv, "CloudtrailLake"), cfg, code)
	clstacks.NewOPAConfigRuleStack(clcdk.NewInstancedStack(app, conv, "OpaConfigRule"), cfg, code)
	clstacks.NewDriftStack(clcdk.NewInstancedStack(app, conv, "Drift"), cfg, code)
	clstacks.NewOrgSSMStack(clcdk.NewInstancedStack(app, conv, "OrgSsm"), cfg, code)
	clstacks.NewServiceCatalogStack(clcdk.NewInstancedStack(app, conv, "ServiceCatalog"))

	app.Synth(nil)
}
