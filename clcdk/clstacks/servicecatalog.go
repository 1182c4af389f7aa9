// Package clstacks holds the CDK stacks that deploy the automation components.
package clstacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsservicecatalog"
	"github.com/aws/jsii-runtime-go"
)

// NewServiceCatalogStack registers a portfolio with a product that deploys an S3 bucket.
func NewServiceCatalogStack(stack awscdk.Stack) awsservicecatalog.Portfolio {
	portfolio := awsservicecatalog.NewPortfolio(stack, jsii.String("DevToolsPortfolio"),
		&awsservicecatalog.PortfolioProps{
			DisplayName:  jsii.String("DevTools Portfolio"),
			Description:  jsii.String("Portfolio with approved list of developer tools products"),
			ProviderName: jsii.String("Central Admin Team"),
		})

	// the product is deployed from a stack of its own
	pstack := awsservicecatalog.NewProductStack(stack, jsii.String("S3Product"), nil)
	awss3.NewBucket(pstack, jsii.String("ServiceCatalogTestBucket"), &awss3.BucketProps{
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		EnforceSSL:        jsii.Bool(true),
	})

	product := awsservicecatalog.NewCloudFormationProduct(stack, jsii.String("S3SampleStack"),
		&awsservicecatalog.CloudFormationProductProps{
			ProductName: jsii.String("S3CDKStack"),
			Owner:       jsii.String("Storage Team"),
			ProductVersions: &[]*awsservicecatalog.CloudFormationProductVersion{{
				CloudFormationTemplate: awsservicecatalog.CloudFormationTemplate_FromProductStack(pstack),
				ProductVersionName:     jsii.String("1.0"),
				Description:            jsii.String("Deploys an S3 Bucket"),
			}},
		})

	product.AssociateTagOptions(awsservicecatalog.NewTagOptions(stack, jsii.String("ProductTagOptions"),
		&awsservicecatalog.TagOptionsProps{
			AllowedValuesForTags: &map[string]*[]*string{
				"Environment": jsii.Strings("dev", "alpha", "prod"),
			},
		}))

	portfolio.AddProduct(product)

	return portfolio
}
