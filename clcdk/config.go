package clcdk

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/jsii-runtime-go"
	"github.com/mitchellh/copystructure"
)

// Config describes the providing of resource configuration that is often convenient
// to be shared between branches of the resource tree.
type Config interface {
	Copy(opts ...ConfigOpt) Config

	LogRetention() awslogs.RetentionDays

	LambdaTimeout() awscdk.Duration
	LambdaMemorySize() *float64
	LambdaReservedConcurrency() *float64
	LambdaProvisionedConcurrency() *float64
	LambdaApplicationLogLevel() *string
	LambdaSystemLogLevel() *string
}

type config struct {
	LogRetentionVal                 awslogs.RetentionDays `copy:"shallow"`
	LambdaTimeoutVal                awscdk.Duration       `copy:"shallow"`
	LambdaMemorySizeVal             *float64
	LambdaReservedConcurrencyVal    *float64
	LambdaProvisionedConcurrencyVal *float64
	LambdaApplicationLogLevelVal    *string
	LambdaSystemLogLevelVal         *string
}

// ConfigOpt describes a configuration option.
type ConfigOpt func(*config)

// WithLogRetention config.
func WithLogRetention(v awslogs.RetentionDays) ConfigOpt {
	return func(c *config) { c.LogRetentionVal = v }
}

// WithLambdaTimeout config.
func WithLambdaTimeout(v awscdk.Duration) ConfigOpt {
	return func(c *config) { c.LambdaTimeoutVal = v }
}

// WithLambdaMemorySize config.
func WithLambdaMemorySize(v *float64) ConfigOpt {
	return func(c *config) { c.LambdaMemorySizeVal = v }
}

// WithLambdaReservedConcurrency config.
func WithLambdaReservedConcurrency(v *float64) ConfigOpt {
	return func(c *config) { c.LambdaReservedConcurrencyVal = v }
}

// WithLambdaProvisionedConcurrency config.
func WithLambdaProvisionedConcurrency(v *float64) ConfigOpt {
	return func(c *config) { c.LambdaProvisionedConcurrencyVal = v }
}

// WithLambdaApplicationLogLevel config.
func WithLambdaApplicationLogLevel(v *string) ConfigOpt {
	return func(c *config) { c.LambdaApplicationLogLevelVal = v }
}

// WithLambdaSystemLogLevel config.
func WithLambdaSystemLogLevel(v *string) ConfigOpt {
	return func(c *config) { c.LambdaSystemLogLevelVal = v }
}

// NewConfig initializes a config implementation given the provided values.
func NewConfig(opts ...ConfigOpt) Config {
	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// Copy returns a copy of the config while allowing certain options to be changed.
func (c config) Copy(opts ...ConfigOpt) Config {
	v, err := copystructure.Copy(c)
	if err != nil {
		panic("clcdk: failed to deep copy: " + err.Error())
	}

	cfg, _ := v.(config)
	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// LogRetention config.
func (c config) LogRetention() awslogs.RetentionDays { return c.LogRetentionVal }

// LambdaTimeout config.
func (c config) LambdaTimeout() awscdk.Duration { return c.LambdaTimeoutVal }

// LambdaMemorySize config.
func (c config) LambdaMemorySize() *float64 { return c.LambdaMemorySizeVal }

// LambdaReservedConcurrency config.
func (c config) LambdaReservedConcurrency() *float64 { return c.LambdaReservedConcurrencyVal }

// LambdaProvisionedConcurrency config.
func (c config) LambdaProvisionedConcurrency() *float64 { return c.LambdaProvisionedConcurrencyVal }

// LambdaApplicationLogLevel config.
func (c config) LambdaApplicationLogLevel() *string { return c.LambdaApplicationLogLevelVal }

// LambdaSystemLogLevel config.
func (c config) LambdaSystemLogLevel() *string { return c.LambdaSystemLogLevelVal }

// NewStagingConfig provides a config that provides easy-to-use defaults for a staging environment.
func NewStagingConfig() Config {
	return NewConfig(
		WithLogRetention(awslogs.RetentionDays_FIVE_DAYS),
		WithLambdaTimeout(awscdk.Duration_Seconds(jsii.Number(30))), //nolint:gomnd
		WithLambdaMemorySize(jsii.Number(256)),                      //nolint:gomnd
		WithLambdaReservedConcurrency(jsii.Number(5)),               //nolint:gomnd
		WithLambdaProvisionedConcurrency(jsii.Number(0)),
		WithLambdaApplicationLogLevel(jsii.String("DEBUG")),
		WithLambdaSystemLogLevel(jsii.String("DEBUG")),
	)
}

// NewProductionConfig provides defaults for production: longer log retention and less verbose logging.
func NewProductionConfig() Config {
	return NewStagingConfig().Copy(
		WithLogRetention(awslogs.RetentionDays_ONE_MONTH),
		WithLambdaReservedConcurrency(nil),
		WithLambdaApplicationLogLevel(jsii.String("INFO")),
		WithLambdaSystemLogLevel(jsii.String("INFO")),
	)
}

// ConfigForEnvironment returns the production config for "prod" and the staging config otherwise.
func ConfigForEnvironment(env string) Config {
	if env == "prod" {
		return NewProductionConfig()
	}

	return NewStagingConfig()
}
