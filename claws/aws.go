// Package claws provides the official AWS SDK (v2) configuration as a dependency.
package claws

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/crewlinker/clawsnip/clconfig"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures this package.
type Config struct {
	// LoadConfigTimeout bounds the time given to config loading
	LoadConfigTimeout time.Duration `env:"LOAD_CONFIG_TIMEOUT" envDefault:"100ms"`
	// EndpointURL overwrites the endpoint of every service, for example to target LocalStack in tests.
	EndpointURL *url.URL `env:"ENDPOINT_URL"`
	// OverwriteRegion forces the region, regardless of the shared config.
	OverwriteRegion string `env:"OVERWRITE_REGION"`
	// OverwriteAccessKeyID forces static credentials when set together with the secret.
	OverwriteAccessKeyID string `env:"OVERWRITE_ACCESS_KEY_ID"`
	// OverwriteSecretAccessKey forces static credentials when set together with the key id.
	OverwriteSecretAccessKey string `env:"OVERWRITE_SECRET_ACCESS_KEY"`
	// OverwriteSessionToken is the optional session token for static credentials.
	OverwriteSessionToken string `env:"OVERWRITE_SESSION_TOKEN"`
}

// New initialize an AWS config to be used to create clients for individual aws services. We would like
// run this during fx lifecycle phase to provide it with a context because it can block. But too many
// dependencies would have to wait for it.
func New(
	cfg Config,
	logs *zap.Logger,
	epresolver aws.EndpointResolverWithOptions,
	trp trace.TracerProvider,
	txtp propagation.TextMapPropagator,
) (acfg aws.Config, err error) {
	logs.Info("loading config", zap.Duration("timeout", cfg.LoadConfigTimeout))
	ctx, cancel := context.WithTimeout(context.Background(), cfg.LoadConfigTimeout)
	defer cancel()

	opts := []func(*config.LoadOptions) error{
		config.WithEndpointResolverWithOptions(epresolver),
		config.WithLogger(NewLogger(logs)),
	}

	if cfg.OverwriteRegion != "" {
		opts = append(opts, config.WithRegion(cfg.OverwriteRegion))
	}

	if cfg.OverwriteAccessKeyID != "" && cfg.OverwriteSecretAccessKey != "" {
		logs.Info("using static credentials", zap.String("access_key_id", cfg.OverwriteAccessKeyID))
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.OverwriteAccessKeyID, cfg.OverwriteSecretAccessKey, cfg.OverwriteSessionToken)))
	}

	if acfg, err = config.LoadDefaultConfig(ctx, opts...); err != nil {
		return acfg, fmt.Errorf("failed to load default config: %w", err)
	}

	// if we have a tracing available, we instrument the aws client
	if trp != nil {
		logs.Info("tracing provided, instrumenting aws client")
		otelaws.AppendMiddlewares(
			&acfg.APIOptions,
			otelaws.WithTracerProvider(trp),
			otelaws.WithTextMapPropagator(txtp))
	}

	return acfg, nil
}

// NewEndpointResolver returns a resolver that sends every service to the configured endpoint, or falls
// back to the SDK's default resolution when no endpoint is configured.
func NewEndpointResolver(cfg Config) aws.EndpointResolverWithOptions {
	return aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...any) (aws.Endpoint, error) {
		if cfg.EndpointURL == nil {
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}

		return aws.Endpoint{
			URL:               cfg.EndpointURL.String(),
			SigningRegion:     region,
			HostnameImmutable: true,
			Source:            aws.EndpointSourceCustom,
		}, nil
	})
}

// moduleName for naming conventions.
const moduleName = "claws"

// Provide configures the DI for providing the AWS config.
func Provide() fx.Option {
	return fx.Module(moduleName,
		// the incoming logger will be named after the module
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		// provide the environment configuration
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		// provide the actual aws config
		fx.Provide(fx.Annotate(New, fx.ParamTags(``, ``, ``, `optional:"true"`, `optional:"true"`))),
		// provide endpoint resolver, can be used to overwrite endpoints based on configuration
		fx.Provide(NewEndpointResolver),
	)
}
