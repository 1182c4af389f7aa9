// Package clhttp provides http clients as dependencies.
package clhttp

import (
	"net/http"
	"strings"
	"time"

	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Config configures the http clients.
type Config struct {
	// Timeout bounds every request, including reading the body.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"20s"`
	// RetryCount is the number of retries on transport errors and 5xx responses.
	RetryCount int `env:"RETRY_COUNT" envDefault:"0" validate:"gte=0"`
	// RetryBackoff is the constant wait between retries.
	RetryBackoff time.Duration `env:"RETRY_BACKOFF" envDefault:"100ms"`
	// RetryJitter is the maximum random jitter added to the backoff.
	RetryJitter time.Duration `env:"RETRY_JITTER" envDefault:"10ms"`
}

// NewClient inits a http client with tracing if a tracer provider is available.
func NewClient(cfg Config, trp trace.TracerProvider, txtp propagation.TextMapPropagator) *http.Client {
	hcl := &http.Client{Transport: http.DefaultTransport, Timeout: cfg.Timeout}
	if trp != nil {
		hcl.Transport = otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithPropagators(txtp),
			otelhttp.WithTracerProvider(trp))
	}

	return hcl
}

// NewRetryingClient wraps the http client with retries.
func NewRetryingClient(cfg Config, hcl *http.Client) heimdall.Client {
	return httpclient.NewClient(
		httpclient.WithHTTPClient(hcl),
		httpclient.WithRetryCount(cfg.RetryCount),
		httpclient.WithRetrier(heimdall.NewRetrier(heimdall.NewConstantBackoff(cfg.RetryBackoff, cfg.RetryJitter))),
	)
}

// moduleName for naming conventions.
const moduleName = "clhttp"

// Provide module to expose http clients as dependencies.
func Provide() fx.Option {
	return fx.Module(moduleName,
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(NewClient, fx.ParamTags(``, `optional:"true"`, `optional:"true"`))),
		fx.Provide(NewRetryingClient),
	)
}
