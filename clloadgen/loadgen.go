// Package clloadgen generates steady http load against an endpoint.
package clloadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/crewlinker/clawsnip/clhttp"
	"github.com/gojek/heimdall/v7"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrNoEndpoint is returned when no endpoint is configured.
var ErrNoEndpoint = errors.New("no endpoint configured")

// Config configures the load generator.
type Config struct {
	// Endpoint receives the requests.
	Endpoint string `env:"ENDPOINT" validate:"omitempty,url"`
	// Count is the total number of requests to send.
	Count int `env:"COUNT" envDefault:"1000" validate:"gte=0"`
	// Interval is the time between two requests, zero sends them without pacing.
	Interval time.Duration `env:"INTERVAL" envDefault:"100ms" validate:"gte=0"`
	// Concurrency bounds the number of requests in flight.
	Concurrency int `env:"CONCURRENCY" envDefault:"1" validate:"gte=1"`
	// Seed makes the generated payloads reproducible, zero picks a random seed.
	Seed uint64 `env:"SEED"`
}

// UserData is the generated user.
type UserData struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// Payload is the body of every request.
type Payload struct {
	UserID   string   `json:"userId"`
	UserData UserData `json:"userData"`
}

// Summary of a run.
type Summary struct {
	Sent        int
	Failed      int
	StatusCodes map[int]int
}

// Generator sends the load.
type Generator struct {
	cfg      Config
	logs     *zap.Logger
	hcl      heimdall.Doer
	progress io.Writer
}

// New inits the generator.
func New(cfg Config, logs *zap.Logger, hcl heimdall.Client) *Generator {
	return &Generator{cfg: cfg, logs: logs, hcl: hcl}
}

// WithProgress returns a copy of the generator that also writes a line per request to w.
func (g Generator) WithProgress(w io.Writer) *Generator {
	g.progress = w

	return &g
}

// NewPayload generates the payload for request i.
func NewPayload(rnd *rand.Rand, i int) Payload {
	return Payload{
		UserID: fmt.Sprintf("user_%d", i),
		UserData: UserData{
			Name:  fmt.Sprintf("User %d", i),
			Age:   18 + rnd.IntN(63),
			Email: fmt.Sprintf("user%d@example.com", i),
		},
	}
}

// Run sends the configured number of requests, one per interval.
func (g Generator) Run(ctx context.Context) (sum Summary, err error) {
	if g.cfg.Endpoint == "" {
		return sum, ErrNoEndpoint
	}

	seed := g.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var mu sync.Mutex

	sum.StatusCodes = map[int]int{}
	rnd := rand.New(rand.NewPCG(seed, seed))
	wrk := pool.New().WithMaxGoroutines(g.cfg.Concurrency)

	var tickc <-chan time.Time

	if g.cfg.Interval > 0 {
		tick := time.NewTicker(g.cfg.Interval)
		defer tick.Stop()

		tickc = tick.C
	}

	for i := 0; i < g.cfg.Count; i++ {
		if i > 0 {
			if perr := pace(ctx, tickc); perr != nil {
				err = fmt.Errorf("stopped after %d requests: %w", i, perr)

				break
			}
		}

		body, merr := json.Marshal(NewPayload(rnd, i))
		if merr != nil {
			err = fmt.Errorf("failed to encode payload: %w", merr)

			break
		}

		wrk.Go(func() {
			code, serr := g.send(ctx, body)

			mu.Lock()
			defer mu.Unlock()

			sum.Sent++

			if serr != nil {
				sum.Failed++

				g.logs.Warn("request failed", zap.Int("request", i), zap.Error(serr))
				g.printf("Request %d: Failed: %v\n", i, serr)

				return
			}

			sum.StatusCodes[code]++
			g.printf("Request %d: Status Code %d\n", i, code)

			g.logs.Info(fmt.Sprintf("Request %d: Status Code %d", i, code),
				zap.Int("request", i), zap.Int("status_code", code))
		})
	}

	wrk.Wait()

	return sum, err
}

// pace waits for the next tick, or only checks the context when there is no ticker.
func pace(ctx context.Context, tickc <-chan time.Time) error {
	if tickc == nil {
		return ctx.Err() //nolint:wrapcheck
	}

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-tickc:
		return nil
	}
}

// printf writes progress when a progress writer is set.
func (g Generator) printf(format string, args ...any) {
	if g.progress != nil {
		fmt.Fprintf(g.progress, format, args...)
	}
}

// send posts a single payload and returns the status code.
func (g Generator) send(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := g.hcl.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}

	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, nil
}

// moduleName for naming conventions.
const moduleName = "clloadgen"

// Provide the load generator.
func Provide() fx.Option {
	return fx.Module(moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		clhttp.Provide(),
		fx.Provide(New),
	)
}
