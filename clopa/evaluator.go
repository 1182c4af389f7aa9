package clopa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/open-policy-agent/opa/rego"
	"github.com/open-policy-agent/opa/topdown"
	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

// ErrUnsupportedEngine is returned when the configured engine is not known.
var ErrUnsupportedEngine = errors.New("unsupported engine")

// Evaluator evaluates a rego query against a policy and json input. An undefined result is returned as
// a nil value.
type Evaluator interface {
	Evaluate(ctx context.Context, policy, input []byte, query string) (any, error)
}

// NewEvaluator returns the evaluator for the configured engine.
func NewEvaluator(cfg Config, logs *zap.Logger) (Evaluator, error) {
	switch cfg.Engine {
	case "rego":
		return NewRego(logs), nil
	case "binary":
		return NewBinary(cfg, logs), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedEngine, cfg.Engine)
	}
}

// Rego evaluates policies in-process.
type Rego struct {
	logs *zap.Logger
}

// NewRego inits the in-process evaluator.
func NewRego(logs *zap.Logger) *Rego {
	return &Rego{logs: logs.Named("rego")}
}

// Evaluate the query.
func (e Rego) Evaluate(ctx context.Context, policy, input []byte, query string) (any, error) {
	var inp any
	if err := json.Unmarshal(input, &inp); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	// print statements in policies end up in our logs
	pw := &zapio.Writer{Log: e.logs, Level: zap.DebugLevel}
	defer pw.Close()

	rs, err := rego.New(
		rego.Query(query),
		rego.Module("policy.rego", string(policy)),
		rego.Input(inp),
		rego.EnablePrintStatements(true),
		rego.PrintHook(topdown.NewPrintHook(pw)),
	).Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate: %w", err)
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil //nolint:nilnil
	}

	return rs[0].Expressions[0].Value, nil
}

// Binary evaluates policies by running the opa binary.
type Binary struct {
	cfg  Config
	logs *zap.Logger
}

// NewBinary inits the binary evaluator.
func NewBinary(cfg Config, logs *zap.Logger) *Binary {
	return &Binary{cfg: cfg, logs: logs.Named("binary")}
}

// binaryOutput is the json output of 'opa eval -f json'.
type binaryOutput struct {
	Result []struct {
		Expressions []struct {
			Value any    `json:"value"`
			Text  string `json:"text"`
		} `json:"expressions"`
	} `json:"result"`
}

// Evaluate the query.
func (e Binary) Evaluate(ctx context.Context, policy, input []byte, query string) (any, error) {
	inpf, err := writeTemp(e.cfg.TempDir, "input-*.json", input)
	if err != nil {
		return nil, err
	}

	defer os.Remove(inpf)

	polf, err := writeTemp(e.cfg.TempDir, "policy-*.rego", policy)
	if err != nil {
		return nil, err
	}

	defer os.Remove(polf)

	var outb, errb bytes.Buffer

	cmd := exec.CommandContext(ctx, e.cfg.OPABinary, "eval", "-f", "json", "-d", polf, "-i", inpf, query)
	cmd.Stdout, cmd.Stderr = &outb, &errb

	e.logs.Debug("running opa", zap.Strings("args", cmd.Args))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to run opa: %w: %s", err, errb.String())
	}

	var out binaryOutput
	if err := json.Unmarshal(outb.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode opa output: %w", err)
	}

	for _, res := range out.Result {
		for _, expr := range res.Expressions {
			if expr.Text == query {
				return expr.Value, nil
			}
		}
	}

	return nil, nil //nolint:nilnil
}

// writeTemp writes data to a new temporary file and returns its name.
func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(f.Name())

		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	return f.Name(), nil
}
