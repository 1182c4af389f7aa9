// Package invitation implements a Lambda that determines if an organization event concerns an existing
// account that was invited, or an account that is being created.
package invitation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/crewlinker/clawsnip/cllambda"
	"github.com/crewlinker/clawsnip/clorgssm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TargetTypeAccount is the target type of an invitation that is sent to an existing account.
const TargetTypeAccount = "ACCOUNT"

type (
	// Input into the handler.
	Input = events.CloudWatchEvent
	// Output of the handler.
	Output = clorgssm.Result
)

// detail is the part of the event detail that is inspected.
type detail struct {
	RequestParameters *struct {
		Target *struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"target"`
	} `json:"requestParameters"`
}

// Handler inspects organization events.
type Handler struct {
	logs *zap.Logger
}

// New inits the handler.
func New(logs *zap.Logger) *Handler {
	return &Handler{logs: logs}
}

// Handle lambda input.
func (h Handler) Handle(_ context.Context, in Input) (out Output, err error) {
	var det detail
	if len(in.Detail) > 0 {
		if err := json.Unmarshal(in.Detail, &det); err != nil {
			return out, fmt.Errorf("failed to decode event detail: %w", err)
		}
	}

	out = Output{State: clorgssm.StateNew, Result: clorgssm.StateNew}
	if det.RequestParameters != nil && det.RequestParameters.Target != nil &&
		det.RequestParameters.Target.Type == TargetTypeAccount {
		out = Output{State: clorgssm.StateExisting, Result: det.RequestParameters.Target.ID}
	}

	h.logs.Info("inspected event", zap.String("detail_type", in.DetailType), zap.Any("output", out))

	return out, nil
}

// moduleName for naming conventions.
const moduleName = "invitation"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/"+moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		fx.Provide(New),
		fx.Provide(func(h *Handler) cllambda.Handler[Input, Output] { return h }),
	)
}

// TestProvide dependency setup.
func TestProvide() fx.Option {
	return cllambda.TestProvide(shared())
}

// Provide dependency setup.
func Provide(version string) fx.Option {
	return cllambda.Lambda[Input, Output](version, shared())
}
