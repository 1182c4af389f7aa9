// Package accountstatus implements a Lambda that reports the status of an account creation request.
package accountstatus

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/crewlinker/clawsnip/cllambda"
	"github.com/crewlinker/clawsnip/clorgssm"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type (
	// Input into the handler.
	Input struct {
		// ID is the id of the create account request.
		ID string `json:"id"`
	}
	// Output of the handler.
	Output = clorgssm.Result
)

// Organizations provides the account creation status api.
type Organizations interface {
	DescribeCreateAccountStatus(
		ctx context.Context,
		params *organizations.DescribeCreateAccountStatusInput,
		optFns ...func(*organizations.Options),
	) (*organizations.DescribeCreateAccountStatusOutput, error)
}

// Handler reports account creation status.
type Handler struct {
	logs *zap.Logger
	orgc Organizations
}

// New inits the handler.
func New(logs *zap.Logger, orgc Organizations) *Handler {
	return &Handler{logs: logs, orgc: orgc}
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (out Output, err error) {
	res, err := h.orgc.DescribeCreateAccountStatus(ctx, &organizations.DescribeCreateAccountStatusInput{
		CreateAccountRequestId: aws.String(in.ID),
	})
	if err != nil {
		return out, fmt.Errorf("failed to describe create account status: %w", err)
	}

	if res.CreateAccountStatus == nil {
		return out, fmt.Errorf("no status for request '%s'", in.ID) //nolint:goerr113
	}

	out.State, out.Result = string(res.CreateAccountStatus.State), clorgssm.ResultPending
	if res.CreateAccountStatus.State == types.CreateAccountStateSucceeded {
		out.Result = aws.ToString(res.CreateAccountStatus.AccountId)
	}

	h.logs.Info("account status", zap.String("request_id", in.ID), zap.Any("output", out))

	return out, nil
}

// moduleName for naming conventions.
const moduleName = "accountstatus"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/"+moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		fx.Provide(fx.Annotate(organizations.NewFromConfig, fx.As(new(Organizations)))),
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
