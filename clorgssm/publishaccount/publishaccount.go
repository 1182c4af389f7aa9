// Package publishaccount implements a Lambda that announces an account on an SNS topic.
package publishaccount

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/crewlinker/clawsnip/cllambda"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type (
	// Input into the handler, it is also the published message.
	Input struct {
		Type      string `json:"type"`
		AccountID string `json:"accountid"`
	}
	// Output of the handler.
	Output struct {
		Message   string `json:"Message"`
		TopicArn  string `json:"TopicArn"`
		MessageID string `json:"MessageId"`
	}
)

// Config configures the handler from env.
type Config struct {
	// TopicArn receives the messages.
	TopicArn string `env:"SNS_ARN"`
}

// SNS provides the publishing api.
type SNS interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Handler publishes accounts.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	snsc SNS
}

// New inits the handler.
func New(cfg Config, logs *zap.Logger, snsc SNS) *Handler {
	return &Handler{cfg: cfg, logs: logs, snsc: snsc}
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (out Output, err error) {
	msg, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("failed to encode message: %w", err)
	}

	out.Message, out.TopicArn = string(msg), h.cfg.TopicArn

	res, err := h.snsc.Publish(ctx, &sns.PublishInput{
		Message:  aws.String(out.Message),
		TopicArn: aws.String(out.TopicArn),
	})
	if err != nil {
		return out, fmt.Errorf("failed to publish: %w", err)
	}

	out.MessageID = aws.ToString(res.MessageId)
	h.logs.Info("published account", zap.String("account_id", in.AccountID), zap.String("message_id", out.MessageID))

	return out, nil
}

// moduleName for naming conventions.
const moduleName = "publishaccount"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/"+moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](),
		fx.Provide(fx.Annotate(sns.NewFromConfig, fx.As(new(SNS)))),
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
