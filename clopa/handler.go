// Package clopa implements an AWS Config custom rule that evaluates resources against OPA policies.
//
// Oversized change notifications only carry an item summary, the full item is then read from the
// configuration history. Scheduled notifications carry no item at all and are rejected with
// ErrMissingConfigurationItem, so rules must be triggered by configuration changes.
package clopa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	"github.com/aws/aws-sdk-go-v2/service/configservice/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/crewlinker/clawsnip/clconfig"
	"github.com/crewlinker/clawsnip/cllambda"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// AnnotationPrefix starts every annotation that is reported.
const AnnotationPrefix = "Setting compliance based on OPA policy evaluation.\n"

// maxAnnotationLen is the maximum length of an evaluation annotation accepted by AWS Config.
const maxAnnotationLen = 256

type (
	// Input into the handler.
	Input = events.ConfigEvent
	// Output of the handler.
	Output struct {
		ComplianceType types.ComplianceType `json:"complianceType"`
		Annotation     string               `json:"annotation"`
	}
)

// Config configures the handler from env.
type Config struct {
	// Engine selects how policies are evaluated: in-process (rego) or with the opa binary (binary).
	Engine string `env:"ENGINE" envDefault:"rego" validate:"oneof=rego binary"`
	// OPABinary is the path of the opa binary used by the binary engine.
	OPABinary string `env:"OPA_BINARY" envDefault:"opa"`
	// TempDir is where the binary engine writes its input files, empty uses the os default.
	TempDir string `env:"TEMP_DIR"`
}

// S3 provides an interface for reading objects.
type S3 interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ConfigService provides an interface for reporting evaluations and reading configuration history.
type ConfigService interface {
	PutEvaluations(
		ctx context.Context, params *configservice.PutEvaluationsInput, optFns ...func(*configservice.Options),
	) (*configservice.PutEvaluationsOutput, error)
	GetResourceConfigHistory(
		ctx context.Context, params *configservice.GetResourceConfigHistoryInput, optFns ...func(*configservice.Options),
	) (*configservice.GetResourceConfigHistoryOutput, error)
}

// Handler evaluates config items.
type Handler struct {
	cfg  Config
	logs *zap.Logger
	val  *validator.Validate
	s3c  S3
	cfgc ConfigService
	eval Evaluator
}

// New inits the handler.
func New(cfg Config, logs *zap.Logger, s3c S3, cfgc ConfigService, eval Evaluator) *Handler {
	return &Handler{
		cfg:  cfg,
		logs: logs,
		val:  validator.New(validator.WithRequiredStructEnabled()),
		s3c:  s3c,
		cfgc: cfgc,
		eval: eval,
	}
}

// Handle lambda input.
func (h Handler) Handle(ctx context.Context, in Input) (out Output, err error) {
	ev, err := ParseEvent(h.val, in)
	if err != nil {
		return out, fmt.Errorf("failed to parse event: %w", err)
	}

	logs := h.logs.With(
		zap.String("resource_id", ev.Item.ResourceID),
		zap.String("resource_type", ev.Item.ResourceType),
		zap.String("message_type", ev.MessageType))
	logs.Info("config input processed", zap.String("status", ev.Item.Status))

	var msg string

	switch {
	case ev.Item.Status == ResourceDeleted:
		out.ComplianceType = types.ComplianceTypeNotApplicable
		msg = fmt.Sprintf("Resource %s is deleted, setting Compliance Status to NOT_APPLICABLE.", ev.Item.ResourceID)
	case ev.EventLeftScope:
		out.ComplianceType = types.ComplianceTypeNotApplicable
		msg = fmt.Sprintf("Resource %s left the scope of the rule, setting Compliance Status to NOT_APPLICABLE.",
			ev.Item.ResourceID)
	default:
		if ev.Oversized {
			if ev.RawItem, err = h.fetchItem(ctx, ev.Item); err != nil {
				return out, err
			}
		}

		compliant, err := h.evaluate(ctx, logs, ev)
		if err != nil {
			return out, err
		}

		out.ComplianceType, msg = types.ComplianceTypeNonCompliant,
			fmt.Sprintf("Resource %s is NOT compliant", ev.Item.ResourceID)
		if compliant {
			out.ComplianceType, msg = types.ComplianceTypeCompliant,
				fmt.Sprintf("Resource %s is compliant", ev.Item.ResourceID)
		}
	}

	out.Annotation = truncate(AnnotationPrefix+msg, maxAnnotationLen)
	logs.Info(msg, zap.String("compliance_type", string(out.ComplianceType)))

	if _, err := h.cfgc.PutEvaluations(ctx, &configservice.PutEvaluationsInput{
		ResultToken: aws.String(ev.ResultToken),
		Evaluations: []types.Evaluation{{
			Annotation:             aws.String(out.Annotation),
			ComplianceResourceType: aws.String(ev.Item.ResourceType),
			ComplianceResourceId:   aws.String(ev.Item.ResourceID),
			ComplianceType:         out.ComplianceType,
			OrderingTimestamp:      aws.Time(ev.Item.CaptureTime),
		}},
	}); err != nil {
		return out, fmt.Errorf("failed to put evaluations: %w", err)
	}

	return out, nil
}

// evaluate downloads the policy and evaluates the configuration item against it.
func (h Handler) evaluate(ctx context.Context, logs *zap.Logger, ev *Event) (bool, error) {
	policy, err := h.download(ctx, ev.Params.AssetsBucket, ev.Params.PolicyKey())
	if err != nil {
		return false, err
	}

	query := ev.Params.Query()
	logs.Info("evaluating policy", zap.String("query", query), zap.String("policy_key", ev.Params.PolicyKey()))

	val, err := h.eval.Evaluate(ctx, policy, ev.RawItem, query)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	logs.Debug("evaluated policy", zap.Any("value", val))

	compliant, _ := val.(bool)

	return compliant, nil
}

// fetchItem reads the latest configuration item of the resource from the configuration history.
func (h Handler) fetchItem(ctx context.Context, item ConfigurationItem) (json.RawMessage, error) {
	hist, err := h.cfgc.GetResourceConfigHistory(ctx, &configservice.GetResourceConfigHistoryInput{
		ResourceType: types.ResourceType(item.ResourceType),
		ResourceId:   aws.String(item.ResourceID),
		Limit:        1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration history of '%s': %w", item.ResourceID, err)
	}

	if len(hist.ConfigurationItems) < 1 {
		return nil, fmt.Errorf("%w: no history for '%s'", ErrMissingConfigurationItem, item.ResourceID)
	}

	return historyItemJSON(hist.ConfigurationItems[0])
}

// historyItemJSON encodes a history item in the shape of the item in change notifications. The history
// api returns the configuration documents as json strings, they are embedded as objects instead.
func historyItemJSON(ci types.ConfigurationItem) (json.RawMessage, error) {
	supp := make(map[string]any, len(ci.SupplementaryConfiguration))
	for k, v := range ci.SupplementaryConfiguration {
		supp[k] = embedJSON(v)
	}

	var conf any
	if ci.Configuration != nil {
		conf = embedJSON(*ci.Configuration)
	}

	data, err := json.Marshal(map[string]any{
		"resourceType":                 string(ci.ResourceType),
		"resourceId":                   aws.ToString(ci.ResourceId),
		"resourceName":                 aws.ToString(ci.ResourceName),
		"awsRegion":                    aws.ToString(ci.AwsRegion),
		"awsAccountId":                 aws.ToString(ci.AccountId),
		"ARN":                          aws.ToString(ci.Arn),
		"configurationItemStatus":      string(ci.ConfigurationItemStatus),
		"configurationItemCaptureTime": ci.ConfigurationItemCaptureTime,
		"tags":                         ci.Tags,
		"configuration":                conf,
		"supplementaryConfiguration":   supp,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode history item: %w", err)
	}

	return data, nil
}

// embedJSON returns s as raw json when it is valid json, or as a plain string otherwise.
func embedJSON(s string) any {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}

	return s
}

// download the policy from s3.
func (h Handler) download(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := h.s3c.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to get policy 's3://%s/%s': %w", bucket, key, err)
	}

	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	return data, nil
}

// truncate s to at most n characters.
func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}

	return s
}

// moduleName for naming conventions.
const moduleName = "clopa"

// shared dependency setup.
func shared() fx.Option {
	return fx.Module("lambda/"+moduleName,
		fx.Decorate(func(l *zap.Logger) *zap.Logger { return l.Named(moduleName) }),
		clconfig.Provide[Config](strings.ToUpper(moduleName)+"_"),
		fx.Provide(fx.Annotate(s3.NewFromConfig, fx.As(new(S3)))),
		fx.Provide(fx.Annotate(configservice.NewFromConfig, fx.As(new(ConfigService)))),
		fx.Provide(NewEvaluator),
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
