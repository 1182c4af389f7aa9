package clopa

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ErrMissingConfigurationItem is returned when the invoking event holds neither a configuration item nor
// an item summary. This is the case for scheduled notifications.
var ErrMissingConfigurationItem = errors.New("invoking event has no configuration item")

// OversizedNotification is the message type of events that only carry an item summary.
const OversizedNotification = "OversizedConfigurationItemChangeNotification"

// ResourceDeleted is the configuration item status of a deleted resource.
const ResourceDeleted = "ResourceDeleted"

// RuleParameters are configured on the AWS Config rule.
type RuleParameters struct {
	AssetsBucket         string `mapstructure:"ASSETS_BUCKET" validate:"required"`
	RegoPoliciesPrefix   string `mapstructure:"REGO_POLICIES_PREFIX"`
	RegoPolicyKey        string `mapstructure:"REGO_POLICY_KEY" validate:"required"`
	OPAPolicyPackageName string `mapstructure:"OPA_POLICY_PACKAGE_NAME" validate:"required"`
	OPAPolicyRuleToEval  string `mapstructure:"OPA_POLICY_RULE_TO_EVAL" validate:"required"`
}

// PolicyKey returns the full object key of the policy.
func (p RuleParameters) PolicyKey() string {
	return p.RegoPoliciesPrefix + p.RegoPolicyKey
}

// Query returns the rego query that evaluates the configured rule.
func (p RuleParameters) Query() string {
	return fmt.Sprintf("data.%s.%s", p.OPAPolicyPackageName, p.OPAPolicyRuleToEval)
}

// ConfigurationItem holds the fields of the configuration item that are needed for reporting.
type ConfigurationItem struct {
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId"`
	Status       string    `json:"configurationItemStatus"`
	CaptureTime  time.Time `json:"configurationItemCaptureTime"`
}

// Event is a parsed AWS Config rule invocation.
type Event struct {
	MessageType    string
	Item           ConfigurationItem
	RawItem        json.RawMessage
	Params         RuleParameters
	ResultToken    string
	EventLeftScope bool
	// Oversized is set when RawItem holds only the item summary. The full item must be fetched from the
	// configuration history before it can be evaluated.
	Oversized bool
}

// invokingEvent is the json encoded invoking event.
type invokingEvent struct {
	MessageType       string          `json:"messageType"`
	ConfigurationItem json.RawMessage `json:"configurationItem"`
	ItemSummary       json.RawMessage `json:"configurationItemSummary"`
}

// ParseEvent parses and validates a config event.
func ParseEvent(val *validator.Validate, ev events.ConfigEvent) (*Event, error) {
	var inv invokingEvent
	if err := json.Unmarshal([]byte(ev.InvokingEvent), &inv); err != nil {
		return nil, fmt.Errorf("failed to decode invoking event: %w", err)
	}

	out := &Event{
		MessageType:    inv.MessageType,
		RawItem:        inv.ConfigurationItem,
		ResultToken:    ev.ResultToken,
		EventLeftScope: ev.EventLeftScope,
	}

	if isEmptyJSON(out.RawItem) {
		out.RawItem, out.Oversized = inv.ItemSummary, true
	}

	if isEmptyJSON(out.RawItem) {
		return nil, fmt.Errorf("%w: message type '%s'", ErrMissingConfigurationItem, inv.MessageType)
	}

	if err := json.Unmarshal(out.RawItem, &out.Item); err != nil {
		return nil, fmt.Errorf("failed to decode configuration item: %w", err)
	}

	if err := decodeValidateParams(val, ev.RuleParameters, &out.Params); err != nil {
		return nil, err
	}

	return out, nil
}

func isEmptyJSON(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

// decodeValidateParams decodes the json rule parameters into a struct and validates it.
func decodeValidateParams(val *validator.Validate, data string, v any) error {
	propm := map[string]any{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &propm); err != nil {
			return fmt.Errorf("failed to decode rule parameters: %w", err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     v,
	})
	if err != nil {
		return fmt.Errorf("failed to init decoder: %w", err)
	}

	if err = dec.Decode(propm); err != nil {
		return fmt.Errorf("failed to decode rule parameters: %w", err)
	}

	if err = val.Struct(v); err != nil {
		return fmt.Errorf("failed to validate rule parameters: %w", err)
	}

	return nil
}
