// Package clcdk contains reusable infrastructure components using AWS CDK.
package clcdk

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// ScopeName is the name of a scope.
type ScopeName string

// ChildScope returns a new scope named 'name'.
func (sn ScopeName) ChildScope(parent constructs.Construct) constructs.Construct {
	return constructs.NewConstruct(parent, jsii.String(sn.String()))
}

func (sn ScopeName) String() string {
	return string(sn)
}

// ContextString reads a string context value, or returns the default when it is not set.
func ContextString(s constructs.Construct, name, def string) string {
	v, _ := s.Node().TryGetContext(jsii.String(name)).(string)
	if v == "" {
		return def
	}

	return v
}
