// Package clorgssm holds what is shared between the lambdas that give member accounts of an organization
// access to Systems Manager.
package clorgssm

// Result is returned to the state machine that orchestrates the account setup.
type Result struct {
	State  string `json:"state"`
	Result string `json:"result"`
}

const (
	// StateExisting marks an account that was invited into the organization.
	StateExisting = "EXISTING"
	// StateNew marks an account that is being created.
	StateNew = "NEW"
	// ResultPending is the result while an account is still being created.
	ResultPending = "PENDING"
)
