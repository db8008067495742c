package harness

import "github.com/roach88/tmerge/internal/ir"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion and built-in check held.
	Pass bool `json:"pass"`

	// Plan is the plan computed for the scenario's batch.
	Plan *ir.Plan `json:"plan"`

	// Replan is the plan of the same batch against the applied timeline.
	// Nil unless the scenario applies its plan.
	Replan *ir.Plan `json:"replan,omitempty"`

	// Final is the stored timeline after the plan was applied.
	Final []ir.TargetRow `json:"final,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
