package ir

// Version constants for plan output and the planner.
const (
	// PlanVersion is the plan schema version.
	PlanVersion = "1"

	// PlannerVersion is the tmerge planner version.
	PlannerVersion = "0.1.0"
)
