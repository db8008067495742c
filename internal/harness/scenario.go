package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tmerge/internal/ir"
)

// Scenario defines a merge scenario: one configuration, one target
// timeline, one source batch and the assertions its plan must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the merge configuration.
	Config ir.Config `yaml:"config"`

	// Target is the existing timeline. Every row needs a complete stable key.
	Target []RowSpec `yaml:"target,omitempty"`

	// Source is the incoming batch.
	Source []RowSpec `yaml:"source,omitempty"`

	// Idempotent applies the plan to a scratch store and requires that
	// planning the same batch again yields no DML.
	Idempotent bool `yaml:"idempotent,omitempty"`

	// Assertions validate the plan and, when applied, the final timeline.
	Assertions []Assertion `yaml:"assertions"`

	// PlanID is the fixed plan ID. Defaults to "test-plan".
	PlanID string `yaml:"plan_id,omitempty"`
}

// RowSpec is one source or target row with textual boundaries.
type RowSpec struct {
	// RowID identifies a source row. Ignored for target rows.
	RowID      int64      `yaml:"row_id,omitempty"`
	FoundingID string     `yaml:"founding_id,omitempty"`
	Identity   ir.Keys    `yaml:"identity,omitempty"`
	From       string     `yaml:"from"`
	Until      string     `yaml:"until"`
	Data       ir.Payload `yaml:"data,omitempty"`
}

// Period parses the row's boundaries in domain d.
func (r RowSpec) Period(d ir.Domain) (ir.Period, error) {
	from, err := d.Parse(r.From)
	if err != nil {
		return ir.Period{}, fmt.Errorf("from: %w", err)
	}
	until, err := d.Parse(r.Until)
	if err != nil {
		return ir.Period{}, fmt.Errorf("until: %w", err)
	}
	// Source periods are not validated here; the planner reports empty
	// periods as row errors.
	return ir.Period{From: from, Until: until}, nil
}

// Assertion validates the plan or the applied timeline.
type Assertion struct {
	// Type specifies the assertion type:
	// - "action": some action matches the given fields
	// - "action_count": exactly Count actions of Kind
	// - "kinds": the plan's action kinds equal Kinds
	// - "feedback": row RowID has Status
	// - "final_state": the entity's stored periods equal Periods
	Type string `yaml:"type"`

	// Kind is the action kind (used by action, action_count).
	Kind ir.ActionKind `yaml:"kind,omitempty"`

	// Effect is the UPDATE effect (used by action).
	Effect ir.UpdateEffect `yaml:"effect,omitempty"`

	// Old and New are formatted periods such as "[2024-01-01,infinity)"
	// (used by action).
	Old string `yaml:"old,omitempty"`
	New string `yaml:"new,omitempty"`

	// Rows are the expected attributed row ids (used by action).
	Rows []int64 `yaml:"rows,omitempty"`

	// Data is a subset of the expected payload (used by action).
	Data ir.Payload `yaml:"data,omitempty"`

	// Count is the expected number of actions (used by action_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected kind sequence (used by kinds).
	Kinds []ir.ActionKind `yaml:"kinds,omitempty"`

	// RowID and Status select the feedback entry (used by feedback).
	RowID  int64             `yaml:"row_id,omitempty"`
	Status ir.FeedbackStatus `yaml:"status,omitempty"`

	// Message is a substring of the feedback message (used by feedback).
	Message string `yaml:"message,omitempty"`

	// Identity selects the entity (used by final_state).
	Identity ir.Keys `yaml:"identity,omitempty"`

	// Periods are the entity's expected stored periods in order
	// (used by final_state).
	Periods []string `yaml:"periods,omitempty"`
}

// Assertion type constants.
const (
	AssertAction      = "action"
	AssertActionCount = "action_count"
	AssertKinds       = "kinds"
	AssertFeedback    = "feedback"
	AssertFinalState  = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
// The merge configuration itself is validated by the planner.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Config.Mode == "" {
		return fmt.Errorf("config.mode is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, row := range s.Target {
		if row.From == "" || row.Until == "" {
			return fmt.Errorf("target[%d]: from and until are required", i)
		}
		if len(row.Identity) == 0 {
			return fmt.Errorf("target[%d]: identity is required", i)
		}
	}

	for i, row := range s.Source {
		if row.RowID == 0 {
			return fmt.Errorf("source[%d]: row_id is required", i)
		}
		if row.From == "" || row.Until == "" {
			return fmt.Errorf("source[%d]: from and until are required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertAction:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for action", index)
		}
	case AssertActionCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for action_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for action_count", index)
		}
	case AssertKinds:
		if a.Kinds == nil {
			return fmt.Errorf("assertions[%d]: kinds list is required for kinds", index)
		}
	case AssertFeedback:
		if a.RowID == 0 {
			return fmt.Errorf("assertions[%d]: row_id is required for feedback", index)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for feedback", index)
		}
	case AssertFinalState:
		if len(a.Identity) == 0 {
			return fmt.Errorf("assertions[%d]: identity is required for final_state", index)
		}
		if a.Periods == nil {
			return fmt.Errorf("assertions[%d]: periods is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// needsApply reports whether the scenario applies its plan to a store.
func (s *Scenario) needsApply() bool {
	if s.Idempotent {
		return true
	}
	for _, a := range s.Assertions {
		if a.Type == AssertFinalState {
			return true
		}
	}
	return false
}
