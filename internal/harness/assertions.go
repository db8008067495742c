package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/order"
)

// AssertionError is returned when an assertion fails.
// It includes the rendered plan to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Plan     []string // Rendered plan lines for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Plan) > 0 {
		fmt.Fprintf(&buf, "\nFull plan:\n")
		for _, line := range e.Plan {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	// Config supplies the era domain periods are parsed and formatted in.
	Config *ir.Config
}

func (c *AssertionContext) domain() ir.Domain {
	if c == nil || c.Config == nil {
		return ir.DomainInteger
	}
	return c.Config.Era.Domain
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string
	domain := actx.domain()

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertAction:
			err = assertAction(result.Plan, assertion, domain)
		case AssertActionCount:
			err = assertActionCount(result.Plan, assertion, domain)
		case AssertKinds:
			err = assertKinds(result.Plan, assertion, domain)
		case AssertFeedback:
			err = assertFeedback(result.Plan, assertion, domain)
		case AssertFinalState:
			if result.Replan == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires an applied plan", i)
			} else {
				err = assertFinalState(result.Final, assertion, actx.Config)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertAction checks that some action matches every field the assertion
// sets. Data is a subset match.
func assertAction(plan *ir.Plan, assertion Assertion, d ir.Domain) error {
	for _, a := range plan.Actions {
		if matchAction(a, assertion, d) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertAction,
		Expected: describeAction(assertion),
		Actual:   "no matching action in plan",
		Plan:     RenderLines(plan),
	}
}

func matchAction(a ir.PlannedAction, want Assertion, d ir.Domain) bool {
	if a.Kind != want.Kind {
		return false
	}
	if want.Effect != "" && a.Effect != want.Effect {
		return false
	}
	if want.Old != "" && (a.Old == nil || d.FormatPeriod(*a.Old) != want.Old) {
		return false
	}
	if want.New != "" && (a.New == nil || d.FormatPeriod(*a.New) != want.New) {
		return false
	}
	if want.Rows != nil && !slices.Equal(a.RowIDs, want.Rows) {
		return false
	}
	return matchData(a.Data, want.Data)
}

// matchData reports whether actual holds every column of expected with an
// equal value. An expected null requires an explicit null.
func matchData(actual, expected ir.Payload) bool {
	for col, want := range expected {
		got, ok := actual[col]
		if !ok {
			return false
		}
		if !ir.Equal(got, want) {
			return false
		}
	}
	return true
}

func describeAction(a Assertion) string {
	parts := []string{string(a.Kind)}
	if a.Effect != "" {
		parts = append(parts, string(a.Effect))
	}
	if a.Old != "" {
		parts = append(parts, "old="+a.Old)
	}
	if a.New != "" {
		parts = append(parts, "new="+a.New)
	}
	if a.Rows != nil {
		parts = append(parts, fmt.Sprintf("rows=%v", a.Rows))
	}
	if len(a.Data) > 0 {
		parts = append(parts, "data>="+renderData(a.Data))
	}
	return strings.Join(parts, " ")
}

// assertActionCount checks that the plan has exactly Count actions of Kind.
func assertActionCount(plan *ir.Plan, assertion Assertion, _ ir.Domain) error {
	count := plan.Count(assertion.Kind)
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertActionCount,
			Expected: fmt.Sprintf("%s appears %d times", assertion.Kind, assertion.Count),
			Actual:   fmt.Sprintf("%s appears %d times", assertion.Kind, count),
			Plan:     RenderLines(plan),
		}
	}
	return nil
}

// assertKinds checks the full kind sequence in plan order.
func assertKinds(plan *ir.Plan, assertion Assertion, _ ir.Domain) error {
	got := make([]ir.ActionKind, len(plan.Actions))
	for i, a := range plan.Actions {
		got[i] = a.Kind
	}
	if !slices.Equal(got, assertion.Kinds) {
		return &AssertionError{
			Type:     AssertKinds,
			Expected: fmt.Sprintf("%v", assertion.Kinds),
			Actual:   fmt.Sprintf("%v", got),
			Plan:     RenderLines(plan),
		}
	}
	return nil
}

// assertFeedback checks one row's feedback status and message.
func assertFeedback(plan *ir.Plan, assertion Assertion, _ ir.Domain) error {
	fb, ok := plan.FeedbackFor(assertion.RowID)
	if !ok {
		return &AssertionError{
			Type:     AssertFeedback,
			Expected: fmt.Sprintf("row %d %s", assertion.RowID, assertion.Status),
			Actual:   "no feedback for row",
			Plan:     RenderLines(plan),
		}
	}
	if fb.Status != assertion.Status || !strings.Contains(fb.Message, assertion.Message) {
		return &AssertionError{
			Type:     AssertFeedback,
			Expected: fmt.Sprintf("row %d %s %q", assertion.RowID, assertion.Status, assertion.Message),
			Actual:   fmt.Sprintf("row %d %s %q", fb.RowID, fb.Status, fb.Message),
			Plan:     RenderLines(plan),
		}
	}
	return nil
}

// assertFinalState checks the stored periods of one entity after apply.
func assertFinalState(final []ir.TargetRow, assertion Assertion, cfg *ir.Config) error {
	cols := cfg.IdentityColumns
	want := assertion.Identity.Render(cols)

	got := []string{}
	for _, row := range final {
		if row.Identity.Render(cols) == want {
			got = append(got, cfg.Era.Domain.FormatPeriod(row.Period))
		}
	}
	if !slices.Equal(got, assertion.Periods) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("entity %s has periods %v", want, assertion.Periods),
			Actual:   fmt.Sprintf("entity %s has periods %v", want, got),
		}
	}
	return nil
}

// checkPlan verifies the properties every plan must have: one feedback
// entry per source row and execution order.
func checkPlan(plan *ir.Plan, sources []ir.SourceRow) []string {
	var errors []string

	if len(plan.Feedback) != len(sources) {
		errors = append(errors, fmt.Sprintf("coverage: %d source rows, %d feedback entries",
			len(sources), len(plan.Feedback)))
	}
	for _, s := range sources {
		if _, ok := plan.FeedbackFor(s.RowID); !ok {
			errors = append(errors, fmt.Sprintf("coverage: row %d has no feedback", s.RowID))
		}
	}

	if !order.Valid(plan.Actions) {
		errors = append(errors, "order: actions are not in execution order")
	}
	for i, a := range plan.Actions {
		if a.Seq != i+1 {
			errors = append(errors, fmt.Sprintf("order: action %d has seq %d", i+1, a.Seq))
			break
		}
	}

	return errors
}

// checkReplan verifies that planning the applied batch again changes
// nothing and turns no row into an error.
func checkReplan(first, replan *ir.Plan) []string {
	if replan == nil {
		return []string{"idempotence: plan was not applied"}
	}

	var errors []string
	for _, a := range replan.Actions {
		if a.Kind.IsDML() {
			errors = append(errors, fmt.Sprintf("idempotence: second run plans %s %s", a.Kind, a.PartitionKey))
		}
	}
	for _, fb := range replan.Feedback {
		before, _ := first.FeedbackFor(fb.RowID)
		if fb.Status == ir.StatusError && before.Status != ir.StatusError {
			errors = append(errors, fmt.Sprintf("idempotence: row %d fails on second run: %s", fb.RowID, fb.Message))
		}
	}
	return errors
}
