package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tmerge/internal/ir"
)

// RenderLines renders a plan as one line per action followed by one line
// per feedback entry. Periods are formatted in the plan's domain and
// payloads as canonical JSON, so equal plans render identically.
func RenderLines(plan *ir.Plan) []string {
	if plan == nil {
		return nil
	}
	d := plan.Domain

	lines := make([]string, 0, len(plan.Actions)+len(plan.Feedback)+4)
	lines = append(lines, "plan: "+plan.ID, "domain: "+string(d), "actions:")
	for _, a := range plan.Actions {
		var b strings.Builder
		fmt.Fprintf(&b, "  %d/%d %s", a.Seq, a.StatementSeq, a.Kind)
		if a.Effect != "" {
			fmt.Fprintf(&b, " %s", a.Effect)
		}
		fmt.Fprintf(&b, " %s", a.PartitionKey)
		if a.Old != nil {
			fmt.Fprintf(&b, " old=%s", d.FormatPeriod(*a.Old))
		}
		if a.New != nil {
			fmt.Fprintf(&b, " new=%s", d.FormatPeriod(*a.New))
		}
		fmt.Fprintf(&b, " rows=%v", a.RowIDs)
		if len(a.Data) > 0 {
			fmt.Fprintf(&b, " data=%s", renderData(a.Data))
		}
		lines = append(lines, b.String())
	}
	lines = append(lines, "feedback:")
	for _, fb := range plan.Feedback {
		lines = append(lines, fmt.Sprintf("  %d %s", fb.RowID, fb.Status))
	}
	return lines
}

// Render returns the rendered plan as newline-terminated text.
func Render(plan *ir.Plan) []byte {
	return []byte(strings.Join(RenderLines(plan), "\n") + "\n")
}

func renderData(p ir.Payload) string {
	b, err := ir.MarshalCanonical(ir.Object(p))
	if err != nil {
		return fmt.Sprintf("%v", map[string]ir.Value(p))
	}
	return string(b)
}

// RunWithGolden executes a scenario and compares the rendered plan against
// a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed. Failed assertions
// and golden mismatches fail the test.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	AssertGolden(t, scenario.Name, result.Plan)
	return nil
}

// AssertGolden compares a rendered plan against a golden file without
// re-running anything.
func AssertGolden(t *testing.T, name string, plan *ir.Plan) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(plan))
}
