package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmerge/internal/ir"
)

func per(from, until ir.Point) *ir.Period {
	return &ir.Period{From: from, Until: until}
}

func samplePlan() *ir.Plan {
	return &ir.Plan{
		ID:     "p",
		Domain: ir.DomainInteger,
		Actions: []ir.PlannedAction{
			{Seq: 1, StatementSeq: 1, Kind: ir.ActionInsert, PartitionKey: "existing:1", New: per(5, 15), RowIDs: []int64{1}, Data: ir.Payload{"a": ir.Int(2), "b": ir.Null{}}},
			{Seq: 2, StatementSeq: 2, Kind: ir.ActionUpdate, Effect: ir.EffectShrink, PartitionKey: "existing:1", Old: per(0, 10), New: per(0, 5), RowIDs: []int64{1}, Data: ir.Payload{"a": ir.Int(1)}},
		},
		Feedback: []ir.Feedback{{RowID: 1, Status: ir.StatusApplied}},
	}
}

func TestAssertAction(t *testing.T) {
	plan := samplePlan()
	d := ir.DomainInteger

	tests := []struct {
		name string
		want Assertion
		ok   bool
	}{
		{"kind only", Assertion{Kind: ir.ActionInsert}, true},
		{"effect", Assertion{Kind: ir.ActionUpdate, Effect: ir.EffectShrink}, true},
		{"wrong effect", Assertion{Kind: ir.ActionUpdate, Effect: ir.EffectGrow}, false},
		{"old and new", Assertion{Kind: ir.ActionUpdate, Old: "[0,10)", New: "[0,5)"}, true},
		{"old on insert", Assertion{Kind: ir.ActionInsert, Old: "[0,10)"}, false},
		{"rows", Assertion{Kind: ir.ActionInsert, Rows: []int64{1}}, true},
		{"wrong rows", Assertion{Kind: ir.ActionInsert, Rows: []int64{}}, false},
		{"data subset", Assertion{Kind: ir.ActionInsert, Data: ir.Payload{"a": ir.Int(2)}}, true},
		{"explicit null", Assertion{Kind: ir.ActionInsert, Data: ir.Payload{"b": ir.Null{}}}, true},
		{"null is not absent", Assertion{Kind: ir.ActionUpdate, Data: ir.Payload{"b": ir.Null{}}}, false},
		{"decimal equals int", Assertion{Kind: ir.ActionInsert, Data: ir.Payload{"a": ir.MustDecimal("2")}}, true},
		{"missing kind", Assertion{Kind: ir.ActionDelete}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertAction(plan, tt.want, d)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertAction, ae.Type)
			assert.NotEmpty(t, ae.Plan)
		})
	}
}

func TestAssertActionCount(t *testing.T) {
	plan := samplePlan()
	assert.NoError(t, assertActionCount(plan, Assertion{Kind: ir.ActionInsert, Count: 1}, ir.DomainInteger))
	assert.NoError(t, assertActionCount(plan, Assertion{Kind: ir.ActionDelete, Count: 0}, ir.DomainInteger))

	err := assertActionCount(plan, Assertion{Kind: ir.ActionInsert, Count: 3}, ir.DomainInteger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSERT appears 1 times")
}

func TestAssertFeedback(t *testing.T) {
	plan := samplePlan()
	plan.Feedback = append(plan.Feedback, ir.Feedback{RowID: 2, Status: ir.StatusError, Message: "ambiguous natural key"})

	assert.NoError(t, assertFeedback(plan, Assertion{RowID: 1, Status: ir.StatusApplied}, ir.DomainInteger))
	assert.NoError(t, assertFeedback(plan, Assertion{RowID: 2, Status: ir.StatusError, Message: "ambiguous"}, ir.DomainInteger))
	assert.Error(t, assertFeedback(plan, Assertion{RowID: 2, Status: ir.StatusError, Message: "overlap"}, ir.DomainInteger))

	err := assertFeedback(plan, Assertion{RowID: 9, Status: ir.StatusApplied}, ir.DomainInteger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feedback for row")
}

func TestAssertFinalState(t *testing.T) {
	cfg := &ir.Config{Era: ir.Era{Domain: ir.DomainInteger}, IdentityColumns: []string{"id"}}
	final := []ir.TargetRow{
		{Identity: ir.Keys{"id": ir.Int(1)}, Period: *per(0, 5)},
		{Identity: ir.Keys{"id": ir.Int(1)}, Period: *per(5, ir.PosInfinity)},
		{Identity: ir.Keys{"id": ir.Int(2)}, Period: *per(0, 5)},
	}

	assert.NoError(t, assertFinalState(final, Assertion{Identity: ir.Keys{"id": ir.Int(1)}, Periods: []string{"[0,5)", "[5,infinity)"}}, cfg))
	assert.NoError(t, assertFinalState(final, Assertion{Identity: ir.Keys{"id": ir.Int(3)}, Periods: []string{}}, cfg))
	assert.Error(t, assertFinalState(final, Assertion{Identity: ir.Keys{"id": ir.Int(2)}, Periods: []string{"[0,10)"}}, cfg))
}

func TestCheckPlan(t *testing.T) {
	plan := samplePlan()
	sources := []ir.SourceRow{{RowID: 1}}
	assert.Empty(t, checkPlan(plan, sources))

	sources = append(sources, ir.SourceRow{RowID: 2})
	errs := checkPlan(plan, sources)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "2 source rows, 1 feedback entries")
	assert.Contains(t, errs[1], "row 2 has no feedback")

	plan.Actions[0], plan.Actions[1] = plan.Actions[1], plan.Actions[0]
	errs = checkPlan(plan, sources[:1])
	assert.Contains(t, errs, "order: actions are not in execution order")
}

func TestCheckReplan(t *testing.T) {
	first := samplePlan()

	clean := &ir.Plan{
		Actions:  []ir.PlannedAction{{Kind: ir.ActionSkipIdentical, RowIDs: []int64{1}}},
		Feedback: []ir.Feedback{{RowID: 1, Status: ir.StatusSkippedIdentical}},
	}
	assert.Empty(t, checkReplan(first, clean))

	dirty := &ir.Plan{
		Actions:  []ir.PlannedAction{{Kind: ir.ActionInsert, PartitionKey: "existing:1", RowIDs: []int64{1}}},
		Feedback: []ir.Feedback{{RowID: 1, Status: ir.StatusError, Message: "boom"}},
	}
	errs := checkReplan(first, dirty)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "second run plans INSERT existing:1")
	assert.Contains(t, errs[1], "row 1 fails on second run: boom")

	assert.Equal(t, []string{"idempotence: plan was not applied"}, checkReplan(first, nil))
}
