package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmerge/internal/coalesce"
	"github.com/roach88/tmerge/internal/identity"
	"github.com/roach88/tmerge/internal/interval"
	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/payload"
	"github.com/roach88/tmerge/internal/sweep"
	"github.com/roach88/tmerge/internal/testutil"
)

// classify runs sweep, payload resolution and coalescing before
// classifying, the way the planner does for one partition.
func classify(t *testing.T, cfg *ir.Config, sources []ir.SourceRow, targets []ir.TargetRow) []ir.PlannedAction {
	t.Helper()
	p := &identity.Partition{Key: "existing:1", Identity: testutil.K("id", 1), Sources: sources, Targets: targets}

	in := make([]sweep.Source, len(sources))
	for i, s := range sources {
		in[i] = sweep.Source{RowID: s.RowID, Period: s.Period}
	}
	periods := make([]ir.Period, len(targets))
	for i, tr := range targets {
		periods[i] = tr.Period
	}
	segs, err := sweep.Segments(in, periods)
	require.NoError(t, err)

	ids := make([]int64, len(sources))
	for i, s := range sources {
		ids[i] = s.RowID
	}
	hits := sweep.TargetRows(segs, ids, len(targets))

	resolved := payload.NewResolver(cfg).Resolve(sources, targets, segs, hits)
	return NewClassifier(cfg).Classify(p, coalesce.Coalesce(resolved), hits)
}

func ptr(p ir.Period) *ir.Period { return &p }

func kinds(actions []ir.PlannedAction) []ir.ActionKind {
	out := make([]ir.ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func overlapFixture() ([]ir.SourceRow, []ir.TargetRow) {
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Days("2024-01-01", "2024-03-01"), testutil.P("A", 1, "B", 2))}
	sources := []ir.SourceRow{testutil.SrcKey(1, testutil.K("id", 1), testutil.Days("2024-02-01", "2024-04-01"), testutil.P("B", 99, "C", nil))}
	return sources, targets
}

func TestClassifyPatchOverlap(t *testing.T) {
	sources, targets := overlapFixture()
	actions := classify(t, testutil.Config(ir.ModeMergeEntityPatch), sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionUpdate, ir.ActionInsert, ir.ActionInsert}, kinds(actions))

	upd := actions[0]
	assert.Equal(t, ir.EffectShrink, upd.Effect)
	assert.Equal(t, ptr(testutil.Days("2024-01-01", "2024-03-01")), upd.Old)
	assert.Equal(t, ptr(testutil.Days("2024-01-01", "2024-02-01")), upd.New)
	assert.Equal(t, testutil.P("A", 1, "B", 2), upd.Data)
	assert.Equal(t, interval.RelStarts, upd.TargetRelation)

	assert.Equal(t, ptr(testutil.Days("2024-02-01", "2024-03-01")), actions[1].New)
	assert.Equal(t, testutil.P("A", 1, "B", 99), actions[1].Data)
	assert.Equal(t, interval.RelOverlappedBy, actions[1].SourceRelation)

	assert.Equal(t, ptr(testutil.Days("2024-03-01", "2024-04-01")), actions[2].New)
	assert.Equal(t, testutil.P("B", 99), actions[2].Data)
	assert.Equal(t, []int64{1}, actions[2].RowIDs)
}

func TestClassifyReplaceOverlap(t *testing.T) {
	sources, targets := overlapFixture()
	actions := classify(t, testutil.Config(ir.ModeMergeEntityReplace), sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionUpdate, ir.ActionInsert}, kinds(actions))
	assert.Equal(t, ptr(testutil.Days("2024-01-01", "2024-02-01")), actions[0].New)
	assert.Equal(t, ptr(testutil.Days("2024-02-01", "2024-04-01")), actions[1].New)
	assert.Equal(t, testutil.P("B", 99, "C", nil), actions[1].Data)
}

func TestClassifyIdentical(t *testing.T) {
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1, "b", nil))}
	sources := []ir.SourceRow{testutil.Src(3, testutil.Per(0, 10), testutil.P("a", 1))}

	actions := classify(t, testutil.Config(ir.ModeMergeEntityUpsert), sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionSkipIdentical}, kinds(actions))
	assert.Equal(t, []int64{3}, actions[0].RowIDs)
	assert.Equal(t, interval.RelEquals, actions[0].SourceRelation)
}

func TestClassifyEphemeralOnlyChangeIsIdentical(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	cfg.EphemeralColumns = []string{"note"}
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1, "note", "x"))}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(0, 10), testutil.P("note", "y"))}

	actions := classify(t, cfg, sources, targets)
	assert.Equal(t, []ir.ActionKind{ir.ActionSkipIdentical}, kinds(actions))
}

func TestClassifyGrow(t *testing.T) {
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1))}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(10, 20), testutil.P("a", 1))}

	actions := classify(t, testutil.Config(ir.ModeMergeEntityUpsert), sources, targets)

	require.Len(t, actions, 1)
	assert.Equal(t, ir.ActionUpdate, actions[0].Kind)
	assert.Equal(t, ir.EffectGrow, actions[0].Effect)
	assert.Equal(t, ptr(testutil.Per(0, 20)), actions[0].New)
	assert.Equal(t, interval.RelMetBy, actions[0].SourceRelation)
}

func TestClassifyMoveUnderDeleteMissingTimeline(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	cfg.DeleteMode = ir.DeleteMissingTimeline
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1))}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(5, 15), testutil.P("a", 1))}

	actions := classify(t, cfg, sources, targets)

	require.Len(t, actions, 1)
	assert.Equal(t, ir.EffectMove, actions[0].Effect)
	assert.Equal(t, ptr(testutil.Per(5, 15)), actions[0].New)
}

func TestClassifyDeletesUncoveredTimeline(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	cfg.DeleteMode = ir.DeleteMissingTimeline
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1)),
		testutil.Tgt(testutil.K("id", 1), testutil.Per(10, 20), testutil.P("a", 1)),
	}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(0, 10), testutil.P("a", 2))}

	actions := classify(t, cfg, sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionUpdate, ir.ActionDelete}, kinds(actions))
	assert.Equal(t, ir.EffectNone, actions[0].Effect)
	assert.Equal(t, ptr(testutil.Per(10, 20)), actions[1].Old)
	assert.Empty(t, actions[1].RowIDs)
}

func TestClassifyWithoutDeleteModeKeepsUntouchedRows(t *testing.T) {
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1)),
		testutil.Tgt(testutil.K("id", 1), testutil.Per(10, 20), testutil.P("a", 1)),
	}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(0, 10), testutil.P("a", 2))}

	actions := classify(t, testutil.Config(ir.ModeMergeEntityUpsert), sources, targets)
	assert.Equal(t, []ir.ActionKind{ir.ActionUpdate}, kinds(actions))
}

func TestClassifyDeleteForPortionOf(t *testing.T) {
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 30), testutil.P("a", 1)),
		testutil.Tgt(testutil.K("id", 1), testutil.Per(30, 40), testutil.P("a", 2)),
	}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(10, 45), nil)}

	actions := classify(t, testutil.Config(ir.ModeDeleteForPortionOf), sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionUpdate, ir.ActionDelete}, kinds(actions))
	assert.Equal(t, ir.EffectShrink, actions[0].Effect)
	assert.Equal(t, ptr(testutil.Per(0, 10)), actions[0].New)
	assert.Equal(t, ptr(testutil.Per(30, 40)), actions[1].Old)
	assert.Equal(t, []int64{1}, actions[1].RowIDs)
}

func TestClassifyPortionOfSkipsRowsWithoutTarget(t *testing.T) {
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 1))}
	sources := []ir.SourceRow{
		testutil.Src(1, testutil.Per(2, 4), testutil.P("a", 2)),
		testutil.Src(2, testutil.Per(20, 30), testutil.P("a", 3)),
	}

	actions := classify(t, testutil.Config(ir.ModeUpdateForPortionOf), sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionUpdate, ir.ActionInsert, ir.ActionInsert, ir.ActionSkipNoTarget}, kinds(actions))
	assert.Equal(t, []int64{2}, actions[3].RowIDs)
	assert.Equal(t, MsgFiltered, actions[3].Message)
}

func TestClassifyNoSourcesDeletesEverything(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	cfg.DeleteMode = ir.DeleteMissingEntities
	p := &identity.Partition{Key: "existing:2", Targets: []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 2), testutil.Per(0, 10), testutil.P()),
		testutil.Tgt(testutil.K("id", 2), testutil.Per(10, 20), testutil.P()),
	}}

	actions := NewClassifier(cfg).Classify(p, nil, nil)
	assert.Equal(t, []ir.ActionKind{ir.ActionDelete, ir.ActionDelete}, kinds(actions))
}

func TestClassifyAddsValidTo(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	cfg.Era.Domain = ir.DomainDate
	cfg.Era.ValidTo = "valid_to"
	sources := []ir.SourceRow{testutil.Src(1, testutil.Days("2024-01-01", "2024-02-01"), testutil.P("a", 1))}

	actions := classify(t, cfg, sources, nil)

	require.Len(t, actions, 1)
	assert.Equal(t, ir.String("2024-01-31"), actions[0].Data["valid_to"])
	assert.Equal(t, ir.Int(9), ValidTo(ir.DomainInteger, 10))
	assert.Equal(t, ir.String("infinity"), ValidTo(ir.DomainInteger, ir.PosInfinity))
}

func TestClassifyRanksStartAlignedRunFirst(t *testing.T) {
	// The source splits the target row in three; the untouched head keeps
	// the original row.
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 30), testutil.P("a", 1))}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(10, 20), testutil.P("a", 2))}

	actions := classify(t, testutil.Config(ir.ModeMergeEntityUpsert), sources, targets)

	require.Equal(t, []ir.ActionKind{ir.ActionUpdate, ir.ActionInsert, ir.ActionInsert}, kinds(actions))
	assert.Equal(t, ptr(testutil.Per(0, 10)), actions[0].New)
	assert.Equal(t, ptr(testutil.Per(10, 20)), actions[1].New)
	assert.Equal(t, ptr(testutil.Per(20, 30)), actions[2].New)
	assert.Equal(t, testutil.P("a", 1), actions[2].Data)
}
