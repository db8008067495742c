package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/testutil"
)

func hybridConfig() *ir.Config {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	cfg.NaturalKeys = [][]string{{"ssn"}, {"email"}}
	return cfg
}

func partitionKeys(res *Result) []string {
	keys := make([]string, len(res.Partitions))
	for i, p := range res.Partitions {
		keys[i] = p.Key
	}
	return keys
}

func TestResolveStableKeyMatchesExisting(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(10, 20), testutil.P("a", 1)),
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("a", 0)),
	}
	sources := []ir.SourceRow{testutil.SrcKey(7, testutil.K("id", 1), testutil.Per(5, 15), testutil.P("a", 2))}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
	require.Len(t, res.Partitions, 1)

	p := res.Partitions[0]
	assert.Equal(t, "existing:1", p.Key)
	assert.False(t, p.IsNew)
	assert.Equal(t, testutil.K("id", 1), p.Identity)
	require.Len(t, p.Targets, 2)
	assert.Equal(t, testutil.Per(0, 10), p.Targets[0].Period, "targets ordered by period")
}

func TestResolveExplicitKeyForNewEntity(t *testing.T) {
	cfg := hybridConfig()
	// ssn matches entity 1, but the explicit stable key wins.
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("ssn", "A"))}
	sources := []ir.SourceRow{testutil.SrcKey(1, testutil.K("id", 99), testutil.Per(0, 10), testutil.P("ssn", "A"))}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	require.Len(t, res.Partitions, 1)
	assert.Equal(t, "new:key/99", res.Partitions[0].Key)
	assert.True(t, res.Partitions[0].IsNew)
	assert.Equal(t, testutil.K("id", 99), res.Partitions[0].Identity)
	assert.Empty(t, res.Partitions[0].Targets)
}

func TestResolveNaturalKeyLookup(t *testing.T) {
	cfg := hybridConfig()
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("ssn", "A", "email", "a@x"))}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(0, 10), testutil.P("email", "a@x"))}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	require.Len(t, res.Partitions, 1)
	assert.Equal(t, "existing:1", res.Partitions[0].Key)
	assert.Equal(t, testutil.K("id", 1), res.Partitions[0].Identity)
}

func TestResolveUnidentifiableRow(t *testing.T) {
	cfg := hybridConfig()
	sources := []ir.SourceRow{
		testutil.Src(1, testutil.Per(0, 10), testutil.P("name", "x")),
		testutil.SrcKey(2, testutil.K("id", nil), testutil.Per(0, 10), testutil.P("ssn", nil)),
	}

	res, err := Resolve(cfg, sources, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Partitions)
	require.Len(t, res.Rejected, 2)
	for i, a := range res.Rejected {
		assert.Equal(t, ir.ActionError, a.Kind)
		assert.Equal(t, []int64{int64(i + 1)}, a.RowIDs)
		assert.Contains(t, a.Message, "unidentifiable")
	}
}

func TestResolveAmbiguousNaturalKey(t *testing.T) {
	cfg := hybridConfig()
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("ssn", "A", "email", "one@x")),
		testutil.Tgt(testutil.K("id", 2), testutil.Per(0, 10), testutil.P("ssn", "B", "email", "two@x")),
	}
	// ssn points at entity 1, email at entity 2.
	sources := []ir.SourceRow{testutil.Src(5, testutil.Per(0, 10), testutil.P("ssn", "A", "email", "two@x"))}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	assert.Empty(t, res.Partitions)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, ir.ActionError, res.Rejected[0].Kind)
	assert.Contains(t, res.Rejected[0].Message, "ambiguous")
	assert.Contains(t, res.Rejected[0].Message, "[1 2]")
}

func TestResolveAmbiguousEntitiesAreNotDeleted(t *testing.T) {
	cfg := hybridConfig()
	cfg.DeleteMode = ir.DeleteMissingEntities
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("ssn", "A")),
		testutil.Tgt(testutil.K("id", 2), testutil.Per(0, 10), testutil.P("email", "b@x")),
		testutil.Tgt(testutil.K("id", 3), testutil.Per(0, 10), testutil.P("ssn", "C")),
	}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(0, 10), testutil.P("ssn", "A", "email", "b@x"))}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing:3"}, partitionKeys(res))
}

func TestResolveGroupsNewEntitiesByNaturalKey(t *testing.T) {
	cfg := hybridConfig()
	sources := []ir.SourceRow{
		testutil.Src(1, testutil.Per(0, 10), testutil.P("ssn", "S1")),
		testutil.Src(2, testutil.Per(10, 20), testutil.P("ssn", "S1", "email", "e@x")),
		testutil.Src(3, testutil.Per(20, 30), testutil.P("email", "e@x")),
		testutil.Src(4, testutil.Per(0, 10), testutil.P("ssn", "S2")),
	}

	res, err := Resolve(cfg, sources, nil)
	require.NoError(t, err)
	require.Len(t, res.Partitions, 2)

	assert.Equal(t, "new:nk/email=e@x", res.Partitions[0].Key)
	assert.Len(t, res.Partitions[0].Sources, 3)
	assert.Equal(t, "new:nk/ssn=S2", res.Partitions[1].Key)
}

func TestResolveFoundingGroupInheritsDiscoveredKey(t *testing.T) {
	cfg := hybridConfig()
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("ssn", "A"))}
	sources := []ir.SourceRow{
		{RowID: 1, FoundingID: "f1", Period: testutil.Per(0, 5), Data: testutil.P("ssn", "A")},
		{RowID: 2, FoundingID: "f1", Period: testutil.Per(5, 10), Data: testutil.P("note", "no keys")},
	}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	require.Empty(t, res.Rejected)
	require.Len(t, res.Partitions, 1)
	assert.Equal(t, "existing:1", res.Partitions[0].Key)
	assert.Equal(t, "f1", res.Partitions[0].FoundingID)
	assert.Len(t, res.Partitions[0].Sources, 2)
}

func TestResolveFoundingModeAloneIdentifies(t *testing.T) {
	sources := []ir.SourceRow{
		{RowID: 2, FoundingID: "f1", Period: testutil.Per(5, 10), Data: testutil.P("a", 2)},
		{RowID: 1, FoundingID: "f1", Period: testutil.Per(0, 5), Data: testutil.P("a", 1)},
	}

	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	res, err := Resolve(cfg, sources, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Partitions)
	assert.Len(t, res.Rejected, 2)

	cfg.FoundingMode = true
	res, err = Resolve(cfg, sources, nil)
	require.NoError(t, err)
	require.Len(t, res.Partitions, 1)
	assert.Equal(t, "new:found/f1", res.Partitions[0].Key)
	assert.Equal(t, int64(1), res.Partitions[0].Sources[0].RowID, "sources ordered by row id")
}

func TestResolveFoundingGroupConflict(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P()),
		testutil.Tgt(testutil.K("id", 2), testutil.Per(0, 10), testutil.P()),
	}
	sources := []ir.SourceRow{
		{RowID: 1, FoundingID: "f", Identity: testutil.K("id", 1), Period: testutil.Per(0, 5), Data: testutil.P()},
		{RowID: 2, FoundingID: "f", Identity: testutil.K("id", 2), Period: testutil.Per(0, 5), Data: testutil.P()},
	}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	assert.Empty(t, res.Partitions)
	require.Len(t, res.Rejected, 2)
	assert.Contains(t, res.Rejected[0].Message, "multiple distinct entities")
}

func TestResolveStrategiesRestrictKeys(t *testing.T) {
	targets := []ir.TargetRow{testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P("ssn", "A"))}
	sources := []ir.SourceRow{testutil.Src(1, testutil.Per(0, 10), testutil.P("ssn", "A"))}

	cfg := hybridConfig()
	cfg.Strategy = ir.StrategyStableKeyOnly
	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	assert.Len(t, res.Rejected, 1, "natural keys ignored")

	cfg.Strategy = ir.StrategyNaturalKeyOnly
	keyed := []ir.SourceRow{testutil.SrcKey(1, testutil.K("id", 42), testutil.Per(0, 10), testutil.P("ssn", "A"))}
	res, err = Resolve(cfg, keyed, targets)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing:1"}, partitionKeys(res), "stable key ignored")
}

func TestResolveDeleteMissingEntities(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	targets := []ir.TargetRow{
		testutil.Tgt(testutil.K("id", 1), testutil.Per(0, 10), testutil.P()),
		testutil.Tgt(testutil.K("id", 2), testutil.Per(0, 10), testutil.P()),
	}
	sources := []ir.SourceRow{testutil.SrcKey(1, testutil.K("id", 1), testutil.Per(0, 10), testutil.P())}

	res, err := Resolve(cfg, sources, targets)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing:1"}, partitionKeys(res))

	cfg.DeleteMode = ir.DeleteMissingEntities
	res, err = Resolve(cfg, sources, targets)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing:1", "existing:2"}, partitionKeys(res))
	assert.Empty(t, res.Partitions[1].Sources)
}

func TestResolveRejectsIncompleteTargetKey(t *testing.T) {
	cfg := testutil.Config(ir.ModeMergeEntityUpsert)
	_, err := Resolve(cfg, nil, []ir.TargetRow{testutil.Tgt(testutil.K("id", nil), testutil.Per(0, 1), testutil.P())})
	require.Error(t, err)
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	cfg := hybridConfig()
	sources := []ir.SourceRow{
		testutil.Src(3, testutil.Per(0, 10), testutil.P("ssn", "S")),
		testutil.Src(1, testutil.Per(10, 20), testutil.P("ssn", "S")),
	}
	_, err := Resolve(cfg, sources, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sources[0].RowID)
}
