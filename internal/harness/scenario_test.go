package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmerge/internal/ir"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
config:
  mode: MERGE_ENTITY_UPSERT
  era: { domain: integer, valid_from: valid_from, valid_until: valid_until }
  identity_columns: [id]
target:
  - identity: { id: 1 }
    from: "0"
    until: "10"
    data: { a: 1 }
source:
  - row_id: 1
    identity: { id: 1 }
    from: "5"
    until: infinity
    data: { a: 2.50, b: null }
assertions:
  - type: feedback
    row_id: 1
    status: APPLIED
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, validScenario))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, ir.ModeMergeEntityUpsert, scenario.Config.Mode)
	assert.Equal(t, ir.DomainInteger, scenario.Config.Era.Domain)
	assert.Equal(t, []string{"id"}, scenario.Config.IdentityColumns)
	require.Len(t, scenario.Target, 1)
	require.Len(t, scenario.Source, 1)
	assert.Equal(t, int64(1), scenario.Source[0].RowID)
	assert.Equal(t, ir.Int(1), scenario.Source[0].Identity["id"])
	assert.Equal(t, "infinity", scenario.Source[0].Until)
	assert.True(t, ir.Equal(ir.MustDecimal("2.5"), scenario.Source[0].Data["a"]))
	assert.Equal(t, ir.Null{}, scenario.Source[0].Data["b"])
	assert.False(t, scenario.needsApply())
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, validScenario+"assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_UnknownConfigField(t *testing.T) {
	content := `
name: typo
description: "misspelled config field"
config:
  mode: MERGE_ENTITY_UPSERT
  identity_colums: [id]
assertions:
  - type: kinds
    kinds: []
`
	_, err := LoadScenario(writeScenario(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity_colums")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\nassertions: [{type: kinds, kinds: []}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nconfig: {mode: MERGE_ENTITY_UPSERT}\nassertions: [{type: kinds, kinds: []}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing mode",
			content: "name: n\ndescription: d\nassertions: [{type: kinds, kinds: []}]\n",
			wantErr: "config.mode is required",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "source without row id",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\nsource: [{from: '0', until: '1'}]\nassertions: [{type: kinds, kinds: []}]\n",
			wantErr: "source[0]: row_id is required",
		},
		{
			name:    "target without identity",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\ntarget: [{from: '0', until: '1'}]\nassertions: [{type: kinds, kinds: []}]\n",
			wantErr: "target[0]: identity is required",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "action without kind",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\nassertions: [{type: action}]\n",
			wantErr: "kind is required for action",
		},
		{
			name:    "feedback without status",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\nassertions: [{type: feedback, row_id: 1}]\n",
			wantErr: "status is required for feedback",
		},
		{
			name:    "final state without periods",
			content: "name: n\ndescription: d\nconfig: {mode: MERGE_ENTITY_UPSERT}\nassertions: [{type: final_state, identity: {id: 1}}]\n",
			wantErr: "periods is required for final_state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNeedsApply(t *testing.T) {
	s := &Scenario{Assertions: []Assertion{{Type: AssertKinds}}}
	assert.False(t, s.needsApply())

	s.Assertions = append(s.Assertions, Assertion{Type: AssertFinalState})
	assert.True(t, s.needsApply())

	s = &Scenario{Idempotent: true}
	assert.True(t, s.needsApply())
}

func TestRowSpecPeriod(t *testing.T) {
	per, err := RowSpec{From: "2024-01-01", Until: "infinity"}.Period(ir.DomainDate)
	require.NoError(t, err)
	assert.Equal(t, ir.DomainDate.MustParse("2024-01-01"), per.From)
	assert.Equal(t, ir.PosInfinity, per.Until)

	_, err = RowSpec{From: "yesterday", Until: "infinity"}.Period(ir.DomainDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from")
}
