package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios_Directory(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Len(t, files, 9)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "ambiguous_natural_key.yaml"), files[0])
}

func TestFindScenarios_File(t *testing.T) {
	path := filepath.Join("testdata", "scenarios", "replace_eclipse.yaml")
	files, err := FindScenarios(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFindScenarios_Missing(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "nope"))
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "does not exist")
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_good.yaml"), []byte(validScenario), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_broken.yaml"), []byte("name: broken\n"), 0644))

	failing := `
name: failing
description: "expects the wrong status"
config:
  mode: MERGE_ENTITY_UPSERT
  era: { domain: integer, valid_from: valid_from, valid_until: valid_until }
  identity_columns: [id]
source:
  - row_id: 1
    identity: { id: 1 }
    from: "0"
    until: "10"
assertions:
  - type: feedback
    row_id: 1
    status: SKIPPED_IDENTICAL
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_failing.yml"), []byte(failing), 0644))

	files, err := FindScenarios(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	res := RunSuite(files)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Failures, 2)
	assert.Contains(t, res.Failures[0].Errors[0], "invalid scenario")
	assert.Equal(t, "failing", res.Failures[1].Scenario)
}

func TestRunSuite_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)

	res := RunSuite(files)
	assert.Equal(t, len(files), res.Passed, "failures: %+v", res.Failures)
	assert.Empty(t, res.Failures)
}
