package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"patch_ignores_nulls", "replace_coalesces", "delete_missing_timeline"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRender(t *testing.T) {
	got := string(Render(samplePlan()))

	want := "plan: p\n" +
		"domain: integer\n" +
		"actions:\n" +
		"  1/1 INSERT existing:1 new=[5,15) rows=[1] data={\"a\":2,\"b\":null}\n" +
		"  2/2 UPDATE SHRINK existing:1 old=[0,10) new=[0,5) rows=[1] data={\"a\":1}\n" +
		"feedback:\n" +
		"  1 APPLIED\n"
	assert.Equal(t, want, got)
}

func TestRender_Deterministic(t *testing.T) {
	first := Render(samplePlan())
	for range 10 {
		assert.Equal(t, first, Render(samplePlan()))
	}
}

func TestRenderLines_Nil(t *testing.T) {
	assert.Nil(t, RenderLines(nil))
}
