package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmerge/internal/ir"
)

func TestExplainText(t *testing.T) {
	configDir, batchPath := ordersFixture(t)

	out, err := execute(t, NewExplainCommand(&RootOptions{Format: "text"}), configDir, batchPath)
	require.NoError(t, err)
	assert.Contains(t, out, "INSERT existing:1 new=[5,15)")
	assert.Contains(t, out, "UPDATE SHRINK existing:1 old=[0,10) new=[0,5)")
	assert.Contains(t, out, "--- target")
	assert.Contains(t, out, "+++ planned")
	assert.Contains(t, out, "+a: 2")
}

func TestExplainJSON(t *testing.T) {
	configDir, batchPath := ordersFixture(t)

	out, err := execute(t, NewExplainCommand(&RootOptions{Format: "json"}), configDir, batchPath)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []Explanation `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)

	for _, e := range resp.Data {
		switch e.Kind {
		case ir.ActionInsert:
			assert.Contains(t, e.Diff, "+a: 2")
		case ir.ActionUpdate:
			// Shrinking keeps the payload.
			assert.Empty(t, e.Diff)
		default:
			t.Fatalf("unexpected action %s", e.Kind)
		}
	}
}

func TestExplainNoChanges(t *testing.T) {
	configDir, _ := ordersFixture(t)
	batchPath := writeFile(t, t.TempDir(), "batch.yaml", `
target:
  - identity: { id: 1 }
    from: "0"
    until: "10"
    data: { a: 1 }
source:
  - row_id: 1
    identity: { id: 1 }
    from: "0"
    until: "10"
    data: { a: 1 }
`)

	out, err := execute(t, NewExplainCommand(&RootOptions{Format: "text"}), configDir, batchPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
}

func TestPayloadDiff(t *testing.T) {
	before := ir.Payload{"a": ir.Int(1), "b": ir.String("x")}
	after := ir.Payload{"a": ir.Int(2), "b": ir.String("x")}

	diff, err := payloadDiff(before, after)
	require.NoError(t, err)
	assert.Contains(t, diff, "-a: 1")
	assert.Contains(t, diff, "+a: 2")
	assert.Contains(t, diff, ` b: "x"`)

	same, err := payloadDiff(before, before)
	require.NoError(t, err)
	assert.Empty(t, same)
}
