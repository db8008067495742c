package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const ordersCUE = `
package test

merge: orders: {
	mode: "MERGE_ENTITY_UPSERT"
	era: {
		domain:      "integer"
		valid_from:  "valid_from"
		valid_until: "valid_until"
	}
	identity_columns: ["id"]
}
`

// Target [0,10) a=1, source [5,15) a=2: the target row shrinks to [0,5)
// and [5,15) is inserted.
const ordersBatch = `
target:
  - identity: { id: 1 }
    from: "0"
    until: "10"
    data: { a: 1 }
source:
  - row_id: 1
    identity: { id: 1 }
    from: "5"
    until: "15"
    data: { a: 2 }
`

// writeFile writes content to name inside dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ordersFixture writes the orders merge config and batch to a temp dir.
func ordersFixture(t *testing.T) (configDir, batchPath string) {
	t.Helper()
	dir := t.TempDir()
	configDir = filepath.Join(dir, "merges")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	writeFile(t, configDir, "orders.cue", ordersCUE)
	batchPath = writeFile(t, dir, "batch.yaml", ordersBatch)
	return configDir, batchPath
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// testCommand returns a bare command whose output goes to buf, for calling
// run functions directly.
func testCommand(buf *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}
