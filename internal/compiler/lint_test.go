package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tmerge/internal/ir"
)

func TestLintClean(t *testing.T) {
	assert.Empty(t, Lint(validConfig()))
}

func TestLintUnusedNaturalKeys(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy = ir.StrategyStableKeyOnly
	cfg.NaturalKeys = [][]string{{"email"}}

	warnings := Lint(cfg)
	require.Len(t, warnings, 1)
	assert.Equal(t, "natural_keys", warnings[0].Field)
}

func TestLintPortionOfDeletesEntities(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = ir.ModeUpdateForPortionOf
	cfg.DeleteMode = ir.DeleteMissingTimelineAndEntity

	warnings := Lint(cfg)
	require.Len(t, warnings, 1)
	assert.Equal(t, "delete_mode", warnings[0].Field)
	assert.Contains(t, warnings[0].String(), "UPDATE_FOR_PORTION_OF")
}
