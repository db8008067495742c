package compiler

import (
	"fmt"

	"github.com/roach88/tmerge/internal/ir"
)

// Warning is a configuration that is valid but probably not intended.
// Warnings do not block planning.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// Lint reports suspicious but valid settings of cfg.
func Lint(cfg *ir.Config) []Warning {
	var warnings []Warning

	strategy := cfg.EffectiveStrategy()
	if strategy == ir.StrategyStableKeyOnly && len(cfg.NaturalKeys) > 0 {
		warnings = append(warnings, Warning{
			Field:   "natural_keys",
			Message: "natural keys are ignored by identity strategy STABLE_KEY_ONLY",
		})
	}

	if cfg.Mode.IsForPortionOf() && cfg.EffectiveDeleteMode().DeletesEntities() {
		warnings = append(warnings, Warning{
			Field:   "delete_mode",
			Message: fmt.Sprintf("%s never creates entities but %s removes every entity absent from the batch", cfg.Mode, cfg.DeleteMode),
		})
	}

	if cfg.FoundingMode && strategy == ir.StrategyNaturalKeyOnly {
		warnings = append(warnings, Warning{
			Field:   "founding_mode",
			Message: "rows without natural keys are identified by founding id alone",
		})
	}

	if cfg.BackfillKeys && cfg.Mode == ir.ModeDeleteForPortionOf {
		warnings = append(warnings, Warning{
			Field:   "backfill_keys",
			Message: "DELETE_FOR_PORTION_OF has no rows to back-fill keys onto",
		})
	}

	return warnings
}
