package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/tmerge/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// General validation errors (E200)
	ErrUnsupportedIRType = "E200" // unsupported IR type for validation

	// Enum errors (E201-E204)
	ErrInvalidMergeMode  = "E201" // unknown merge mode
	ErrInvalidDeleteMode = "E202" // unknown delete mode
	ErrInvalidStrategy   = "E203" // unknown identity strategy
	ErrInvalidDomain     = "E204" // unknown era domain

	// Column errors (E205-E209)
	ErrEraColumn         = "E205" // missing or clashing era column
	ErrNoIdentity        = "E206" // no stable identity column
	ErrInvalidNaturalKey = "E207" // empty natural key set or column
	ErrDuplicateColumn   = "E208" // column listed twice
	ErrColumnConflict    = "E209" // column used in incompatible roles

	// Combination errors (E210-E219)
	ErrStrategyNeedsNaturalKeys = "E210" // strategy requires natural keys
	ErrDeleteModeUnsupported    = "E211" // delete mode not allowed for merge mode
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled merge configuration.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch cfg := v.(type) {
	case *ir.Config:
		return validateConfig(cfg)
	case ir.Config:
		return validateConfig(&cfg)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateConfig(cfg *ir.Config) []ValidationError {
	var errs []ValidationError

	// E201-E204: enums
	if !ir.ValidMergeModes[cfg.Mode] {
		errs = append(errs, ValidationError{
			Field:   "mode",
			Message: fmt.Sprintf("invalid merge mode %q", cfg.Mode),
			Code:    ErrInvalidMergeMode,
		})
	}
	if !ir.ValidDeleteModes[cfg.EffectiveDeleteMode()] {
		errs = append(errs, ValidationError{
			Field:   "delete_mode",
			Message: fmt.Sprintf("invalid delete mode %q", cfg.DeleteMode),
			Code:    ErrInvalidDeleteMode,
		})
	}
	if cfg.Strategy != "" && !ir.ValidIdentityStrategies[cfg.Strategy] {
		errs = append(errs, ValidationError{
			Field:   "identity_strategy",
			Message: fmt.Sprintf("invalid identity strategy %q", cfg.Strategy),
			Code:    ErrInvalidStrategy,
		})
	}
	if !ir.ValidDomains[cfg.Era.Domain] {
		errs = append(errs, ValidationError{
			Field:   "era.domain",
			Message: fmt.Sprintf("invalid era domain %q, must be \"integer\", \"date\", or \"timestamp\"", cfg.Era.Domain),
			Code:    ErrInvalidDomain,
		})
	}

	errs = append(errs, validateEra(&cfg.Era)...)
	errs = append(errs, validateColumns(cfg)...)

	// E210: a natural-key strategy needs natural keys
	if cfg.Strategy.UsesNaturalKeys() && len(cfg.NaturalKeys) == 0 {
		errs = append(errs, ValidationError{
			Field:   "natural_keys",
			Message: fmt.Sprintf("identity strategy %s requires at least one natural key", cfg.Strategy),
			Code:    ErrStrategyNeedsNaturalKeys,
		})
	}

	// E211: modes that never keep unmentioned timeline reject delete modes
	if cfg.EffectiveDeleteMode() != ir.DeleteNone &&
		(cfg.Mode == ir.ModeInsertNewEntities || cfg.Mode == ir.ModeDeleteForPortionOf) {
		errs = append(errs, ValidationError{
			Field:   "delete_mode",
			Message: fmt.Sprintf("delete mode %s is not supported with merge mode %s", cfg.DeleteMode, cfg.Mode),
			Code:    ErrDeleteModeUnsupported,
		})
	}

	return errs
}

// validateEra checks the boundary column names.
func validateEra(era *ir.Era) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(era.ValidFrom) == "" {
		errs = append(errs, ValidationError{Field: "era.valid_from", Message: "valid_from column is required", Code: ErrEraColumn})
	}
	if strings.TrimSpace(era.ValidUntil) == "" {
		errs = append(errs, ValidationError{Field: "era.valid_until", Message: "valid_until column is required", Code: ErrEraColumn})
	}
	if era.ValidFrom != "" && era.ValidFrom == era.ValidUntil {
		errs = append(errs, ValidationError{
			Field:   "era.valid_until",
			Message: fmt.Sprintf("valid_until must differ from valid_from %q", era.ValidFrom),
			Code:    ErrEraColumn,
		})
	}
	if era.ValidTo != "" && (era.ValidTo == era.ValidFrom || era.ValidTo == era.ValidUntil) {
		errs = append(errs, ValidationError{
			Field:   "era.valid_to",
			Message: fmt.Sprintf("valid_to %q must differ from the other era columns", era.ValidTo),
			Code:    ErrEraColumn,
		})
	}
	return errs
}

// validateColumns checks identity, natural key and ephemeral column lists.
func validateColumns(cfg *ir.Config) []ValidationError {
	var errs []ValidationError

	// E206: stable identity is required to address target rows
	if len(cfg.IdentityColumns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "identity_columns",
			Message: "at least one identity column is required",
			Code:    ErrNoIdentity,
		})
	}
	errs = append(errs, checkList("identity_columns", cfg.IdentityColumns)...)
	errs = append(errs, checkList("ephemeral_columns", cfg.EphemeralColumns)...)

	// E207: natural keys
	for i, set := range cfg.NaturalKeys {
		field := fmt.Sprintf("natural_keys[%d]", i)
		if len(set) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "natural key must name at least one column",
				Code:    ErrInvalidNaturalKey,
			})
			continue
		}
		errs = append(errs, checkList(field, set)...)
	}

	// E209: role conflicts
	era := map[string]bool{cfg.Era.ValidFrom: true, cfg.Era.ValidUntil: true}
	if cfg.Era.ValidTo != "" {
		era[cfg.Era.ValidTo] = true
	}
	keyCols := make(map[string]bool)
	for i, col := range cfg.IdentityColumns {
		keyCols[col] = true
		if era[col] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("identity_columns[%d]", i),
				Message: fmt.Sprintf("identity column %q is an era column", col),
				Code:    ErrColumnConflict,
			})
		}
	}
	for _, set := range cfg.NaturalKeys {
		for _, col := range set {
			keyCols[col] = true
		}
	}
	for i, col := range cfg.EphemeralColumns {
		if keyCols[col] || era[col] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("ephemeral_columns[%d]", i),
				Message: fmt.Sprintf("ephemeral column %q is also a key or era column", col),
				Code:    ErrColumnConflict,
			})
		}
	}

	return errs
}

// checkList reports empty and duplicate column names.
func checkList(field string, cols []string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(cols))
	for i, col := range cols {
		if strings.TrimSpace(col) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "column name must be non-empty",
				Code:    ErrInvalidNaturalKey,
			})
			continue
		}
		if seen[col] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("duplicate column: %q", col),
				Code:    ErrDuplicateColumn,
			})
		}
		seen[col] = true
	}
	return errs
}
