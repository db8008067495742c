package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tmerge/internal/ir"
)

// CompileConfig parses a CUE value into a merge Config.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the merge struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`merge: orders: { mode: "MERGE_ENTITY_UPSERT", ... }`)
//	cfg, err := CompileConfig(v.LookupPath(cue.ParsePath("merge.orders")))
//
// CompileConfig only checks structure. Call Validate for semantic rules.
func CompileConfig(v cue.Value) (*ir.Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cfg := &ir.Config{}

	mode, err := requiredString(v, "mode")
	if err != nil {
		return nil, err
	}
	cfg.Mode = ir.MergeMode(mode)

	deleteMode, err := optionalString(v, "delete_mode")
	if err != nil {
		return nil, err
	}
	cfg.DeleteMode = ir.DeleteMode(deleteMode)

	strategy, err := optionalString(v, "identity_strategy")
	if err != nil {
		return nil, err
	}
	cfg.Strategy = ir.IdentityStrategy(strategy)

	cfg.Era, err = parseEra(v)
	if err != nil {
		return nil, err
	}

	if cfg.IdentityColumns, err = stringList(v, "identity_columns"); err != nil {
		return nil, err
	}
	if cfg.EphemeralColumns, err = stringList(v, "ephemeral_columns"); err != nil {
		return nil, err
	}
	if cfg.NaturalKeys, err = parseNaturalKeys(v); err != nil {
		return nil, err
	}

	if cfg.FoundingMode, err = optionalBool(v, "founding_mode"); err != nil {
		return nil, err
	}
	if cfg.BackfillKeys, err = optionalBool(v, "backfill_keys"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CompileAll compiles every merge declared under the top-level "merge"
// struct, keyed by name.
func CompileAll(v cue.Value) (map[string]*ir.Config, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	merges := v.LookupPath(cue.ParsePath("merge"))
	if !merges.Exists() {
		return map[string]*ir.Config{}, nil
	}

	iter, err := merges.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]*ir.Config)
	for iter.Next() {
		cfg, err := CompileConfig(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", iter.Selector().String(), err)
		}
		out[iter.Selector().String()] = cfg
	}
	return out, nil
}

// parseEra parses the era struct. The name defaults to "valid".
func parseEra(v cue.Value) (ir.Era, error) {
	eraVal := v.LookupPath(cue.ParsePath("era"))
	if !eraVal.Exists() {
		return ir.Era{}, &CompileError{
			Field:   "era",
			Message: "era is required",
			Pos:     v.Pos(),
		}
	}

	era := ir.Era{Name: "valid"}
	name, err := optionalString(eraVal, "name")
	if err != nil {
		return ir.Era{}, err
	}
	if name != "" {
		era.Name = name
	}

	domain, err := requiredString(eraVal, "domain")
	if err != nil {
		return ir.Era{}, err
	}
	era.Domain = ir.Domain(domain)

	if era.ValidFrom, err = requiredString(eraVal, "valid_from"); err != nil {
		return ir.Era{}, err
	}
	if era.ValidUntil, err = requiredString(eraVal, "valid_until"); err != nil {
		return ir.Era{}, err
	}
	if era.ValidTo, err = optionalString(eraVal, "valid_to"); err != nil {
		return ir.Era{}, err
	}
	return era, nil
}

// parseNaturalKeys accepts a list of column lists. A bare string list is
// read as a single key set.
func parseNaturalKeys(v cue.Value) ([][]string, error) {
	nkVal := v.LookupPath(cue.ParsePath("natural_keys"))
	if !nkVal.Exists() {
		return nil, nil
	}

	iter, err := nkVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var keys [][]string
	var flat []string
	for iter.Next() {
		elem := iter.Value()
		if s, err := elem.String(); err == nil {
			flat = append(flat, s)
			continue
		}
		var set []string
		if err := elem.Decode(&set); err != nil {
			return nil, &CompileError{
				Field:   "natural_keys",
				Message: "natural key must be a list of column names",
				Pos:     elem.Pos(),
			}
		}
		keys = append(keys, set)
	}
	if len(flat) > 0 {
		if len(keys) > 0 {
			return nil, &CompileError{
				Field:   "natural_keys",
				Message: "cannot mix column names and column lists",
				Pos:     nkVal.Pos(),
			}
		}
		keys = [][]string{flat}
	}
	return keys, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	var out []string
	if err := fv.Decode(&out); err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

// CompileError is a structural error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
