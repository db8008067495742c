package ir

// MergeMode selects how source rows are combined with the target timeline.
type MergeMode string

const (
	ModeMergeEntityUpsert   MergeMode = "MERGE_ENTITY_UPSERT"
	ModeUpdateForPortionOf  MergeMode = "UPDATE_FOR_PORTION_OF"
	ModeMergeEntityPatch    MergeMode = "MERGE_ENTITY_PATCH"
	ModePatchForPortionOf   MergeMode = "PATCH_FOR_PORTION_OF"
	ModeMergeEntityReplace  MergeMode = "MERGE_ENTITY_REPLACE"
	ModeReplaceForPortionOf MergeMode = "REPLACE_FOR_PORTION_OF"
	ModeInsertNewEntities   MergeMode = "INSERT_NEW_ENTITIES"
	ModeDeleteForPortionOf  MergeMode = "DELETE_FOR_PORTION_OF"
)

// ValidMergeModes lists every accepted merge mode.
var ValidMergeModes = map[MergeMode]bool{
	ModeMergeEntityUpsert:   true,
	ModeUpdateForPortionOf:  true,
	ModeMergeEntityPatch:    true,
	ModePatchForPortionOf:   true,
	ModeMergeEntityReplace:  true,
	ModeReplaceForPortionOf: true,
	ModeInsertNewEntities:   true,
	ModeDeleteForPortionOf:  true,
}

// IsPatch reports whether explicit nulls in the source are ignored.
func (m MergeMode) IsPatch() bool {
	return m == ModeMergeEntityPatch || m == ModePatchForPortionOf
}

// IsReplace reports whether the last covering source replaces the payload.
func (m MergeMode) IsReplace() bool {
	return m == ModeMergeEntityReplace || m == ModeReplaceForPortionOf
}

// IsLastWriterWins reports whether only the newest covering source row
// contributes to a segment.
func (m MergeMode) IsLastWriterWins() bool {
	return m.IsReplace() || m == ModeInsertNewEntities || m == ModeDeleteForPortionOf
}

// IsForPortionOf reports whether the mode only touches existing timeline.
func (m MergeMode) IsForPortionOf() bool {
	switch m {
	case ModeUpdateForPortionOf, ModePatchForPortionOf, ModeReplaceForPortionOf, ModeDeleteForPortionOf:
		return true
	}
	return false
}

// DeleteMode controls removal of target timeline the source does not mention.
type DeleteMode string

const (
	DeleteNone                     DeleteMode = "NONE"
	DeleteMissingTimeline          DeleteMode = "DELETE_MISSING_TIMELINE"
	DeleteMissingEntities          DeleteMode = "DELETE_MISSING_ENTITIES"
	DeleteMissingTimelineAndEntity DeleteMode = "DELETE_MISSING_TIMELINE_AND_ENTITIES"
)

// ValidDeleteModes lists every accepted delete mode.
var ValidDeleteModes = map[DeleteMode]bool{
	DeleteNone:                     true,
	DeleteMissingTimeline:          true,
	DeleteMissingEntities:          true,
	DeleteMissingTimelineAndEntity: true,
}

// DeletesTimeline reports whether uncovered history of a sourced entity is removed.
func (d DeleteMode) DeletesTimeline() bool {
	return d == DeleteMissingTimeline || d == DeleteMissingTimelineAndEntity
}

// DeletesEntities reports whether target entities absent from the source are removed.
func (d DeleteMode) DeletesEntities() bool {
	return d == DeleteMissingEntities || d == DeleteMissingTimelineAndEntity
}

// IdentityStrategy selects which keys identify a source row's entity.
type IdentityStrategy string

const (
	StrategyStableKeyOnly  IdentityStrategy = "STABLE_KEY_ONLY"
	StrategyNaturalKeyOnly IdentityStrategy = "NATURAL_KEY_ONLY"
	StrategyHybrid         IdentityStrategy = "HYBRID"
)

// ValidIdentityStrategies lists every accepted strategy.
var ValidIdentityStrategies = map[IdentityStrategy]bool{
	StrategyStableKeyOnly:  true,
	StrategyNaturalKeyOnly: true,
	StrategyHybrid:         true,
}

// UsesStableKey reports whether source stable keys are consulted.
func (s IdentityStrategy) UsesStableKey() bool {
	return s == StrategyStableKeyOnly || s == StrategyHybrid
}

// UsesNaturalKeys reports whether natural keys are consulted.
func (s IdentityStrategy) UsesNaturalKeys() bool {
	return s == StrategyNaturalKeyOnly || s == StrategyHybrid
}

// Era names the boundary columns of a time-versioned table.
type Era struct {
	Name       string `json:"name" yaml:"name"`
	Domain     Domain `json:"domain" yaml:"domain"`
	ValidFrom  string `json:"valid_from" yaml:"valid_from"`
	ValidUntil string `json:"valid_until" yaml:"valid_until"`
	// ValidTo, when set, names an inclusive end column kept at until minus
	// one step.
	ValidTo string `json:"valid_to,omitempty" yaml:"valid_to"`
}

// Config is the static configuration of one merge.
type Config struct {
	Mode             MergeMode        `json:"mode" yaml:"mode"`
	DeleteMode       DeleteMode       `json:"delete_mode" yaml:"delete_mode"`
	Strategy         IdentityStrategy `json:"identity_strategy,omitempty" yaml:"identity_strategy"`
	Era              Era              `json:"era" yaml:"era"`
	IdentityColumns  []string         `json:"identity_columns" yaml:"identity_columns"`
	NaturalKeys      [][]string       `json:"natural_keys,omitempty" yaml:"natural_keys"`
	EphemeralColumns []string         `json:"ephemeral_columns,omitempty" yaml:"ephemeral_columns"`
	// FoundingMode makes a founding id alone sufficient to identify a new
	// entity.
	FoundingMode bool `json:"founding_mode,omitempty" yaml:"founding_mode"`
	// BackfillKeys reports discovered stable keys back on row feedback.
	BackfillKeys bool `json:"backfill_keys,omitempty" yaml:"backfill_keys"`
}

// EffectiveStrategy returns the configured strategy, or derives one from the
// declared keys when none is set.
func (c *Config) EffectiveStrategy() IdentityStrategy {
	if c.Strategy != "" {
		return c.Strategy
	}
	if len(c.NaturalKeys) == 0 {
		return StrategyStableKeyOnly
	}
	return StrategyHybrid
}

// EffectiveDeleteMode returns DeleteNone for an unset delete mode.
func (c *Config) EffectiveDeleteMode() DeleteMode {
	if c.DeleteMode == "" {
		return DeleteNone
	}
	return c.DeleteMode
}

// EphemeralSet returns the columns excluded from payload equality: the
// declared ephemeral columns plus the derived valid_to column.
func (c *Config) EphemeralSet() map[string]bool {
	set := make(map[string]bool, len(c.EphemeralColumns)+1)
	for _, col := range c.EphemeralColumns {
		set[col] = true
	}
	if c.Era.ValidTo != "" {
		set[c.Era.ValidTo] = true
	}
	return set
}

// SourceRow is one incoming row of the batch.
type SourceRow struct {
	RowID      int64   `json:"row_id"`
	FoundingID string  `json:"founding_id,omitempty"`
	Identity   Keys    `json:"identity,omitempty"`
	Period     Period  `json:"period"`
	Data       Payload `json:"data"`
}

// TargetRow is one stored row of the existing timeline.
type TargetRow struct {
	Identity Keys    `json:"identity"`
	Period   Period  `json:"period"`
	Data     Payload `json:"data"`
}
