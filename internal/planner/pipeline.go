package planner

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/roach88/tmerge/internal/coalesce"
	"github.com/roach88/tmerge/internal/diff"
	"github.com/roach88/tmerge/internal/identity"
	"github.com/roach88/tmerge/internal/interval"
	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/payload"
	"github.com/roach88/tmerge/internal/sweep"
)

// Messages attached to skipped rows.
const (
	MsgEclipsed      = "Source row is eclipsed by later source rows covering its entire period."
	MsgNoTarget      = "Source row targets an entity that does not exist and the mode never creates entities."
	MsgExistingFound = "Source row matches an existing entity and the mode only inserts new entities."
)

// Pipeline is the planning path compiled for one configuration. It is
// immutable and safe for concurrent use.
type Pipeline struct {
	cfg         *ir.Config
	fingerprint string
	resolver    *payload.Resolver
	classifier  *diff.Classifier
}

func newPipeline(cfg *ir.Config, fingerprint string) *Pipeline {
	own := cloneConfig(cfg)
	return &Pipeline{
		cfg:         own,
		fingerprint: fingerprint,
		resolver:    payload.NewResolver(own),
		classifier:  diff.NewClassifier(own),
	}
}

// Config returns a copy of the configuration the pipeline was built for.
func (pl *Pipeline) Config() *ir.Config {
	return cloneConfig(pl.cfg)
}

// Fingerprint returns the configuration fingerprint.
func (pl *Pipeline) Fingerprint() string {
	return pl.fingerprint
}

// planPartition plans one entity. Invariant violations become ERROR
// actions for every source row of the partition, or one partition-level
// ERROR when it has none.
func (pl *Pipeline) planPartition(p *identity.Partition, logger *slog.Logger) []ir.PlannedAction {
	mode := pl.cfg.Mode

	if len(p.Sources) > 0 {
		switch {
		case mode == ir.ModeInsertNewEntities && !p.IsNew:
			return skipAll(p, ir.ActionSkipFiltered, MsgExistingFound)
		case mode.IsForPortionOf() && p.IsNew:
			return skipAll(p, ir.ActionSkipNoTarget, MsgNoTarget)
		}
	}

	active, eclipsed := pl.eclipse(p)

	sources := make([]sweep.Source, len(active.Sources))
	for i, s := range active.Sources {
		sources[i] = sweep.Source{RowID: s.RowID, Period: s.Period}
	}
	targets := make([]ir.Period, len(active.Targets))
	for i, t := range active.Targets {
		targets[i] = t.Period
	}

	segs, err := sweep.Segments(sources, targets)
	if err == nil {
		err = sweep.Check(segs)
	}
	if err != nil {
		return pl.failPartition(p, err, logger)
	}

	rowIDs := make([]int64, len(sources))
	for i, s := range sources {
		rowIDs[i] = s.RowID
	}
	hits := sweep.TargetRows(segs, rowIDs, len(targets))

	resolved := pl.resolver.Resolve(active.Sources, active.Targets, segs, hits)
	runs := coalesce.Coalesce(resolved)
	actions := pl.classifier.Classify(active, runs, hits)
	return append(actions, eclipsed...)
}

// eclipse splits off source rows whose period is covered by the union of
// the partition's later rows. Only modes where the newest row wins alone
// can drop a row without changing the result.
func (pl *Pipeline) eclipse(p *identity.Partition) (*identity.Partition, []ir.PlannedAction) {
	if !pl.cfg.Mode.IsLastWriterWins() || len(p.Sources) < 2 {
		return p, nil
	}

	covered := &interval.Set[ir.Point]{}
	dropped := make([]bool, len(p.Sources))
	n := 0
	for i := len(p.Sources) - 1; i >= 0; i-- {
		per := p.Sources[i].Period
		if covered.Covers(per) {
			dropped[i] = true
			n++
		}
		covered.Add(per)
	}
	if n == 0 {
		return p, nil
	}

	active := *p
	active.Sources = make([]ir.SourceRow, 0, len(p.Sources)-n)
	actions := make([]ir.PlannedAction, 0, n)
	for i, s := range p.Sources {
		if !dropped[i] {
			active.Sources = append(active.Sources, s)
			continue
		}
		actions = append(actions, skip(p, s, ir.ActionSkipEclipsed, MsgEclipsed))
	}
	return &active, actions
}

// failPartition converts an invariant violation into ERROR actions. A
// partition without source rows still reports one ERROR so that a corrupt
// target entity is never skipped silently.
func (pl *Pipeline) failPartition(p *identity.Partition, err error, logger *slog.Logger) []ir.PlannedAction {
	pe := &ir.PartitionError{
		Code:      ir.ErrCodeSegmentCorrupt,
		Partition: p.Key,
		Message:   err.Error(),
	}
	var (
		overlap *sweep.OverlapError
		old     *ir.Period
	)
	if errors.As(err, &overlap) {
		pe.Code = ir.ErrCodeTargetOverlap
		pe.Message = "target rows of one entity overlap"
		pe.Bounds = []string{
			pl.cfg.Era.Domain.FormatPeriod(overlap.First),
			pl.cfg.Era.Domain.FormatPeriod(overlap.Second),
		}
		first := overlap.First
		old = &first
	}

	logger.Error("partition not planned",
		"partition", p.Key,
		"code", pe.Code,
		"sources", len(p.Sources),
		"targets", len(p.Targets),
		"error", pe.Message)

	if len(p.Sources) > 0 {
		return skipAll(p, ir.ActionError, pe.Error())
	}
	return []ir.PlannedAction{{
		Kind:         ir.ActionError,
		PartitionKey: p.Key,
		IsNewEntity:  p.IsNew,
		Identity:     p.Identity,
		FoundingID:   p.FoundingID,
		Old:          old,
		RowIDs:       []int64{},
		Message:      pe.Error(),
	}}
}

func skipAll(p *identity.Partition, kind ir.ActionKind, msg string) []ir.PlannedAction {
	out := make([]ir.PlannedAction, 0, len(p.Sources))
	for _, s := range p.Sources {
		out = append(out, skip(p, s, kind, msg))
	}
	return out
}

func skip(p *identity.Partition, s ir.SourceRow, kind ir.ActionKind, msg string) ir.PlannedAction {
	per := s.Period
	return ir.PlannedAction{
		Kind:         kind,
		PartitionKey: p.Key,
		IsNewEntity:  p.IsNew,
		Identity:     p.Identity,
		FoundingID:   p.FoundingID,
		New:          &per,
		RowIDs:       []int64{s.RowID},
		Message:      msg,
	}
}

func cloneConfig(cfg *ir.Config) *ir.Config {
	own := *cfg
	own.IdentityColumns = slices.Clone(cfg.IdentityColumns)
	own.EphemeralColumns = slices.Clone(cfg.EphemeralColumns)
	own.NaturalKeys = make([][]string, len(cfg.NaturalKeys))
	for i, key := range cfg.NaturalKeys {
		own.NaturalKeys[i] = slices.Clone(key)
	}
	return &own
}
