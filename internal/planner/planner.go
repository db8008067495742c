package planner

import (
	"cmp"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/tmerge/internal/feedback"
	"github.com/roach88/tmerge/internal/identity"
	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/order"
)

// MsgInvalidPeriod is the message for source rows whose period is empty.
const MsgInvalidPeriod = "Source row has an empty or inverted period."

// Batch is the immutable input of one planning call.
type Batch struct {
	Source []ir.SourceRow `json:"source" yaml:"source"`
	Target []ir.TargetRow `json:"target" yaml:"target"`
}

// Planner plans batches for one merge configuration.
//
// Thread-safety: Plan is safe for concurrent use. A Planner holds no state
// between calls besides its compiled pipeline.
type Planner struct {
	pipeline *Pipeline
	workers  int
	logger   *slog.Logger
	ids      IDGenerator
	cache    *Cache
}

// Option allows configuration of planner parameters.
type Option func(*Planner)

// WithWorkers sets the number of partitions planned concurrently.
//
// Default: runtime.GOMAXPROCS(0). Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(p *Planner) {
		p.workers = max(n, 1)
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIDGenerator sets the plan ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Planner) {
		if g != nil {
			p.ids = g
		}
	}
}

// WithCache reuses compiled pipelines from c.
func WithCache(c *Cache) Option {
	return func(p *Planner) {
		p.cache = c
	}
}

// New creates a Planner for cfg. It returns a *ConfigError when cfg fails
// validation.
func New(cfg *ir.Config, opts ...Option) (*Planner, error) {
	p := &Planner{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.cache != nil {
		p.pipeline, err = p.cache.Get(cfg)
	} else {
		p.pipeline, err = Compile(cfg)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Plan is a convenience wrapper creating a Planner and planning b.
func Plan(cfg *ir.Config, b Batch, opts ...Option) (*ir.Plan, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return p.Plan(b)
}

// Config returns a copy of the planner's configuration.
func (p *Planner) Config() *ir.Config {
	return p.pipeline.Config()
}

// Plan computes the ordered plan for b. Row-level problems become ERROR or
// SKIP feedback; an error is returned only when the batch as a whole cannot
// be planned.
func (p *Planner) Plan(b Batch) (*ir.Plan, error) {
	start := time.Now()
	cfg := p.pipeline.cfg

	if err := checkRowIDs(b.Source); err != nil {
		return nil, err
	}

	valid, rejected := splitInvalid(b.Source)

	res, err := identity.Resolve(cfg, valid, b.Target)
	if err != nil {
		return nil, &InputError{Code: ErrCodeTargetIdentity, Message: err.Error(), Err: err}
	}

	p.logger.Debug("batch partitioned",
		"sources", len(b.Source),
		"targets", len(b.Target),
		"partitions", len(res.Partitions),
		"rejected", len(res.Rejected)+len(rejected))

	results := make([][]ir.PlannedAction, len(res.Partitions))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range res.Partitions {
		g.Go(func() error {
			results[i] = p.pipeline.planPartition(&res.Partitions[i], p.logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("plan partitions: %w", err)
	}

	actions := slices.Concat(append(results, rejected, res.Rejected)...)
	if actions == nil {
		actions = []ir.PlannedAction{}
	}
	order.Sort(actions)

	plan := &ir.Plan{
		ID:          p.ids.Generate(),
		Fingerprint: p.pipeline.fingerprint,
		Domain:      cfg.Era.Domain,
		Actions:     actions,
		Feedback:    feedback.Aggregate(b.Source, actions, cfg.BackfillKeys),
	}

	m := getMetrics()
	m.partitionTotal.Add(float64(len(res.Partitions)))
	for _, a := range actions {
		m.actionsTotal.WithLabelValues(string(cfg.Mode), string(a.Kind)).Inc()
	}
	m.planDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("plan computed",
		"plan_id", plan.ID,
		"mode", cfg.Mode,
		"actions", len(actions),
		"inserts", plan.Count(ir.ActionInsert),
		"updates", plan.Count(ir.ActionUpdate),
		"deletes", plan.Count(ir.ActionDelete),
		"errors", plan.Count(ir.ActionError))

	return plan, nil
}

// checkRowIDs rejects batches with repeated row ids; feedback is keyed by
// row id.
func checkRowIDs(sources []ir.SourceRow) error {
	seen := make(map[int64]bool, len(sources))
	for _, s := range sources {
		if seen[s.RowID] {
			return &InputError{
				Code:    ErrCodeDuplicateRowID,
				Message: "row id appears more than once in the batch",
				RowID:   s.RowID,
			}
		}
		seen[s.RowID] = true
	}
	return nil
}

// splitInvalid separates rows with an empty period, which become ERROR
// actions without entering identity resolution.
func splitInvalid(sources []ir.SourceRow) ([]ir.SourceRow, []ir.PlannedAction) {
	valid := make([]ir.SourceRow, 0, len(sources))
	var rejected []ir.PlannedAction
	for _, s := range sources {
		if s.Period.Valid() {
			valid = append(valid, s)
			continue
		}
		per := s.Period
		rejected = append(rejected, ir.PlannedAction{
			Kind:       ir.ActionError,
			FoundingID: s.FoundingID,
			New:        &per,
			RowIDs:     []int64{s.RowID},
			Message:    MsgInvalidPeriod,
		})
	}
	slices.SortFunc(rejected, func(a, b ir.PlannedAction) int {
		return cmp.Compare(a.RowIDs[0], b.RowIDs[0])
	})
	return valid, rejected
}
