package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/planner"
	"github.com/roach88/tmerge/internal/store"
	"github.com/roach88/tmerge/internal/testutil"
)

// Harness runs scenarios with a fixed plan ID and deterministic stable keys.
type Harness struct {
	cfg    *ir.Config
	ids    *testutil.FixedIDGenerator
	keys   *testutil.SequentialKeyGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Parse the scenario rows in the era's domain
//  2. Plan the batch
//  3. If the scenario applies its plan: seed a fresh in-memory store, apply,
//     reload and plan again
//  4. Evaluate built-in checks and assertions
//
// Configuration and input errors abort the run; failed assertions are
// reported on the result.
func Run(scenario *Scenario) (*Result, error) {
	h := &Harness{
		cfg:    &scenario.Config,
		ids:    testutil.NewFixedIDGenerator(scenario.PlanID),
		keys:   testutil.NewSequentialKeyGenerator(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	batch, err := h.batch(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.Plan, err = h.plan(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to plan: %w", err)
	}

	if scenario.needsApply() {
		if err := h.applyAndReplan(context.Background(), batch, result); err != nil {
			return nil, err
		}
	}

	for _, errMsg := range checkPlan(result.Plan, batch.Source) {
		result.AddError(errMsg)
	}
	if scenario.Idempotent {
		for _, errMsg := range checkReplan(result.Plan, result.Replan) {
			result.AddError(errMsg)
		}
	}

	actx := &AssertionContext{Config: h.cfg}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// batch converts the scenario rows into planner input.
func (h *Harness) batch(s *Scenario) (planner.Batch, error) {
	domain := h.cfg.Era.Domain
	b := planner.Batch{
		Source: make([]ir.SourceRow, 0, len(s.Source)),
		Target: make([]ir.TargetRow, 0, len(s.Target)),
	}
	for i, row := range s.Target {
		per, err := row.Period(domain)
		if err != nil {
			return planner.Batch{}, fmt.Errorf("target[%d]: %w", i, err)
		}
		b.Target = append(b.Target, ir.TargetRow{Identity: row.Identity, Period: per, Data: row.Data})
	}
	for i, row := range s.Source {
		per, err := row.Period(domain)
		if err != nil {
			return planner.Batch{}, fmt.Errorf("source[%d]: %w", i, err)
		}
		b.Source = append(b.Source, ir.SourceRow{
			RowID:      row.RowID,
			FoundingID: row.FoundingID,
			Identity:   row.Identity,
			Period:     per,
			Data:       row.Data,
		})
	}
	return b, nil
}

func (h *Harness) plan(b planner.Batch) (*ir.Plan, error) {
	return planner.Plan(h.cfg, b,
		planner.WithIDGenerator(h.ids),
		planner.WithLogger(h.logger),
	)
}

// applyAndReplan applies the plan to a scratch store seeded with the
// scenario's target, then plans the same source against the result.
func (h *Harness) applyAndReplan(ctx context.Context, b planner.Batch, result *Result) error {
	st, err := store.Open(":memory:", store.WithKeyGenerator(h.keys))
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	tbl := st.Table("scenario", h.cfg)
	if err := tbl.Seed(ctx, b.Target); err != nil {
		return fmt.Errorf("failed to seed target: %w", err)
	}
	if _, err := tbl.Apply(ctx, result.Plan); err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}

	result.Final, err = tbl.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load timeline: %w", err)
	}

	result.Replan, err = h.plan(planner.Batch{Source: b.Source, Target: result.Final})
	if err != nil {
		return fmt.Errorf("failed to re-plan: %w", err)
	}
	return nil
}
