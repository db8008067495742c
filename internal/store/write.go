package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/tmerge/internal/ir"
)

var (
	// ErrStalePlan indicates a plan action refers to a row that no longer
	// exists as planned.
	ErrStalePlan = errors.New("stale plan")

	// ErrPlanApplied indicates the plan ID was already applied.
	ErrPlanApplied = errors.New("plan already applied")

	// ErrKeyGeneration indicates a new entity needs a composite key, which
	// cannot be generated.
	ErrKeyGeneration = errors.New("cannot generate stable key")
)

// OverlapError reports overlapping history of one entity after a write.
type OverlapError struct {
	EntityKey     string
	First, Second ir.Period
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("entity %s: rows %s and %s overlap", e.EntityKey, e.First, e.Second)
}

// ApplyResult summarizes an applied plan.
type ApplyResult struct {
	PlanID   string
	PlanHash string
	Inserted int
	Updated  int
	Deleted  int
	// GeneratedKeys maps partition keys of new entities to the stable keys
	// assigned to them.
	GeneratedKeys map[string]ir.Keys
	// Feedback is the recorded per-row feedback, with generated keys
	// back-filled when the configuration asks for it.
	Feedback []ir.Feedback
}

// Seed inserts rows into the table in one transaction. Every row needs a
// complete stable key, and the resulting history must not overlap.
func (t *Table) Seed(ctx context.Context, rows []ir.TargetRow) error {
	tx, err := t.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	touched := make(map[string]bool)
	for i, row := range rows {
		if !row.Identity.Complete(t.cfg.IdentityColumns) {
			return fmt.Errorf("seed: row %d has an incomplete stable key %v", i, t.cfg.IdentityColumns)
		}
		keys := row.Identity.Project(t.cfg.IdentityColumns)
		if err := t.insertRow(ctx, tx, keys, row.Period, row.Data); err != nil {
			return fmt.Errorf("seed: row %d: %w", i, err)
		}
		touched[keys.Render(t.cfg.IdentityColumns)] = true
	}

	if err := t.checkHistories(ctx, tx, touched); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}

// Apply executes the plan's DML in plan order inside one transaction,
// verifies that no touched entity ends up with overlapping history, and
// records the plan and its feedback. Nothing is written when any step
// fails.
func (t *Table) Apply(ctx context.Context, plan *ir.Plan) (*ApplyResult, error) {
	tx, err := t.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("apply: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM plan_runs WHERE id = ?`, plan.ID).Scan(&exists)
	if err == nil {
		return nil, fmt.Errorf("apply %s: %w", plan.ID, ErrPlanApplied)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("apply: check plan: %w", err)
	}

	res := &ApplyResult{PlanID: plan.ID, GeneratedKeys: make(map[string]ir.Keys)}
	touched := make(map[string]bool)
	rowPartition := make(map[int64]string)

	for _, a := range plan.Actions {
		if !a.Kind.IsDML() {
			continue
		}
		keys, err := t.identityOf(a, res.GeneratedKeys)
		if err != nil {
			return nil, fmt.Errorf("apply: action %d: %w", a.Seq, err)
		}
		touched[keys.Render(t.cfg.IdentityColumns)] = true
		for _, id := range a.RowIDs {
			rowPartition[id] = a.PartitionKey
		}

		switch a.Kind {
		case ir.ActionInsert:
			if err := t.insertRow(ctx, tx, keys, *a.New, a.Data); err != nil {
				return nil, fmt.Errorf("apply: action %d: %w", a.Seq, err)
			}
			res.Inserted++
		case ir.ActionUpdate:
			if err := t.updateRow(ctx, tx, keys, *a.Old, *a.New, a.Data); err != nil {
				return nil, fmt.Errorf("apply: action %d: %w", a.Seq, err)
			}
			res.Updated++
		case ir.ActionDelete:
			if err := t.deleteRow(ctx, tx, keys, *a.Old); err != nil {
				return nil, fmt.Errorf("apply: action %d: %w", a.Seq, err)
			}
			res.Deleted++
		}
	}

	if err := t.checkHistories(ctx, tx, touched); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	res.PlanHash, err = ir.PlanHash(plan.Actions)
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	res.Feedback = make([]ir.Feedback, len(plan.Feedback))
	for i, fb := range plan.Feedback {
		if t.cfg.BackfillKeys && len(fb.Identity) == 0 {
			if keys, ok := res.GeneratedKeys[rowPartition[fb.RowID]]; ok {
				fb.Identity = keys
			}
		}
		res.Feedback[i] = fb
	}

	if err := t.recordRun(ctx, tx, plan, res); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("apply: commit: %w", err)
	}
	return res, nil
}

// identityOf returns the stable key an action writes under. New entities
// without a key get one generated per partition.
func (t *Table) identityOf(a ir.PlannedAction, generated map[string]ir.Keys) (ir.Keys, error) {
	if a.Identity.Complete(t.cfg.IdentityColumns) {
		return a.Identity.Project(t.cfg.IdentityColumns), nil
	}
	if a.Kind != ir.ActionInsert || !a.IsNewEntity {
		return nil, fmt.Errorf("%s without a stable key: %w", a.Kind, ErrStalePlan)
	}
	if keys, ok := generated[a.PartitionKey]; ok {
		return keys, nil
	}
	if len(t.cfg.IdentityColumns) != 1 {
		return nil, fmt.Errorf("partition %s needs composite key %v: %w",
			a.PartitionKey, t.cfg.IdentityColumns, ErrKeyGeneration)
	}
	keys := ir.Keys{t.cfg.IdentityColumns[0]: ir.String(t.s.keys.Generate())}
	generated[a.PartitionKey] = keys
	return keys, nil
}

func (t *Table) insertRow(ctx context.Context, tx *sql.Tx, keys ir.Keys, per ir.Period, data ir.Payload) error {
	identityJSON, err := marshalKeys(keys)
	if err != nil {
		return err
	}
	dataJSON, err := marshalPayload(data)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO timeline (target, entity_key, identity, valid_from, valid_until, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		t.name,
		keys.Render(t.cfg.IdentityColumns),
		identityJSON,
		int64(per.From),
		int64(per.Until),
		dataJSON,
	)
	if err != nil {
		return fmt.Errorf("insert row: %w", err)
	}
	return nil
}

func (t *Table) updateRow(ctx context.Context, tx *sql.Tx, keys ir.Keys, old, next ir.Period, data ir.Payload) error {
	dataJSON, err := marshalPayload(data)
	if err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE timeline
		SET valid_from = ?, valid_until = ?, data = ?
		WHERE target = ? AND entity_key = ? AND valid_from = ? AND valid_until = ?
	`,
		int64(next.From), int64(next.Until), dataJSON,
		t.name, keys.Render(t.cfg.IdentityColumns), int64(old.From), int64(old.Until),
	)
	if err != nil {
		return fmt.Errorf("update row: %w", err)
	}
	return expectOne(result, "update", old)
}

func (t *Table) deleteRow(ctx context.Context, tx *sql.Tx, keys ir.Keys, old ir.Period) error {
	result, err := tx.ExecContext(ctx, `
		DELETE FROM timeline
		WHERE target = ? AND entity_key = ? AND valid_from = ? AND valid_until = ?
	`,
		t.name, keys.Render(t.cfg.IdentityColumns), int64(old.From), int64(old.Until),
	)
	if err != nil {
		return fmt.Errorf("delete row: %w", err)
	}
	return expectOne(result, "delete", old)
}

func expectOne(result sql.Result, op string, per ir.Period) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s row: %w", op, err)
	}
	if n != 1 {
		return fmt.Errorf("%s row %s matched %d rows: %w", op, per, n, ErrStalePlan)
	}
	return nil
}

// checkHistories verifies that each touched entity's rows are disjoint.
func (t *Table) checkHistories(ctx context.Context, tx *sql.Tx, touched map[string]bool) error {
	for _, key := range slices.Sorted(maps.Keys(touched)) {
		if err := t.checkHistory(ctx, tx, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) checkHistory(ctx context.Context, tx *sql.Tx, entityKey string) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT valid_from, valid_until
		FROM timeline
		WHERE target = ? AND entity_key = ?
		ORDER BY valid_from ASC, valid_until ASC
	`, t.name, entityKey)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var prev *ir.Period
	for rows.Next() {
		var from, until int64
		if err := rows.Scan(&from, &until); err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		cur := ir.Period{From: ir.Point(from), Until: ir.Point(until)}
		if prev != nil && cur.From < prev.Until {
			return &OverlapError{EntityKey: entityKey, First: *prev, Second: cur}
		}
		prev = &cur
	}
	return rows.Err()
}

// recordRun stores the plan run and its feedback.
func (t *Table) recordRun(ctx context.Context, tx *sql.Tx, plan *ir.Plan, res *ApplyResult) error {
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM plan_runs`).Scan(&seq); err != nil {
		return fmt.Errorf("next run seq: %w", err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO plan_runs
		(id, target, seq, fingerprint, plan_hash, plan_version, planner_version, inserted, updated, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		plan.ID,
		t.name,
		seq,
		plan.Fingerprint,
		res.PlanHash,
		ir.PlanVersion,
		ir.PlannerVersion,
		res.Inserted,
		res.Updated,
		res.Deleted,
	)
	if err != nil {
		return fmt.Errorf("write plan run: %w", err)
	}

	for _, fb := range res.Feedback {
		var identity sql.NullString
		if len(fb.Identity) > 0 {
			s, err := marshalKeys(fb.Identity)
			if err != nil {
				return err
			}
			identity = sql.NullString{String: s, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO row_feedback (plan_id, row_id, status, message, identity)
			VALUES (?, ?, ?, ?, ?)
		`, plan.ID, fb.RowID, string(fb.Status), fb.Message, identity)
		if err != nil {
			return fmt.Errorf("write feedback row %d: %w", fb.RowID, err)
		}
	}
	return nil
}
