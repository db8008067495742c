package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tmerge/internal/ir"
)

// PlanRun is the record of one applied plan.
type PlanRun struct {
	ID             string `json:"id"`
	Target         string `json:"target"`
	Seq            int64  `json:"seq"`
	Fingerprint    string `json:"fingerprint"`
	PlanHash       string `json:"plan_hash"`
	PlanVersion    string `json:"plan_version"`
	PlannerVersion string `json:"planner_version"`
	Inserted       int    `json:"inserted"`
	Updated        int    `json:"updated"`
	Deleted        int    `json:"deleted"`
}

// Load returns the table's timeline ordered by entity and period.
//
// Returns an empty slice (not nil) if the table has no rows.
func (t *Table) Load(ctx context.Context) ([]ir.TargetRow, error) {
	rows, err := t.s.db.QueryContext(ctx, `
		SELECT identity, valid_from, valid_until, data
		FROM timeline
		WHERE target = ?
		ORDER BY entity_key COLLATE BINARY ASC, valid_from ASC, id ASC
	`, t.name)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	out := []ir.TargetRow{}
	for rows.Next() {
		row, err := scanTargetRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline: %w", err)
	}
	return out, nil
}

func scanTargetRow(rows *sql.Rows) (ir.TargetRow, error) {
	var (
		identityJSON, dataJSON string
		from, until            int64
	)
	if err := rows.Scan(&identityJSON, &from, &until, &dataJSON); err != nil {
		return ir.TargetRow{}, fmt.Errorf("scan timeline: %w", err)
	}
	keys, err := unmarshalKeys(identityJSON)
	if err != nil {
		return ir.TargetRow{}, err
	}
	data, err := unmarshalPayload(dataJSON)
	if err != nil {
		return ir.TargetRow{}, err
	}
	return ir.TargetRow{
		Identity: keys,
		Period:   ir.Period{From: ir.Point(from), Until: ir.Point(until)},
		Data:     data,
	}, nil
}

// PlanRuns returns the plans applied to target, oldest first.
func (s *Store) PlanRuns(ctx context.Context, target string) ([]PlanRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, seq, fingerprint, plan_hash, plan_version, planner_version,
		       inserted, updated, deleted
		FROM plan_runs
		WHERE target = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, target)
	if err != nil {
		return nil, fmt.Errorf("query plan runs: %w", err)
	}
	defer rows.Close()

	runs := []PlanRun{}
	for rows.Next() {
		var r PlanRun
		if err := rows.Scan(&r.ID, &r.Target, &r.Seq, &r.Fingerprint, &r.PlanHash,
			&r.PlanVersion, &r.PlannerVersion, &r.Inserted, &r.Updated, &r.Deleted); err != nil {
			return nil, fmt.Errorf("scan plan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan runs: %w", err)
	}
	return runs, nil
}

// Feedback returns the recorded per-row feedback of an applied plan,
// ordered by row id.
func (s *Store) Feedback(ctx context.Context, planID string) ([]ir.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_id, status, message, identity
		FROM row_feedback
		WHERE plan_id = ?
		ORDER BY row_id ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	out := []ir.Feedback{}
	for rows.Next() {
		var (
			fb       ir.Feedback
			status   string
			identity sql.NullString
		)
		if err := rows.Scan(&fb.RowID, &status, &fb.Message, &identity); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.Status = ir.FeedbackStatus(status)
		if identity.Valid {
			keys, err := unmarshalKeys(identity.String)
			if err != nil {
				return nil, err
			}
			fb.Identity = keys
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
