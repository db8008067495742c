package cli

import (
	"fmt"
	"slices"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/planner"
)

// Explanation is the payload change of one DML action.
type Explanation struct {
	Seq       int           `json:"seq"`
	Kind      ir.ActionKind `json:"kind"`
	Effect    string        `json:"effect,omitempty"`
	Partition string        `json:"partition"`
	Old       string        `json:"old,omitempty"`
	New       string        `json:"new,omitempty"`
	Diff      string        `json:"diff"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <config-path> <batch-file>",
		Short: "Show the payload changes a plan would make",
		Long: `Plan a batch like "tmerge plan" and show a unified diff of the row
payload for every INSERT, UPDATE and DELETE.

The old side is the target row the action modifies, the new side is the
payload the action writes. Inserted rows diff against nothing, deleted
rows against nothing.

Examples:
  tmerge explain ./merges batch.yaml
  tmerge explain ./merges batch.yaml --merge orders --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Merge, "merge", "", "merge to plan (required when several are declared)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "partitions planned concurrently (0 uses the configured default)")

	return cmd
}

func runExplain(opts *PlanOptions, configPath, batchPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	_, cfg, batch, err := loadMergeAndBatch(configPath, opts.Merge, batchPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), loadMessage(err), nil)
	}

	plan, err := planner.Plan(cfg, batch, planOptions(opts, cmd)...)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	explanations, err := explainPlan(cfg, plan, batch.Target)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(explanations)
	}

	w := formatter.Writer
	if len(explanations) == 0 {
		fmt.Fprintln(w, "No changes.")
		return nil
	}
	for _, e := range explanations {
		fmt.Fprintf(w, "#%d %s", e.Seq, e.Kind)
		if e.Effect != "" {
			fmt.Fprintf(w, " %s", e.Effect)
		}
		fmt.Fprintf(w, " %s", e.Partition)
		if e.Old != "" {
			fmt.Fprintf(w, " old=%s", e.Old)
		}
		if e.New != "" {
			fmt.Fprintf(w, " new=%s", e.New)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, e.Diff)
	}
	return nil
}

// explainPlan diffs the payload of every DML action in plan against the
// target row it modifies.
func explainPlan(cfg *ir.Config, plan *ir.Plan, targets []ir.TargetRow) ([]Explanation, error) {
	out := []Explanation{}
	for _, a := range plan.Actions {
		if !a.Kind.IsDML() {
			continue
		}

		var before, after ir.Payload
		if a.Old != nil {
			if t, ok := findTarget(cfg, targets, a.Identity, *a.Old); ok {
				before = t.Data
			}
		}
		if a.Kind != ir.ActionDelete {
			after = a.Data
		}

		diff, err := payloadDiff(before, after)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", a.Seq, err)
		}
		out = append(out, Explanation{
			Seq:       a.Seq,
			Kind:      a.Kind,
			Effect:    string(a.Effect),
			Partition: a.PartitionKey,
			Old:       formatPeriodPtr(plan.Domain, a.Old),
			New:       formatPeriodPtr(plan.Domain, a.New),
			Diff:      diff,
		})
	}
	return out, nil
}

// findTarget returns the target row of entity keys with period per.
func findTarget(cfg *ir.Config, targets []ir.TargetRow, keys ir.Keys, per ir.Period) (ir.TargetRow, bool) {
	want := keys.Render(cfg.IdentityColumns)
	for _, t := range targets {
		if t.Period.Equals(per) && t.Identity.Render(cfg.IdentityColumns) == want {
			return t, true
		}
	}
	return ir.TargetRow{}, false
}

// payloadDiff renders a unified diff of two payloads, one "column: value"
// line per column in sorted order.
func payloadDiff(before, after ir.Payload) (string, error) {
	a, err := payloadLines(before)
	if err != nil {
		return "", err
	}
	b, err := payloadLines(after)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "target",
		ToFile:   "planned",
		Context:  3,
	})
}

func payloadLines(p ir.Payload) ([]string, error) {
	cols := make([]string, 0, len(p))
	for col := range p {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	lines := make([]string, 0, len(cols))
	for _, col := range cols {
		v, err := ir.MarshalCanonical(p[col])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		lines = append(lines, fmt.Sprintf("%s: %s\n", col, v))
	}
	return lines, nil
}
