package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/planner"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Merge   string
	Workers int

	// IDGenerator allows overriding the plan ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator planner.IDGenerator
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <config-path> <batch-file>",
		Short: "Plan a batch against the timeline in the batch file",
		Long: `Plan the source rows of a YAML batch file against its target timeline.

The batch file lists "target" rows (the existing timeline) and "source"
rows (the incoming batch). Nothing is written. The plan lists every
INSERT, UPDATE and DELETE in execution order followed by the per-row
feedback.

Exit codes:
  0 - Plan computed, no source row failed
  1 - Plan computed, one or more source rows are ERROR
  2 - Command error (invalid config, unreadable batch)

Examples:
  tmerge plan ./merges batch.yaml
  tmerge plan ./merges batch.yaml --merge orders --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Merge, "merge", "", "merge to plan (required when several are declared)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "partitions planned concurrently (0 uses the configured default)")

	return cmd
}

func runPlan(opts *PlanOptions, configPath, batchPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	name, cfg, batch, err := loadMergeAndBatch(configPath, opts.Merge, batchPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), loadMessage(err), nil)
	}
	formatter.VerboseLog("Planning merge %s: %d source row(s), %d target row(s)", name, len(batch.Source), len(batch.Target))

	plan, err := planner.Plan(cfg, batch, planOptions(opts, cmd)...)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	return outputPlan(formatter, plan)
}

// planOptions builds planner options from flags and the application config.
func planOptions(opts *PlanOptions, cmd *cobra.Command) []planner.Option {
	workers := opts.Workers
	if workers == 0 {
		workers = opts.app().Workers
	}
	out := []planner.Option{
		planner.WithLogger(opts.logger(cmd.ErrOrStderr())),
		planner.WithIDGenerator(opts.IDGenerator),
	}
	if workers > 0 {
		out = append(out, planner.WithWorkers(workers))
	}
	return out
}

// outputPlan writes the plan and fails with ExitFailure when a source row
// is ERROR.
func outputPlan(formatter *OutputFormatter, plan *ir.Plan) error {
	failed := hasErrorRows(plan)

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: plan}
		if failed {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRowErrors, Message: "one or more source rows failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		renderPlan(formatter.Writer, plan)
	}

	if failed {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: one or more source rows failed", ErrCodeRowErrors))
	}
	return nil
}
