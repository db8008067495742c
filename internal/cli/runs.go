package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Table    string
	PlanID   string // optional - show the feedback of one plan
}

// RunsResult holds the recorded plan runs of a table, and the feedback of
// one plan when requested.
type RunsResult struct {
	Table    string          `json:"table"`
	Runs     []store.PlanRun `json:"runs"`
	PlanID   string          `json:"plan_id,omitempty"`
	Feedback []ir.Feedback   `json:"feedback,omitempty"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List plans applied to a table",
		Long: `List the plans applied to a target table, oldest first.

Each run shows its plan hash, the planner version that produced it and
the number of rows inserted, updated and deleted. With --plan the
recorded per-row feedback of that plan is shown as well.

Examples:
  tmerge runs --db ./tmerge.db
  tmerge runs --table orders --plan 01920e0c-...
  tmerge runs --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from configuration)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "target table name (default from configuration)")
	cmd.Flags().StringVar(&opts.PlanID, "plan", "", "show recorded feedback of this plan")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.app().DBPath
	}
	if dbPath == "" {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "no database path: use --db or TMERGE_DB_PATH", nil)
	}
	table := opts.Table
	if table == "" {
		table = opts.app().Table
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	defer st.Close()

	runs, err := st.PlanRuns(ctx, table)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	result := RunsResult{Table: table, Runs: runs}

	if opts.PlanID != "" {
		result.PlanID = opts.PlanID
		result.Feedback, err = st.Feedback(ctx, opts.PlanID)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
		}
		if len(result.Feedback) == 0 {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no feedback recorded for plan %s", opts.PlanID), nil)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputRunsText(formatter, result)
}

func outputRunsText(formatter *OutputFormatter, result RunsResult) error {
	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintf(w, "No plans applied to %s.\n", result.Table)
		return nil
	}

	runs := newTable(w, []string{"seq", "plan", "hash", "planner", "inserted", "updated", "deleted"})
	for _, r := range result.Runs {
		runs.Append([]string{
			strconv.FormatInt(r.Seq, 10),
			r.ID,
			shortHash(r.PlanHash),
			r.PlannerVersion,
			strconv.Itoa(r.Inserted),
			strconv.Itoa(r.Updated),
			strconv.Itoa(r.Deleted),
		})
	}
	runs.Render()
	fmt.Fprintf(w, "(%d run(s) on %s)\n", len(result.Runs), result.Table)

	if result.PlanID == "" {
		return nil
	}
	fmt.Fprintf(w, "\nFeedback of %s:\n", result.PlanID)
	feedback := newTable(w, []string{"row", "status", "message"})
	for _, f := range result.Feedback {
		feedback.Append([]string{strconv.FormatInt(f.RowID, 10), string(f.Status), f.Message})
	}
	feedback.Render()
	return nil
}
