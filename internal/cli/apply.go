package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/planner"
	"github.com/roach88/tmerge/internal/store"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	PlanOptions
	Database string
	Table    string
	Seed     bool

	// KeyGenerator allows overriding stable key generation (for testing).
	KeyGenerator store.KeyGenerator
}

// ApplySummary is the JSON result of the apply command.
type ApplySummary struct {
	Merge         string             `json:"merge"`
	Table         string             `json:"table"`
	PlanID        string             `json:"plan_id"`
	PlanHash      string             `json:"plan_hash"`
	Inserted      int                `json:"inserted"`
	Updated       int                `json:"updated"`
	Deleted       int                `json:"deleted"`
	GeneratedKeys map[string]ir.Keys `json:"generated_keys,omitempty"`
	Feedback      []ir.Feedback      `json:"feedback"`
	Plan          *ir.Plan           `json:"plan"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{PlanOptions: PlanOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "apply <config-path> <batch-file>",
		Short: "Plan a batch against a stored timeline and apply it",
		Long: `Plan the source rows of a batch file against the timeline stored in the
SQLite database and apply the plan in one transaction.

The target rows of the batch file are ignored unless --seed is given, in
which case they initialise an empty table first. New entities get
generated stable keys. The plan and its per-row feedback are recorded
and can be listed with "tmerge runs".

Examples:
  tmerge apply ./merges batch.yaml --db ./tmerge.db
  tmerge apply ./merges batch.yaml --table orders --seed`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Merge, "merge", "", "merge to apply (required when several are declared)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "partitions planned concurrently (0 uses the configured default)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from configuration)")
	cmd.Flags().StringVar(&opts.Table, "table", "", "target table name (default from configuration)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "seed an empty table with the batch's target rows")

	return cmd
}

func runApply(opts *ApplyOptions, configPath, batchPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	name, cfg, batch, err := loadMergeAndBatch(configPath, opts.Merge, batchPath)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), loadMessage(err), nil)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.app().DBPath
	}
	if dbPath == "" {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "no database path: use --db or TMERGE_DB_PATH", nil)
	}
	tableName := opts.Table
	if tableName == "" {
		tableName = opts.app().Table
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("creating database directory: %v", err), nil)
	}

	logger.Debug("opening database", "path", dbPath)
	var storeOpts []store.Option
	if opts.KeyGenerator != nil {
		storeOpts = append(storeOpts, store.WithKeyGenerator(opts.KeyGenerator))
	}
	st, err := store.Open(dbPath, storeOpts...)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	tbl := st.Table(tableName, cfg)
	current, err := tbl.Load(ctx)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}

	if opts.Seed {
		if len(current) > 0 {
			return formatter.fail(ExitCommandError, ErrCodeStoreFailed,
				fmt.Sprintf("table %s already holds %d row(s), refusing to seed", tableName, len(current)), nil)
		}
		if err := tbl.Seed(ctx, batch.Target); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
		}
		logger.Info("table seeded", "table", tableName, "rows", len(batch.Target))
		current = batch.Target
	}

	plan, err := planner.Plan(cfg, planner.Batch{Source: batch.Source, Target: current}, planOptions(&opts.PlanOptions, cmd)...)
	if err != nil {
		return formatter.fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	res, err := tbl.Apply(ctx, plan)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStoreFailed, err.Error(), nil)
	}
	logger.Info("plan applied",
		"merge", name,
		"table", tableName,
		"plan_id", res.PlanID,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"deleted", res.Deleted,
	)

	summary := ApplySummary{
		Merge:         name,
		Table:         tableName,
		PlanID:        res.PlanID,
		PlanHash:      res.PlanHash,
		Inserted:      res.Inserted,
		Updated:       res.Updated,
		Deleted:       res.Deleted,
		GeneratedKeys: res.GeneratedKeys,
		Feedback:      res.Feedback,
		Plan:          plan,
	}
	return outputApply(formatter, summary)
}

func outputApply(formatter *OutputFormatter, summary ApplySummary) error {
	// Recorded feedback carries back-filled keys; show that instead of the
	// plan's.
	plan := *summary.Plan
	plan.Feedback = summary.Feedback
	failed := hasErrorRows(&plan)

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: summary}
		if failed {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRowErrors, Message: "one or more source rows failed"}
		}
		if err := formatter.JSON(resp); err != nil {
			return err
		}
	} else {
		renderPlan(formatter.Writer, &plan)
		fmt.Fprintf(formatter.Writer, "✓ Applied plan %s to %s: %d inserted, %d updated, %d deleted\n",
			summary.PlanID, summary.Table, summary.Inserted, summary.Updated, summary.Deleted)
	}

	if failed {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: one or more source rows failed", ErrCodeRowErrors))
	}
	return nil
}
