package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lockverify/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	RunID    string
}

// RunSummary is one archived run in the result payload.
type RunSummary struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	LocksChecked int    `json:"locks_checked"`
	Errors       int    `json:"errors"`
	Suppressed   int    `json:"suppressed"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived verification runs",
		Long: `List verification runs archived with verify --db.

With --run, print the stored cycle reports of that run instead.

Examples:
  lockverify runs --db runs.db
  lockverify runs --db runs.db --run 2f1c...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the archive database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the cycle reports of one run")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error("E_DB", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open archive", err)
	}
	defer st.Close()
	ctx := context.Background()

	if opts.RunID != "" {
		return showRun(ctx, st, opts.RunID, formatter, cmd)
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		_ = formatter.Error("E_DB", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot list runs", err)
	}

	if opts.Format == "json" {
		payload := []RunSummary{}
		for _, r := range runs {
			payload = append(payload, RunSummary{
				ID:           r.ID,
				CreatedAt:    r.CreatedAt.Format(time.RFC3339),
				LocksChecked: r.LocksChecked,
				Errors:       r.Errors,
				Suppressed:   r.Suppressed,
			})
		}
		return formatter.JSON(payload)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no archived runs")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %d locks  %d errors  %d suppressed\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.LocksChecked, r.Errors, r.Suppressed)
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, runID string, formatter *OutputFormatter, cmd *cobra.Command) error {
	cycles, err := st.RunCycles(ctx, runID)
	if err != nil {
		_ = formatter.Error("E_DB", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot read run", err)
	}

	if formatter.Format == "json" {
		return formatter.JSON(cycles)
	}

	out := cmd.OutOrStdout()
	if len(cycles) == 0 {
		fmt.Fprintf(out, "run %s has no recorded cycles\n", runID)
		return nil
	}
	for _, c := range cycles {
		fmt.Fprint(out, c.Report)
		fmt.Fprintln(out)
	}
	return nil
}
