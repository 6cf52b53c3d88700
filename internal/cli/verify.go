package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lockverify/internal/detect"
	"github.com/roach88/lockverify/internal/lockgraph"
	"github.com/roach88/lockverify/internal/store"
	"github.com/roach88/lockverify/internal/suppress"
	"github.com/roach88/lockverify/internal/trace"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	Suppress string
}

// VerifyReport is the verify command's result payload.
type VerifyReport struct {
	LocksChecked int           `json:"locks_checked"`
	Errors       int           `json:"errors"`
	Suppressed   int           `json:"suppressed"`
	Seconds      int           `json:"seconds"`
	RunID        string        `json:"run_id,omitempty"`
	Cycles       []CycleReport `json:"cycles"`
}

// CycleReport is one detected cycle in the result payload.
type CycleReport struct {
	Witness string   `json:"witness"`
	Length  int      `json:"length"`
	Locks   []string `json:"locks"`
	Report  string   `json:"report"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <trace-file>...",
		Short: "Check trace files for inconsistent lock ordering",
		Long: `Check one or more lock trace files for ordering cycles.

All files must come from the same process run: they share a pid and
their creation times lie within one hour. Files from a different pid
are skipped with a notice. A corrupt file (truncated record, duplicate
thread, duplicate lock creation) aborts the whole run, because partial
analysis of untrustworthy traces would be misleading.

Exit status is 0 when no cycle was found, 1 when at least one cycle
remains after suppressions, and 2 on command errors.

Examples:
  lockverify verify ulocks.0 ulocks.1
  lockverify verify --suppress known.yaml ulocks.*
  lockverify verify --db runs.db ulocks.* --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Suppress, "suppress", "", "yaml file of known-benign cycles to suppress")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command, args []string) error {
	start := time.Now()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	graph := lockgraph.New()
	headers := trace.NewHeaderSet()
	for _, path := range args {
		if err := ingestFile(graph, headers, path, formatter); err != nil {
			_ = formatter.Error("E_TRACE", err.Error(), nil)
			return WrapExitError(ExitCommandError, "trace ingestion failed", err)
		}
	}

	detector := &detect.Detector{}
	if opts.Verbose {
		detector.Progress = formatter.GetErrWriter()
	}
	result := detector.Run(graph)

	reported := result.Cycles
	suppressed := 0
	if opts.Suppress != "" {
		rules, err := suppress.Load(opts.Suppress)
		if err != nil {
			_ = formatter.Error("E_SUPPRESS", err.Error(), nil)
			return WrapExitError(ExitCommandError, "bad suppression file", err)
		}
		reported = reported[:0:0]
		for _, c := range result.Cycles {
			if reason, ok := rules.Match(c); ok {
				suppressed++
				formatter.VerboseLog("suppressed cycle for lock %s: %s", c.Witness.ID, reason)
			} else {
				reported = append(reported, c)
			}
		}
	}

	var runID string
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error("E_DB", err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot open archive", err)
		}
		defer st.Close()
		runID, err = st.RecordRun(context.Background(), result, reported, suppressed)
		if err != nil {
			_ = formatter.Error("E_DB", err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot archive run", err)
		}
		formatter.VerboseLog("archived run %s", runID)
	}

	seconds := int(time.Since(start).Seconds())
	if opts.Format == "json" {
		report := VerifyReport{
			LocksChecked: result.LocksChecked,
			Errors:       len(reported),
			Suppressed:   suppressed,
			Seconds:      seconds,
			RunID:        runID,
			Cycles:       []CycleReport{},
		}
		for _, c := range reported {
			var locks []string
			for _, id := range c.LockIDs() {
				locks = append(locks, id.String())
			}
			report.Cycles = append(report.Cycles, CycleReport{
				Witness: c.Witness.ID.String(),
				Length:  c.Length(),
				Locks:   locks,
				Report:  c.Render(),
			})
		}
		if err := formatter.JSON(report); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		for _, c := range reported {
			fmt.Fprint(out, c.Render())
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "checked %d locks in %d seconds with %d errors.\n",
			result.LocksChecked, seconds, len(reported))
		if suppressed > 0 {
			fmt.Fprintf(out, "(%d findings suppressed)\n", suppressed)
		}
	}

	if len(reported) > 0 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("found %d inconsistent lock ordering(s)", len(reported)))
	}
	return nil
}

// ingestFile decodes one trace file into the graph. A pid mismatch
// skips the file with a notice; every other problem is an error.
func ingestFile(g *lockgraph.Graph, headers *trace.HeaderSet, path string, formatter *OutputFormatter) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := trace.NewReader(f, path)
	h, err := r.ReadHeader()
	if err != nil {
		return err
	}
	ok, err := headers.Admit(h)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(formatter.GetErrWriter(), "skipping %s: trace from pid %d, not %d\n",
			path, h.PID, headers.PID())
		return nil
	}
	formatter.VerboseLog("reading %s: thread %d of pid %d", path, h.Thread, h.PID)

	for {
		ev, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := trace.Apply(g, ev); err != nil {
			return err
		}
	}
}
