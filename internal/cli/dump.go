package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/lockverify/internal/trace"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
}

// DumpReport is the dump command's result payload.
type DumpReport struct {
	File   string      `json:"file"`
	Thread int32       `json:"thread"`
	PID    int32       `json:"pid"`
	Time   int64       `json:"time"`
	Events []DumpEvent `json:"events"`
}

// DumpEvent is one decoded record in the result payload.
type DumpEvent struct {
	Type    string `json:"type"` // "create" or "order"
	Lock    string `json:"lock,omitempty"`
	Earlier string `json:"earlier,omitempty"`
	Later   string `json:"later,omitempty"`
	Site    string `json:"site"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump <trace-file>",
		Short: "Print the decoded contents of one trace file",
		Long: `Decode a single trace file and print its header and records.

Useful when a verify run rejects a file: dump shows exactly what the
tracer wrote, record by record, up to the point of corruption.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd, args[0])
		},
	}

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command, path string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error("E_TRACE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open trace", err)
	}
	defer f.Close()

	r := trace.NewReader(f, path)
	h, err := r.ReadHeader()
	if err != nil {
		_ = formatter.Error("E_TRACE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot read header", err)
	}

	report := DumpReport{
		File:   path,
		Thread: h.Thread,
		PID:    h.PID,
		Time:   h.Time,
		Events: []DumpEvent{},
	}
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = formatter.Error("E_TRACE", err.Error(), nil)
			return WrapExitError(ExitCommandError, "corrupt trace", err)
		}
		switch e := ev.(type) {
		case trace.Create:
			report.Events = append(report.Events, DumpEvent{
				Type: "create",
				Lock: e.ID.String(),
				Site: e.At.String(),
			})
		case trace.Order:
			report.Events = append(report.Events, DumpEvent{
				Type:    "order",
				Earlier: e.Earlier.String(),
				Later:   e.Later.String(),
				Site:    e.At.String(),
			})
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "trace of thread %d from pid %d on %s\n",
		h.Thread, h.PID, time.Unix(h.Time, 0).UTC().Format(time.RFC3339))
	for _, e := range report.Events {
		if e.Type == "create" {
			fmt.Fprintf(out, "create lock %s at %s\n", e.Lock, e.Site)
		} else {
			fmt.Fprintf(out, "lock %s held before %s at %s\n", e.Earlier, e.Later, e.Site)
		}
	}
	fmt.Fprintf(out, "%d records\n", len(report.Events))
	return nil
}
