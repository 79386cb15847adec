package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberscoundrel/jobbossutils/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run journal",
		Long: `List runs recorded in the SQLite run journal, newest first.

Example:
  jobboss history --journal ./jobboss.db --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to the SQLite journal (env JOBBOSS_JOURNAL)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs to list (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(cmd)

	cfg, err := opts.config()
	if err != nil {
		return commandError(formatter, ErrCodeConfig, "failed to load config", err)
	}
	path := firstNonEmpty(opts.Journal, cfg.Journal)
	if path == "" {
		return commandError(formatter, ErrCodeJournal, "no journal configured: set --journal or JOBBOSS_JOURNAL", nil)
	}

	j, err := journal.Open(path)
	if err != nil {
		return commandError(formatter, ErrCodeJournal, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			log.Error("error closing journal", "error", closeErr)
		}
	}()

	runs, err := j.ListRuns(commandContext(cmd), opts.Limit)
	if err != nil {
		return commandError(formatter, ErrCodeJournal, "failed to read journal", err)
	}

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	formatter.Text(func(w io.Writer) { writeHistory(w, runs) })
	return nil
}

func writeHistory(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tRUN\tMODE\tRESULT\tSUCCEEDED\tFAILED\tNET")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%+d\n",
			r.FinishedAt.Format(time.RFC3339), r.RunID, r.Mode, runResult(r), r.Succeeded, r.Failed, r.NetApplied)
	}
	_ = tw.Flush()

	for _, r := range runs {
		for _, f := range r.Failures {
			fmt.Fprintf(w, "%s %s: %s\n", r.RunID, f.ID, f.Reason)
		}
	}
}

func runResult(r journal.Run) string {
	switch {
	case r.FatalKind != "":
		return string(r.FatalKind)
	case r.DryRun:
		return "dry-run"
	case r.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}
