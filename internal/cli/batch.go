package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberscoundrel/jobbossutils/internal/config"
	"github.com/cyberscoundrel/jobbossutils/internal/failure"
	"github.com/cyberscoundrel/jobbossutils/internal/journal"
	"github.com/cyberscoundrel/jobbossutils/internal/report"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// liveFlags are the flags shared by commands that talk to JobBOSS.
// Empty values fall back to the config file and environment.
type liveFlags struct {
	Endpoint        string
	User            string
	Password        string
	DryRun          bool
	Journal         string
	MetricsTextfile string
}

func (l *liveFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.Endpoint, "endpoint", "", "bridge base URL (env JOBBOSS_ENDPOINT)")
	cmd.Flags().StringVarP(&l.User, "user", "u", "", "JobBOSS user (env JOBBOSS_USER)")
	cmd.Flags().StringVarP(&l.Password, "password", "p", "", "JobBOSS password (env JOBBOSS_PASSWORD)")
	cmd.Flags().BoolVar(&l.DryRun, "dry-run", false, "print the planned changes without contacting JobBOSS")
	cmd.Flags().StringVar(&l.Journal, "journal", "", "append the run to this SQLite journal (env JOBBOSS_JOURNAL)")
	cmd.Flags().StringVar(&l.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file (env JOBBOSS_METRICS_TEXTFILE)")
}

// apply overlays non-empty flags on a copy of cfg.
func (l *liveFlags) apply(cfg *config.Config) *config.Config {
	out := *cfg
	if l.Endpoint != "" {
		out.Endpoint = l.Endpoint
	}
	if l.User != "" {
		out.User = l.User
	}
	if l.Password != "" {
		out.Password = l.Password
	}
	if l.Journal != "" {
		out.Journal = l.Journal
	}
	if l.MetricsTextfile != "" {
		out.MetricsTextfile = l.MetricsTextfile
	}
	return &out
}

// batch is one executor run as prepared by update or execute.
type batch struct {
	mode     string
	reasonID string
	batchID  string
	docs     update.Documents
	items    []update.Item
}

// runBatch drives the executor and reports the outcome. It returns an
// ExitError with ExitFailure when any item failed or the batch was aborted.
func runBatch(cmd *cobra.Command, opts *RootOptions, flags *liveFlags, b batch) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(cmd)

	base, err := opts.config()
	if err != nil {
		return commandError(formatter, ErrCodeConfig, "failed to load config", err)
	}
	cfg := flags.apply(base)

	formatter.Text(func(w io.Writer) { report.WritePlan(w, b.items) })

	execOpts := []update.Option{update.WithLogger(log), update.WithDryRun(flags.DryRun)}
	if opts.RunIDs != nil {
		execOpts = append(execOpts, update.WithRunIDs(opts.RunIDs))
	}

	var creds update.Credentials
	var exec *update.Executor
	if flags.DryRun {
		exec = update.New(nil, b.docs, execOpts...)
	} else {
		if cfg.User == "" || cfg.Password == "" {
			return commandError(formatter, ErrCodeCredentials,
				"missing credentials: set --user/--password or JOBBOSS_USER/JOBBOSS_PASSWORD", nil)
		}
		creds = update.Credentials{User: cfg.User, Password: cfg.Password}

		ch, err := opts.channel(cfg)
		if err != nil {
			return commandError(formatter, ErrCodeChannel, "failed to configure channel", err)
		}
		exec = update.New(ch, b.docs, execOpts...)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := exec.Run(ctx, creds, b.items)
	summary := report.Summarize(res, runErr)
	finished := time.Now().UTC()

	recordRun(ctx, cmd, opts, cfg, b, summary, finished)
	if cfg.MetricsTextfile != "" && !summary.DryRun {
		if err := report.WriteMetrics(cfg.MetricsTextfile, summary, finished); err != nil {
			log.Error("metrics not written", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	return outputSummary(formatter, summary)
}

// recordRun appends the run to the journal when one is configured. A journal
// failure is logged and never changes the run's outcome.
func recordRun(ctx context.Context, cmd *cobra.Command, opts *RootOptions, cfg *config.Config, b batch, s *report.Summary, finished time.Time) {
	if cfg.Journal == "" {
		return
	}
	log := opts.logger(cmd)

	j, err := journal.Open(cfg.Journal)
	if err != nil {
		log.Error("journal unavailable", "path", cfg.Journal, "error", err)
		return
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			log.Error("error closing journal", "error", closeErr)
		}
	}()

	err = j.RecordRun(context.WithoutCancel(ctx), journal.Entry{
		Mode:       b.mode,
		BatchID:    b.batchID,
		ReasonID:   b.reasonID,
		FinishedAt: finished,
		Summary:    s,
	})
	if err != nil {
		log.Error("run not journaled", "run_id", s.RunID, "error", err)
		return
	}
	log.Debug("run journaled", "run_id", s.RunID, "path", cfg.Journal)
}

func outputSummary(formatter *OutputFormatter, s *report.Summary) error {
	formatter.Text(s.WriteText)

	if s.OK() {
		if formatter.JSON() {
			return formatter.Success(s)
		}
		return nil
	}

	code, message := ErrCodeRunFailed, fmt.Sprintf("%d of %d item(s) failed", s.Failed, s.Failed+s.Succeeded)
	if s.Fatal != nil {
		code, message = string(s.Fatal.Kind), s.Fatal.Message
	}
	if formatter.JSON() {
		_ = formatter.Failure(code, message, s)
	}
	return NewExitError(ExitFailure, message)
}

// fatalResult reports an error that aborted the batch before the executor
// ran, such as an empty input. VALIDATION errors exit with ExitFailure.
func fatalResult(formatter *OutputFormatter, err error) error {
	if failure.IsFatal(err) {
		return outputSummary(formatter, report.Summarize(nil, err))
	}
	return commandError(formatter, ErrCodeInput, "failed to prepare batch", err)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
