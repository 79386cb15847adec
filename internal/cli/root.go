package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cyberscoundrel/jobbossutils/internal/audit"
	"github.com/cyberscoundrel/jobbossutils/internal/channel"
	"github.com/cyberscoundrel/jobbossutils/internal/config"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// RootOptions holds global flags and shared state for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded from ConfigPath and the environment on first use.
	// Tests may set it directly.
	Config *config.Config

	// Logger is configured by the root command; nil means a text handler on
	// the command's stderr.
	Logger *slog.Logger

	// ChannelFactory allows overriding the external channel (for testing).
	// If nil, an HTTP bridge channel is built from Config.
	ChannelFactory func(cfg *config.Config) (channel.Channel, error)

	// RunIDs allows overriding the run ID generator (for testing).
	RunIDs update.RunIDGenerator

	// Clock and BatchIDs allow overriding manifest stamping (for testing).
	Clock    audit.Clock
	BatchIDs update.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the jobboss CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobboss",
		Short: "Apply consumed-material counts to JobBOSS inventory",
		Long: `jobboss aggregates lists of consumed material IDs into on-hand
adjustments and applies them to JobBOSS through its request processor.

Each material is queried for its LastUpdated token and then updated
conditionally on that token, so concurrent edits are detected rather
than overwritten.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Logger == nil {
				opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Verbose)
			}
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")

	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewExecuteCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// newLogger builds the diagnostic logger. Diagnostics never go to stdout, so
// JSON output stays parseable.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if o.Logger == nil {
		o.Logger = newLogger(cmd.ErrOrStderr(), o.Verbose)
	}
	return o.Logger
}

func (o *RootOptions) config() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	o.Config = cfg
	return cfg, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	format := o.Format
	if format == "" {
		format = "text"
	}
	return &OutputFormatter{
		Format:    format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) channel(cfg *config.Config) (channel.Channel, error) {
	if o.ChannelFactory != nil {
		return o.ChannelFactory(cfg)
	}
	ch, err := channel.NewHTTP(cfg.Endpoint, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
