package cli

import (
	"github.com/spf13/cobra"

	"github.com/cyberscoundrel/jobbossutils/internal/aggregate"
	"github.com/cyberscoundrel/jobbossutils/internal/jbxml"
	"github.com/cyberscoundrel/jobbossutils/internal/journal"
	"github.com/cyberscoundrel/jobbossutils/internal/tokens"
	"github.com/cyberscoundrel/jobbossutils/internal/update"
)

// DefaultUpdateReason is the cause code for single-pass updates.
const DefaultUpdateReason = "ADJUST"

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	liveFlags
	Input  string
	Reason string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Aggregate a material list and apply it in one pass",
		Long: `Read a list of consumed material IDs (one per line, # for comments),
count the occurrences of each, and subtract them from JobBOSS on-hand
quantities in a single session.

Example:
  jobboss update --input consumed.txt --user clerk --password secret
  jobboss update --input consumed.txt --dry-run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "file of consumed material IDs (required)")
	cmd.Flags().StringVarP(&opts.Reason, "reason", "r", "", "adjustment cause code (default ADJUST, env JOBBOSS_REASON)")
	opts.liveFlags.bind(cmd)
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(cmd)

	cfg, err := opts.config()
	if err != nil {
		return commandError(formatter, ErrCodeConfig, "failed to load config", err)
	}

	ids, err := tokens.LoadFile(opts.Input)
	if err != nil {
		return commandError(formatter, ErrCodeInput, "failed to read input", err)
	}
	log.Debug("input loaded", "path", opts.Input, "tokens", len(ids))

	res, err := aggregate.Aggregate(ids)
	if err != nil {
		return fatalResult(formatter, err)
	}
	log.Info("aggregated", "materials", len(res), "pieces", res.TotalPieces())

	reason := firstNonEmpty(opts.Reason, cfg.Reason, DefaultUpdateReason)

	return runBatch(cmd, opts.RootOptions, &opts.liveFlags, batch{
		mode:     journal.ModeUpdate,
		reasonID: reason,
		docs:     jbxml.Renderer{ReasonID: reason},
		items:    update.ItemsFrom(res),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
