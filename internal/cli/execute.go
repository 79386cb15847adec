package cli

import (
	"github.com/spf13/cobra"

	"github.com/cyberscoundrel/jobbossutils/internal/audit"
	"github.com/cyberscoundrel/jobbossutils/internal/journal"
)

// ExecuteOptions holds flags for the execute command.
type ExecuteOptions struct {
	*RootOptions
	liveFlags
	Manifest string
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecuteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Apply a package written by generate",
		Long: `Load manifest.json, verify every referenced document against it, and
submit the documents to JobBOSS with the session ID and LastUpdated
tokens filled in. The package itself is never modified.

Example:
  jobboss execute --manifest ./batch-0612/manifest.json --user clerk --password secret`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "path to manifest.json (required)")
	opts.liveFlags.bind(cmd)
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runExecute(opts *ExecuteOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.logger(cmd)

	pkg, err := audit.Load(opts.Manifest)
	if err != nil {
		return fatalResult(formatter, err)
	}
	m := pkg.Manifest
	log.Info("package loaded", "batch_id", m.BatchID, "materials", len(m.Materials), "generated_at", m.GeneratedAt)

	return runBatch(cmd, opts.RootOptions, &opts.liveFlags, batch{
		mode:     journal.ModeExecute,
		reasonID: m.ReasonID,
		batchID:  m.BatchID,
		docs:     pkg,
		items:    pkg.Items(),
	})
}
