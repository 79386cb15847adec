package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cyberscoundrel/jobbossutils/internal/aggregate"
	"github.com/cyberscoundrel/jobbossutils/internal/audit"
	"github.com/cyberscoundrel/jobbossutils/internal/tokens"
)

// DefaultOutputDir is where generate writes a package when --output-dir is
// not given.
const DefaultOutputDir = "./pending_updates"

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Input     string
	OutputDir string
	Reason    string
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a reviewable update package without contacting JobBOSS",
		Long: `Aggregate a material list and write one query document and one update
document per material, plus manifest.json, into an output directory.

Session IDs and LastUpdated tokens are left as {{SESSION_ID}} and
{{LAST_UPDATED}} placeholders and filled in by 'jobboss execute'.

Example:
  jobboss generate --input consumed.txt --output-dir ./batch-0612 --reason CONSUMED`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "file of consumed material IDs (required)")
	cmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", DefaultOutputDir, "directory for the package")
	cmd.Flags().StringVarP(&opts.Reason, "reason", "r", "", "adjustment cause code (env JOBBOSS_REASON)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
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

	res, err := aggregate.Aggregate(ids)
	if err != nil {
		return fatalResult(formatter, err)
	}

	var builderOpts []audit.BuilderOption
	if opts.Clock != nil {
		builderOpts = append(builderOpts, audit.WithClock(opts.Clock))
	}
	if opts.BatchIDs != nil {
		builderOpts = append(builderOpts, audit.WithBatchIDs(opts.BatchIDs))
	}

	reason := firstNonEmpty(opts.Reason, cfg.Reason)
	m, err := audit.NewBuilder(builderOpts...).Build(opts.OutputDir, reason, res, ids)
	if err != nil {
		if errors.Is(err, audit.ErrManifestExists) {
			return commandError(formatter, ErrCodeWriteFailed, "refusing to overwrite an existing package", err)
		}
		return commandError(formatter, ErrCodeWriteFailed, "failed to write package", err)
	}
	manifestPath := filepath.Join(opts.OutputDir, audit.ManifestFile)
	log.Info("package written", "batch_id", m.BatchID, "manifest", manifestPath)

	if formatter.JSON() {
		return formatter.Success(m)
	}
	formatter.Text(func(w io.Writer) {
		fmt.Fprintf(w, "Batch %s: %d material(s), %d piece(s)\n", m.BatchID, m.TotalMaterials, m.TotalPieces)
		for _, e := range m.Materials {
			fmt.Fprintf(w, "  %s: %+d (%s, %s)\n", e.MaterialID, e.QuantityChange, e.QueryFile, e.UpdateFile)
		}
		fmt.Fprintf(w, "Wrote %s\n", manifestPath)
		fmt.Fprintf(w, "Review the package, then run: jobboss execute --manifest %s\n", manifestPath)
	})
	return nil
}
