package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/logging"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/ofx"
)

func importOFXCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx <files...>",
		Short: "Import expenses from OFX/QFX statements",
		Long: `Import statement lines from OFX or QFX files exported from your bank. Every
debit is resolved like a manually added expense. Lines are keyed by account
and transaction ID, so importing a file twice skips what is already stored.

Examples:
  tally import-ofx ~/Downloads/statement.ofx
  tally import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			includeCredits, _ := cmd.Flags().GetBool("include-credits")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			parser := ofx.NewParser(opts.logger)
			var inputs []engine.ExpenseInput
			seen := make(map[string]bool)
			credits := 0
			for _, path := range files {
				lines, err := parseOFXFile(cmd, parser, path)
				if err != nil {
					opts.logger.WithError(err).Error("failed to parse OFX file", logging.F(logging.FieldFile, path))
					continue
				}
				for _, line := range lines {
					if !line.IsDebit() && !includeCredits {
						credits++
						continue
					}
					if seen[line.ID] {
						continue
					}
					seen[line.ID] = true
					inputs = append(inputs, engine.ExpenseInput{
						ID:          line.ID,
						Date:        line.Date,
						Amount:      line.Amount.Abs(),
						Description: line.Description,
						Source:      model.SourceImport,
					})
				}
			}

			w := cmd.OutOrStdout()
			if len(inputs) == 0 {
				fmt.Fprintln(w, cli.FormatInfo("No expenses found to import."))
				return nil
			}
			if dryRun {
				table := cli.NewTable(w, "ID", "Date", "Amount", "Description")
				for _, in := range inputs {
					table.Row(in.ID, in.Date.Format(dateLayout), in.Amount.StringFixed(2), in.Description)
				}
				return table.Flush()
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Import", "Already imported lines are skipped when you run the import again.")
			ctx = handler.HandleInterrupts(ctx)

			bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(inputs), "Importing expenses...")
			summary, err := a.engine.AddExpenses(ctx, a.user, inputs, func() {
				_ = bar.Add(1)
			})
			if err != nil && !handler.WasInterrupted() {
				return fmt.Errorf("import failed: %w", err)
			}

			report := fmt.Sprintf("  • Added: %d\n  • Already imported: %d\n  • Categorized: %d\n  • City recognized: %d",
				summary.Added, summary.Skipped, summary.Categorized, summary.CityRecognized)
			if summary.Failed > 0 {
				report += fmt.Sprintf("\n  • Failed: %d", summary.Failed)
			}
			if credits > 0 {
				report += fmt.Sprintf("\n  • Credits ignored: %d", credits)
			}
			fmt.Fprintln(w, cli.RenderBox("Import complete", report))
			return nil
		},
	}

	cmd.Flags().Bool("include-credits", false, "Also import incoming payments")
	cmd.Flags().BoolP("dry-run", "n", false, "Show what would be imported without saving")

	return cmd
}

// expandFiles resolves globs, keeping literal paths that exist.
func expandFiles(args []string) ([]string, error) {
	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

func parseOFXFile(cmd *cobra.Command, parser *ofx.Parser, path string) ([]ofx.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return parser.ParseFile(cmd.Context(), f)
}
