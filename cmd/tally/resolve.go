package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/engine"
)

// resolveOutput is the --json shape of a resolution.
type resolveOutput struct {
	Description     string   `json:"description"`
	City            string   `json:"city,omitempty"`
	CityCanonical   string   `json:"city_canonical,omitempty"`
	PatternID       string   `json:"pattern_id,omitempty"`
	MatchedSynonym  string   `json:"matched_synonym,omitempty"`
	CleanText       string   `json:"clean_description"`
	Category        string   `json:"category,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Unrecognized    []string `json:"unrecognized,omitempty"`
	Confidence      float64  `json:"confidence"`
	CategoryID      int64    `json:"category_id,omitempty"`
	Recognized      bool     `json:"city_recognized"`
	AutoCategorized bool     `json:"auto_categorized"`
}

func resolveCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <description>",
		Short: "Resolve a description without storing it",
		Long: `Run city extraction and category resolution on a description and show the
result. Nothing is saved and the ledger is not touched.

Examples:
  tally resolve "BY COFFEEBAR, MINSK"
  tally resolve --explain "Оплата услуг такси г. Гродно"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			explain, _ := cmd.Flags().GetBool("explain")
			description := strings.Join(args, " ")

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Resolve(ctx, a.user, description)
			if err != nil {
				return fmt.Errorf("failed to resolve: %w", err)
			}
			names, err := a.categoryNames(ctx)
			if err != nil {
				return err
			}

			out := resolveOutput{
				Description:     description,
				City:            res.City.DisplayCity,
				CityCanonical:   res.City.City,
				PatternID:       res.City.PatternID,
				MatchedSynonym:  res.City.MatchedSynonym,
				CleanText:       res.CategoryText,
				Category:        names[res.Category.CategoryID],
				MatchedKeywords: res.Category.MatchedKeywords,
				Unrecognized:    res.Unrecognized,
				Confidence:      res.City.Confidence,
				CategoryID:      res.Category.CategoryID,
				Recognized:      res.Recognized,
				AutoCategorized: res.Category.AutoCategorized,
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return printResolution(cmd, a, out, res, explain)
		},
	}

	cmd.Flags().Bool("json", false, "Print the resolution as JSON")
	cmd.Flags().Bool("explain", false, "Show every pattern's proposal")

	return cmd
}

func printResolution(cmd *cobra.Command, a *app, out resolveOutput, res engine.Resolution, explain bool) error {
	w := cmd.OutOrStdout()
	minConfidence := a.cfg.City.MinConfidence

	city := cli.SubtleStyle.Render("none")
	if out.City != "" {
		city = cli.BoldStyle.Render(out.City)
		if !out.Recognized {
			city += " " + cli.WarningStyle.Render("(below threshold)")
		}
	}
	category := cli.SubtleStyle.Render("uncategorized")
	if out.AutoCategorized {
		category = cli.BoldStyle.Render(orDash(out.Category)) + " via " + strings.Join(out.MatchedKeywords, ", ")
	}

	lines := []string{
		fmt.Sprintf("%s City:       %s", cli.CityIcon, city),
		fmt.Sprintf("   Confidence: %s (pattern %s)", cli.FormatConfidence(out.Confidence, minConfidence), orDash(out.PatternID)),
		fmt.Sprintf("   Text:       %s", out.CleanText),
		fmt.Sprintf("   Category:   %s", category),
	}
	if len(out.Unrecognized) > 0 {
		lines = append(lines, fmt.Sprintf("   Unknown:    %s", strings.Join(out.Unrecognized, ", ")))
	}
	fmt.Fprintln(w, cli.RenderBox(out.Description, strings.Join(lines, "\n")))

	if !explain {
		return nil
	}
	table := cli.NewTable(w, "Pattern", "City", "Base", "Weight", "Score", "Synonym", "Known")
	for _, c := range res.Candidates {
		table.Row(c.PatternID, c.City,
			fmt.Sprintf("%.2f", c.Base),
			fmt.Sprintf("%.2f", c.Weight),
			fmt.Sprintf("%.2f", c.Score),
			orDash(c.MatchedSynonym),
			c.KnownCity)
	}
	return table.Flush()
}
