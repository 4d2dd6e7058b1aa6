package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
)

func patternsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect the city patterns",
		Long:  `List the city extraction patterns in priority order and test them against a description.`,
	}

	cmd.AddCommand(listPatternsCmd(opts))
	cmd.AddCommand(testPatternsCmd(opts))

	return cmd
}

func listPatternsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List city patterns with their configured weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.engine.Snapshot(ctx, a.user)
			if err != nil {
				return err
			}
			cityOpts := a.cfg.CityOptions()

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, cli.FormatTitle("City patterns"))
			table := cli.NewTable(w, "#", "ID", "Base", "Weight", "Description")
			for i, p := range snap.Extractor.Patterns() {
				weight := fmt.Sprintf("%.2f", cityOpts.Weight(p.ID))
				if cityOpts.Weight(p.ID) == 0 {
					weight = cli.SubtleStyle.Render("disabled")
				}
				table.Row(i+1, p.ID, fmt.Sprintf("%.2f", p.Confidence), weight, p.Description)
			}
			return table.Flush()
		},
	}
}

func testPatternsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test <description>",
		Short: "Show which patterns match a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := strings.Join(args, " ")

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.engine.Snapshot(ctx, a.user)
			if err != nil {
				return err
			}
			cityOpts := a.cfg.CityOptions()

			w := cmd.OutOrStdout()
			candidates := snap.Extractor.Candidates(description, cityOpts)
			if len(candidates) == 0 {
				fmt.Fprintln(w, cli.FormatInfo("No pattern matched."))
				return nil
			}

			table := cli.NewTable(w, "Pattern", "Fragment", "City", "Score", "Synonym", "Known")
			for _, c := range candidates {
				table.Row(c.PatternID, c.Match.Fragment, c.City,
					cli.FormatConfidence(min(c.Score, 1), cityOpts.MinConfidence),
					orDash(c.MatchedSynonym), c.KnownCity)
			}
			if err := table.Flush(); err != nil {
				return err
			}

			res := snap.Extractor.Extract(description, cityOpts)
			if res.City != "" {
				fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Winner: %s from %s at %.2f", res.DisplayCity, res.PatternID, res.Confidence)))
			}
			return nil
		},
	}
}
