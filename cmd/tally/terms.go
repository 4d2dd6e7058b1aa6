package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/export"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/tui"
)

func termsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Work through the unrecognized-term ledger",
		Long: `Words from uncategorized descriptions wait in the ledger until they are
assigned to a category or a city, or discarded. Assigning a term
recategorizes every stored expense that contains it.`,
	}

	cmd.AddCommand(listTermsCmd(opts))
	cmd.AddCommand(assignTermCmd(opts))
	cmd.AddCommand(assignCityCmd(opts))
	cmd.AddCommand(retryTermCmd(opts))
	cmd.AddCommand(discardTermCmd(opts))
	cmd.AddCommand(exportTermsCmd(opts))
	cmd.AddCommand(reviewTermsCmd(opts))

	return cmd
}

func listTermsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending terms, most frequent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			terms, err := a.ledger.List(ctx, a.user)
			if err != nil {
				return fmt.Errorf("failed to list terms: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(terms) == 0 {
				fmt.Fprintln(w, cli.FormatSuccess("The ledger is empty."))
				return nil
			}
			if limit > 0 && len(terms) > limit {
				terms = terms[:limit]
			}

			table := cli.NewTable(w, "Term", "Seen", "First seen", "Last seen", "Source")
			for _, t := range terms {
				table.Row(t.Term, t.Frequency,
					t.FirstSeen.Local().Format(dateLayout),
					t.LastSeen.Local().Format(dateLayout),
					t.Source)
			}
			return table.Flush()
		},
	}

	cmd.Flags().Int("limit", 0, "Maximum number of terms to show")

	return cmd
}

func assignTermCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <term> <category>",
		Short: "Assign a term to a category",
		Long: `Assign a term to a category. The term becomes a keyword, leaves the ledger and
every uncategorized expense containing it is recategorized.

Example:
  tally terms assign такси Transport`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.findCategory(ctx, args[1])
			if err != nil {
				return err
			}

			res, err := a.ledger.AssignCategory(ctx, a.user, args[0], cat.ID)
			if err != nil {
				return assignFailure(err, cat.Name)
			}

			msg := fmt.Sprintf("%q → %s (%d expenses recategorized)", res.Keyword, cat.Name, res.RecategorizedCount)
			if !res.KeywordCreated {
				msg += " " + cli.SubtleStyle.Render("keyword already existed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return nil
		},
	}
}

func assignCityCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assign-city <term> <city>",
		Short: "Assign a term to a city",
		Long: `Record a term as an alias of a city, remove it from the ledger and set the city
on stored expenses that mention it and have no recognized city.

Example:
  tally terms assign-city mnsk Минск`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.ledger.AssignCity(ctx, a.user, args[0], args[1])
			if err != nil {
				if errors.Is(err, ledger.ErrEmptyCity) || errors.Is(err, ledger.ErrEmptyTerm) {
					return common.NewUserError("term and city are required", err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%q → %s (%d expenses updated)", res.Term, res.City, res.UpdatedCount)))
			return nil
		},
	}
}

func retryTermCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <term> <category>",
		Short: "Finish an assignment whose sweep failed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.findCategory(ctx, args[1])
			if err != nil {
				return err
			}

			res, err := a.ledger.RetrySweep(ctx, a.user, args[0], cat.ID)
			if err != nil {
				return assignFailure(err, cat.Name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%q → %s (%d expenses recategorized)", res.Keyword, cat.Name, res.RecategorizedCount)))
			return nil
		},
	}
}

func discardTermCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <term>",
		Short: "Remove a term from the ledger without assigning it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ledger.Discard(ctx, a.user, args[0]); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("term %q is not in the ledger", args[0]), err)
				}
				return fmt.Errorf("failed to discard term: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Discarded %q", args[0])))
			return nil
		},
	}
}

func exportTermsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			delimiter, _ := cmd.Flags().GetString("delimiter")
			delim, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			terms, err := a.ledger.List(ctx, a.user)
			if err != nil {
				return fmt.Errorf("failed to list terms: %w", err)
			}

			if output == "" || output == "-" {
				return export.NewWriter(delim).WriteTerms(cmd.OutOrStdout(), terms)
			}

			path := config.ExpandPath(output)
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := export.NewWriter(delim).WriteTerms(f, terms); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", path, err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("Exported %d terms to %s", len(terms), path)))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().String("delimiter", ",", "CSV delimiter (a single character or 'tab')")

	return cmd
}

func reviewTermsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review the ledger interactively",
		Long: `Walk the ledger in a terminal UI. Pick a category by number, type a city,
skip a term for later or discard it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := tui.DefaultConfig()
			cfg.UserID = a.user
			cfg.Reviewer = a.ledger
			cfg.Categories = a.store

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Review", "Assignments made so far are saved.")
			stats, err := tui.Run(handler.HandleInterrupts(ctx), cfg)
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("  • Categorized: %d\n  • Cities: %d\n  • Discarded: %d\n  • Skipped: %d\n  • Expenses recategorized: %d",
				stats.Categorized, stats.Cities, stats.Discarded, stats.Skipped, stats.Recategorized)
			if stats.Failed > 0 {
				summary += fmt.Sprintf("\n  • Failed: %d", stats.Failed)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Review complete", summary))
			return nil
		},
	}
}
