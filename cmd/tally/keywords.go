package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/ledger"
	"github.com/Veraticus/tally/internal/textnorm"
)

func keywordsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage category keywords",
		Long: `Keywords select a category when they appear in a description. The most
recently added matching keyword wins.`,
	}

	cmd.AddCommand(listKeywordsCmd(opts))
	cmd.AddCommand(addKeywordCmd(opts))
	cmd.AddCommand(deleteKeywordCmd(opts))

	return cmd
}

func listKeywordsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keywords, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			keywords, err := a.store.GetKeywords(ctx, a.user)
			if err != nil {
				return fmt.Errorf("failed to get keywords: %w", err)
			}
			names, err := a.categoryNames(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(keywords) == 0 {
				fmt.Fprintln(w, cli.InfoStyle.Render("No keywords yet. Use 'tally keywords add' or 'tally terms assign'."))
				return nil
			}

			table := cli.NewTable(w, "Keyword", "Category", "Added")
			for _, kw := range keywords {
				table.Row(kw.Keyword, names[kw.CategoryID], kw.CreatedAt.Local().Format(dateLayout))
			}
			return table.Flush()
		},
	}
}

func addKeywordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyword> <category>",
		Short: "Bind a keyword to a category",
		Long: `Bind a keyword to a category and recategorize every uncategorized expense
that contains it. The keyword is also removed from the ledger.`,
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
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%q → %s (%d expenses recategorized)", res.Keyword, cat.Name, res.RecategorizedCount)))
			return nil
		},
	}
}

func deleteKeywordCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <keyword>",
		Short: "Delete a keyword",
		Long:  `Delete a keyword. Expenses it already categorized keep their category.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			keyword := textnorm.Fold(args[0])
			if err := a.store.DeleteKeyword(ctx, a.user, keyword); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("keyword %q not found", keyword), err)
				}
				return fmt.Errorf("failed to delete keyword: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted keyword %q", keyword)))
			return nil
		},
	}
}

// assignFailure turns an assignment error into a message that says what was
// kept and how to finish.
func assignFailure(err error, categoryName string) error {
	var assignErr *ledger.AssignError
	if !errors.As(err, &assignErr) {
		return err
	}
	switch {
	case errors.Is(err, ledger.ErrKeywordConflict):
		return common.NewUserErrorWithHint(fmt.Sprintf("%q is already a keyword of another category", assignErr.Term),
			fmt.Sprintf("tally keywords delete %q", assignErr.Term), err)
	case errors.Is(err, ledger.ErrEmptyTerm):
		return common.NewUserError("term cannot be empty", err)
	case assignErr.CanRetrySweep():
		return common.NewUserErrorWithHint(fmt.Sprintf("%q was bound to %s but the sweep stopped after %d expenses", assignErr.Term, categoryName, assignErr.Updated),
			fmt.Sprintf("tally terms retry %q %q", assignErr.Term, categoryName), err)
	}
	return err
}
