package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
)

func categoriesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
		Long:  `List and add the categories keywords and ledger terms are assigned to.`,
	}

	cmd.AddCommand(listCategoriesCmd(opts))
	cmd.AddCommand(addCategoryCmd(opts))

	return cmd
}

func listCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.store.GetCategories(ctx, a.user)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			keywords, err := a.store.GetKeywords(ctx, a.user)
			if err != nil {
				return fmt.Errorf("failed to get keywords: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(w, cli.InfoStyle.Render("No categories found. Use 'tally categories add' to create one."))
				return nil
			}

			counts := make(map[int64]int, len(categories))
			for _, kw := range keywords {
				counts[kw.CategoryID]++
			}

			table := cli.NewTable(w, "ID", "Name", "Keywords")
			for _, c := range categories {
				table.Row(c.ID, c.Name, counts[c.ID])
			}
			return table.Flush()
		},
	}
}

func addCategoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Long:  `Add a category. Adding a name that already exists returns the existing one.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := a.store.CreateCategory(ctx, a.user, name)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q (ID %d)", cat.Name, cat.ID)))
			return nil
		},
	}
}
