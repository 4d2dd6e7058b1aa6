package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/engine"
	"github.com/Veraticus/tally/internal/export"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

func expensesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Add and list expenses",
		Long:  `Add expenses by description and list what has been resolved for them.`,
	}

	cmd.AddCommand(addExpenseCmd(opts))
	cmd.AddCommand(listExpensesCmd(opts))

	return cmd
}

func addExpenseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add an expense",
		Long: `Resolve and store an expense. When no keyword matches, the unknown words of the
description are recorded in the ledger for review.

Examples:
  tally expenses add --amount 4.50 "BY COFFEEBAR, MINSK"
  tally expenses add --amount 12 --date 2024-05-01 "Оплата услуг такси"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amountStr, _ := cmd.Flags().GetString("amount")
			dateStr, _ := cmd.Flags().GetString("date")
			id, _ := cmd.Flags().GetString("id")

			amount, err := decimal.NewFromString(amountStr)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("invalid amount %q", amountStr), err)
			}
			date, err := parseDate(dateStr)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.AddExpense(ctx, engine.ExpenseInput{
				ID:          id,
				UserID:      a.user,
				Description: strings.Join(args, " "),
				Amount:      amount,
				Date:        date,
				Source:      model.SourceManual,
			})
			if err != nil {
				return fmt.Errorf("failed to add expense: %w", err)
			}

			w := cmd.OutOrStdout()
			e := res.Expense
			fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Added expense %s", e.ID)))
			if e.City != "" {
				fmt.Fprintf(w, "  %s %s (%s)\n", cli.CityIcon, e.City, cli.FormatConfidence(e.CityConfidence, a.cfg.City.MinConfidence))
			}
			if e.Status == model.StatusCategorized {
				names, err := a.categoryNames(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  category: %s via %s\n", names[e.CategoryID], strings.Join(e.MatchedKeywords, ", "))
				return nil
			}
			fmt.Fprintln(w, cli.FormatInfo("Uncategorized."))
			for _, t := range res.Terms {
				fmt.Fprintf(w, "  recorded %q (seen %d×)\n", t.Term, t.Frequency)
			}
			return nil
		},
	}

	cmd.Flags().String("amount", "0", "Expense amount")
	cmd.Flags().String("date", "", "Expense date, YYYY-MM-DD (default: today)")
	cmd.Flags().String("id", "", "Expense ID (default: generated)")

	return cmd
}

func listExpensesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")
			asCSV, _ := cmd.Flags().GetBool("csv")
			delimiter, _ := cmd.Flags().GetString("delimiter")

			filter := service.ExpenseFilter{Limit: limit}
			switch model.ExpenseStatus(status) {
			case "", model.StatusCategorized, model.StatusUncategorized:
				filter.Status = model.ExpenseStatus(status)
			default:
				return common.NewUserError(fmt.Sprintf("unknown status %q, expected categorized or uncategorized", status), nil)
			}
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

			filter.UserID = a.user
			expenses, err := a.store.GetExpenses(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get expenses: %w", err)
			}
			names, err := a.categoryNames(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if asCSV {
				return export.NewWriter(delim).WriteExpenses(w, expenses, names)
			}
			if len(expenses) == 0 {
				fmt.Fprintln(w, cli.InfoStyle.Render("No expenses found. Use 'tally expenses add' or 'tally import-ofx' to add some."))
				return nil
			}

			table := cli.NewTable(w, "ID", "Date", "Amount", "City", "Category", "Description")
			for _, e := range expenses {
				category := cli.SubtleStyle.Render("uncategorized")
				if e.Status == model.StatusCategorized {
					category = names[e.CategoryID]
				}
				city := orDash(e.City)
				if e.City != "" && !e.CityRecognized {
					city += "?"
				}
				table.Row(e.ID, e.Date.Format(dateLayout), e.Amount.StringFixed(2), city, category, e.Description)
			}
			return table.Flush()
		},
	}

	cmd.Flags().String("status", "", "Only show categorized or uncategorized expenses")
	cmd.Flags().Int("limit", 0, "Maximum number of expenses to show")
	cmd.Flags().Bool("csv", false, "Write CSV instead of a table")
	cmd.Flags().String("delimiter", ",", "CSV delimiter (a single character or 'tab')")

	return cmd
}
