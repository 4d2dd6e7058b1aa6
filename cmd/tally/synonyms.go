package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/synonym"
)

func synonymsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synonyms",
		Short: "Manage city and keyword aliases",
		Long: `Aliases map alternative spellings to a canonical city or keyword, such as
"mnsk" to "Минск" or "yandex go" to "такси". User aliases are layered over
the built-in seed.`,
	}

	cmd.AddCommand(listSynonymsCmd(opts))
	cmd.AddCommand(addSynonymCmd(opts))

	return cmd
}

func parseKind(value string) (model.SynonymKind, error) {
	kind := model.SynonymKind(value)
	if !kind.IsValid() {
		return "", common.NewUserError(fmt.Sprintf("unknown kind %q, expected city or keyword", value), nil)
	}
	return kind, nil
}

func listSynonymsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kindStr, _ := cmd.Flags().GetString("kind")
			kind, err := parseKind(kindStr)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			synonyms, err := a.store.GetSynonyms(ctx, a.user, kind)
			if err != nil {
				return fmt.Errorf("failed to get synonyms: %w", err)
			}

			w := cmd.OutOrStdout()
			if len(synonyms) == 0 {
				fmt.Fprintln(w, cli.InfoStyle.Render(fmt.Sprintf("No %s aliases yet. Use 'tally synonyms add --kind %s'.", kind, kind)))
				return nil
			}

			table := cli.NewTable(w, "Alias", "Canonical", "Source", "Added")
			for _, s := range synonyms {
				table.Row(s.Alias, s.CanonicalID, s.Source, s.CreatedAt.Local().Format(dateLayout))
			}
			return table.Flush()
		},
	}

	cmd.Flags().String("kind", string(model.SynonymCity), "Alias kind (city or keyword)")

	return cmd
}

func addSynonymCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <alias> <canonical>",
		Short: "Add or rebind an alias",
		Long: `Add an alias. An alias that already points somewhere else is rebound and the
previous target is reported. The name of another city or keyword cannot be
used as an alias.

Examples:
  tally synonyms add mnsk Минск
  tally synonyms add --kind keyword "yandex go" такси`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kindStr, _ := cmd.Flags().GetString("kind")
			kind, err := parseKind(kindStr)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			syn, displaced, err := a.engine.AddSynonym(ctx, a.user, kind, args[0], args[1])
			if errors.Is(err, synonym.ErrAliasIsCanonical) {
				return common.NewUserError(fmt.Sprintf("%q is already a %s of its own and cannot be an alias", args[0], kind), err)
			}
			if err != nil {
				return fmt.Errorf("failed to add synonym: %w", err)
			}

			w := cmd.OutOrStdout()
			if displaced != "" {
				fmt.Fprintln(w, cli.FormatWarning(fmt.Sprintf("%q pointed at %s; now %s", syn.Alias, displaced, syn.CanonicalID)))
				return nil
			}
			fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%q → %s", syn.Alias, syn.CanonicalID)))
			return nil
		},
	}

	cmd.Flags().String("kind", string(model.SynonymCity), "Alias kind (city or keyword)")

	return cmd
}
