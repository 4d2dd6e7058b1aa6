package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/logging"
)

var version = "dev"

// rootOptions carries the loaded configuration to every subcommand.
type rootOptions struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  logging.Logger
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "🧾 Expense description resolver",
		Long: `tally reads free-text expense descriptions, finds the city they happened in,
assigns a category from your keywords and keeps a ledger of the words it
could not place, so one answer fixes every matching expense.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.load,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.config/tally/config.yaml)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading TALLY_ variables")
	flags.String("db", "", "database path (default: "+config.DefaultDatabasePath()+")")
	flags.String("user", "", "user the command acts for (default: default)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	// Bind flags to viper
	_ = opts.v.BindPFlag("database.path", flags.Lookup("db"))
	_ = opts.v.BindPFlag("user", flags.Lookup("user"))
	_ = opts.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = opts.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	// Add commands
	rootCmd.AddCommand(resolveCmd(opts))
	rootCmd.AddCommand(expensesCmd(opts))
	rootCmd.AddCommand(categoriesCmd(opts))
	rootCmd.AddCommand(keywordsCmd(opts))
	rootCmd.AddCommand(synonymsCmd(opts))
	rootCmd.AddCommand(termsCmd(opts))
	rootCmd.AddCommand(patternsCmd(opts))
	rootCmd.AddCommand(importOFXCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		if hint := common.HintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, cli.FormatInfo("Try: "+hint))
		}
		os.Exit(1)
	}
}

func (o *rootOptions) load(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(o.v, config.LoadOptions{
		ConfigFile: o.cfgFile,
		EnvFile:    o.envFile,
	})
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = cfg.Logger()
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tally version %s\n", version)
		},
	}
}
