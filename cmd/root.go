// Package cmd implements the legal-indexer command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcommon "github.com/jonesrussell/north-cloud/legal-indexer/cmd/common"
	"github.com/jonesrussell/north-cloud/legal-indexer/cmd/health"
	"github.com/jonesrussell/north-cloud/legal-indexer/cmd/ledger"
	"github.com/jonesrussell/north-cloud/legal-indexer/cmd/serve"
	"github.com/jonesrussell/north-cloud/legal-indexer/cmd/ucc"
	"github.com/jonesrussell/north-cloud/legal-indexer/cmd/uscode"
)

// envPrefix scopes viper's environment lookups, e.g. LEGAL_INDEXER_LOG_LEVEL.
const envPrefix = "LEGAL_INDEXER"

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// rootCmd represents the root command for the legal-indexer CLI.
var rootCmd = &cobra.Command{
	Use:   "legal-indexer",
	Short: "Index the US Code and the Uniform Commercial Code",
	Long: `legal-indexer fetches US Code titles from GovInfo and UCC articles from
Cornell LII, parses them into sections, subsections, definitions and cross
references, and stores the records in the legal records backend.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command until it finishes or a signal arrives.
func Execute() error {
	// Environment from .env must be visible to viper's lookups below.
	_ = godotenv.Load()

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(cmdcommon.KeyConfig, "", "config file (default ./config.yml when present)")
	flags.Bool(cmdcommon.KeyDebug, false, "enable debug logging")
	flags.String(cmdcommon.KeyLogLevel, "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "legal-indexer version %s\n", Version)
		},
	})

	rootCmd.AddCommand(uscode.Command())
	rootCmd.AddCommand(ucc.Command())
	rootCmd.AddCommand(health.Command())
	rootCmd.AddCommand(ledger.Command())
	rootCmd.AddCommand(serve.Command())
}

// initConfig binds the persistent flags and their LEGAL_INDEXER_* variables.
func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for _, key := range []string{cmdcommon.KeyConfig, cmdcommon.KeyDebug, cmdcommon.KeyLogLevel} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", key, err)
		}
	}
	return nil
}
