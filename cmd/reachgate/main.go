package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/reachgate/internal/api"
	"github.com/foxzi/reachgate/internal/app"
	"github.com/foxzi/reachgate/internal/client"
	"github.com/foxzi/reachgate/internal/config"
	"github.com/foxzi/reachgate/internal/store"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reachgate",
	Short: "reachgate - campaign audience and spend tools",
	Long: `reachgate builds contact segments, previews their size and checks
campaign costs against the wallet, budget caps and reboost credits.
It also runs a local preview API implementing the dashboard backend.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reachgate version %s\n", version)
		if commit != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	api.Version = version
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file, or returns defaults when none is given
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	// CLI output goes to stdout, so logs go to stderr
	return app.NewLogger(cfg.Logging, os.Stderr)
}

func newClient(cfg *config.Config) *client.Client {
	return client.NewClient(cfg.API.BaseURL, cfg.API.APIKey, client.Options{Timeout: cfg.API.Timeout})
}

// openStore opens the local database directly. It fails while a running
// server holds the file lock.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Storage.Path, store.WalletSeed{
		Balance: cfg.Wallet.InitialBalance,
		Credits: cfg.Wallet.InitialCredits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return st, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
