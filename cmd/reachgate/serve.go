package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/reachgate/internal/app"
	"github.com/foxzi/reachgate/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview API server",
	Long:  `Start the preview API over the local contact store, with optional Prometheus metrics.`,
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, configCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := app.NewLogger(cfg.Logging, nil)

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return a.Run(commandContext(cmd))
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration is valid")
	fmt.Fprintf(out, "  Listen address: %s\n", cfg.Server.ListenAddr)
	fmt.Fprintf(out, "  Backend URL: %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "  Storage path: %s\n", cfg.Storage.Path)
	fmt.Fprintf(out, "  API key required: %v\n", cfg.AuthEnabled())
	fmt.Fprintf(out, "  Pricing: %s per message + %s startup fee\n", cfg.Pricing.PerMessage, cfg.Pricing.StartupFee)
	fmt.Fprintf(out, "  Count debounce: %s\n", cfg.Segments.Debounce)
	fmt.Fprintf(out, "  Metrics: %v", cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		fmt.Fprintf(out, " (%s%s)", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}
	fmt.Fprintln(out)
	return nil
}
