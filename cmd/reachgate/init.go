package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foxzi/reachgate/internal/money"
)

// initOptions holds the values written into a generated config
type initOptions struct {
	ListenAddr     string
	DataDir        string
	APIKey         string
	APIKeyHash     string
	InitialBalance money.Amount
	InitialCredits int
	Metrics        bool
	Origins        []string
}

var (
	initOutput  string
	initDataDir string
	initListen  string
	initAPIKey  string
	initBalance string
	initCredits int
	initMetrics bool
	initOrigins []string
	initForce   bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a reachgate configuration file",
	Long: `Create a configuration file for the preview server and the CLI.

An API key is generated unless --api-key is given. The key is written to
api.api_key for the CLI and its bcrypt hash to auth.api_key_hash for the
server.

Examples:
  reachgate init
  reachgate init --data-dir ./data --balance 50.00 --credits 100 -o dev.yaml
  reachgate init --origin http://localhost:3000 --metrics`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "/var/lib/reachgate", "Data directory for the store")
	initCmd.Flags().StringVar(&initListen, "listen", ":8080", "Preview server listen address")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (auto-generated if not provided)")
	initCmd.Flags().StringVar(&initBalance, "balance", "0", "Initial wallet balance")
	initCmd.Flags().IntVar(&initCredits, "credits", 0, "Initial reboost credits")
	initCmd.Flags().BoolVar(&initMetrics, "metrics", false, "Enable Prometheus metrics")
	initCmd.Flags().StringSliceVar(&initOrigins, "origin", nil, "Dashboard origin allowed by CORS (repeatable)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	balance, err := money.Parse(initBalance)
	if err != nil {
		return fmt.Errorf("invalid --balance: %w", err)
	}
	if balance.IsNegative() || initCredits < 0 {
		return fmt.Errorf("initial balance and credits must not be negative")
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	key := initAPIKey
	if key == "" {
		key = generateRandomString(32)
		fmt.Fprintf(out, "  Generated API key: %s\n", key)
	}
	hash, err := hashAPIKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(initDataDir, 0755); err != nil {
		fmt.Fprintf(out, "  Warning: Could not create data directory: %v\n", err)
	}

	opts := initOptions{
		ListenAddr:     initListen,
		DataDir:        initDataDir,
		APIKey:         key,
		APIKeyHash:     hash,
		InitialBalance: balance,
		InitialCredits: initCredits,
		Metrics:        initMetrics,
		Origins:        initOrigins,
	}
	if err := os.WriteFile(initOutput, []byte(generateConfig(opts)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "  Configuration saved to: %s\n", initOutput)
	fmt.Fprintln(out)
	printNextSteps(out, opts)
	return nil
}

func generateConfig(opts initOptions) string {
	corsSection := "cors:\n  allowed_origins: []"
	if len(opts.Origins) > 0 {
		corsSection = "cors:\n  allowed_origins:"
		for _, origin := range opts.Origins {
			corsSection += fmt.Sprintf("\n    - %q", origin)
		}
	}

	return fmt.Sprintf(`# reachgate configuration
# Generated by: reachgate init

server:
  listen_addr: "%s"
  max_header_bytes: 1048576  # 1 MB
  read_timeout: 30s
  write_timeout: 30s
  idle_timeout: 60s

# Backend used by the CLI commands
api:
  base_url: "%s"
  api_key: "%s"
  timeout: 30s

auth:
  api_key_hash: "%s"

pricing:
  per_message_cost: 1.70
  startup_fee: 1.00

segments:
  debounce: 500ms
  count_timeout: 15s

# Applied only when the store is created
wallet:
  initial_balance: %s
  initial_credits: %d

storage:
  path: "%s"

metrics:
  enabled: %t
  listen_addr: ":9090"
  path: "/metrics"
  collect_interval: 10s
  allowed_ips:
    - "127.0.0.1"

%s

logging:
  level: "info"
  format: "json"
`,
		opts.ListenAddr,
		baseURLFor(opts.ListenAddr),
		opts.APIKey,
		opts.APIKeyHash,
		opts.InitialBalance,
		opts.InitialCredits,
		filepath.Join(opts.DataDir, "reachgate.db"),
		opts.Metrics,
		corsSection,
	)
}

// baseURLFor returns a local URL reaching a server bound to addr
func baseURLFor(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func printNextSteps(w io.Writer, opts initOptions) {
	fmt.Fprintln(w, "Next Steps")
	fmt.Fprintln(w, "==========")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Start the preview server:")
	fmt.Fprintf(w, "   reachgate serve -c %s\n", initOutput)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "2. Import contacts:")
	fmt.Fprintf(w, "   reachgate contacts import contacts.csv --remote -c %s\n", initOutput)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "3. Count a segment:")
	fmt.Fprintf(w, "   curl -X POST %s/segments/count \\\n", baseURLFor(opts.ListenAddr))
	fmt.Fprintf(w, "     -H \"Authorization: Bearer %s\" \\\n", opts.APIKey)
	fmt.Fprintln(w, "     -H \"Content-Type: application/json\" \\")
	fmt.Fprintln(w, `     -d '[{"field":"tags","operator":"in","value":["vip"]}]'`)
}
