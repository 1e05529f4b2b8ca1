package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxzi/reachgate/internal/money"
)

func TestLoad(t *testing.T) {
	content := `
server:
  listen_addr: ":9080"
  read_timeout: 10s

api:
  base_url: "https://dashboard.example.com/api"
  api_key: "client-key"
  timeout: 5s

auth:
  api_key_hash: "$2a$10$abcdefghijklmnopqrstuv"

pricing:
  per_message_cost: 2.05
  startup_fee: "0.50"

segments:
  debounce: 250ms

wallet:
  initial_balance: 100
  initial_credits: 40

storage:
  path: "/tmp/test.db"

metrics:
  enabled: true
  allowed_ips:
    - 127.0.0.1

cors:
  allowed_origins:
    - "https://app.example.com"

logging:
  level: "debug"
  format: "text"
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9080" {
		t.Errorf("Server.ListenAddr = %v, want :9080", cfg.Server.ListenAddr)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout)
	}
	if cfg.API.BaseURL != "https://dashboard.example.com/api" {
		t.Errorf("API.BaseURL = %v", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout)
	}
	if !cfg.AuthEnabled() {
		t.Error("AuthEnabled() = false, want true")
	}
	if cfg.Pricing.PerMessage != money.FromCents(205) {
		t.Errorf("Pricing.PerMessage = %v, want 2.05", cfg.Pricing.PerMessage)
	}
	if cfg.Pricing.StartupFee != money.FromCents(50) {
		t.Errorf("Pricing.StartupFee = %v, want 0.50", cfg.Pricing.StartupFee)
	}
	if cfg.Segments.Debounce != 250*time.Millisecond {
		t.Errorf("Segments.Debounce = %v, want 250ms", cfg.Segments.Debounce)
	}
	if cfg.Wallet.InitialBalance != money.FromCents(10000) || cfg.Wallet.InitialCredits != 40 {
		t.Errorf("Wallet = %+v", cfg.Wallet)
	}
	if !cfg.Metrics.Enabled || len(cfg.Metrics.AllowedIPs) != 1 {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Parse([]byte("storage:\n  path: /tmp/x.db\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %v, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.MaxHeaderBytes != 1<<20 {
		t.Errorf("Server.MaxHeaderBytes = %v, want 1MB", cfg.Server.MaxHeaderBytes)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.Pricing.PerMessage != money.FromCents(170) || cfg.Pricing.StartupFee != money.FromCents(100) {
		t.Errorf("Pricing = %+v, want 1.70/1.00", cfg.Pricing)
	}
	if cfg.Segments.Debounce != 500*time.Millisecond {
		t.Errorf("Segments.Debounce = %v, want 500ms", cfg.Segments.Debounce)
	}
	if cfg.Metrics.ListenAddr != ":9090" || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.AuthEnabled() {
		t.Error("AuthEnabled() = true with no hash")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %v, want json", cfg.Logging.Format)
	}
}

func TestExplicitZeroPricingKept(t *testing.T) {
	cfg, err := Parse([]byte("pricing:\n  startup_fee: 0\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !cfg.Pricing.StartupFee.IsZero() {
		t.Errorf("StartupFee = %v, want 0.00", cfg.Pricing.StartupFee)
	}
	if cfg.Pricing.PerMessage != money.FromCents(170) {
		t.Errorf("PerMessage = %v, want default 1.70", cfg.Pricing.PerMessage)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid"},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: "logging.level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "negative per message cost",
			mutate:  func(c *Config) { c.Pricing.PerMessage = money.FromCents(-1) },
			wantErr: "per_message_cost",
		},
		{
			name:    "negative startup fee",
			mutate:  func(c *Config) { c.Pricing.StartupFee = money.FromCents(-100) },
			wantErr: "startup_fee",
		},
		{
			name:    "negative credits",
			mutate:  func(c *Config) { c.Wallet.InitialCredits = -3 },
			wantErr: "initial_credits",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "/api" },
			wantErr: "api.base_url",
		},
		{
			name:    "plain api key instead of hash",
			mutate:  func(c *Config) { c.Auth.APIKeyHash = "secret" },
			wantErr: "bcrypt",
		},
		{
			name:    "empty cors origin",
			mutate:  func(c *Config) { c.CORS.AllowedOrigins = []string{" "} },
			wantErr: "cors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	content := `invalid: yaml: content: [`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}
