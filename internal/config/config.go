package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foxzi/reachgate/internal/admission"
	"github.com/foxzi/reachgate/internal/money"
)

// Config is the main configuration structure
type Config struct {
	Server   ServerConfig      `yaml:"server"`   // Preview API server
	API      ClientConfig      `yaml:"api"`      // Dashboard backend used by the CLI
	Auth     AuthConfig        `yaml:"auth"`     // API key check on the preview server
	Pricing  admission.Pricing `yaml:"pricing"`  // Campaign cost model
	Segments SegmentsConfig    `yaml:"segments"` // Count refresh tuning
	Wallet   WalletConfig      `yaml:"wallet"`   // Seed values for a fresh store
	Storage  StorageConfig     `yaml:"storage"`
	Metrics  MetricsConfig     `yaml:"metrics"`
	CORS     CORSConfig        `yaml:"cors"`
	Logging  LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains preview API server settings
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Default: 1MB
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // Default: 30s
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // Default: 30s
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // Default: 60s
}

// ClientConfig points the CLI at a dashboard backend
type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"` // Default: 30s
}

// AuthConfig contains API key settings. An empty hash disables the check.
type AuthConfig struct {
	APIKeyHash string `yaml:"api_key_hash"` // bcrypt hash, see `reachgate apikey hash`
}

// SegmentsConfig tunes the debounced count refresh
type SegmentsConfig struct {
	Debounce     time.Duration `yaml:"debounce"`      // Default: 500ms
	CountTimeout time.Duration `yaml:"count_timeout"` // Default: 15s
}

// WalletConfig seeds the wallet of a newly created store
type WalletConfig struct {
	InitialBalance money.Amount `yaml:"initial_balance"`
	InitialCredits int          `yaml:"initial_credits"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	ListenAddr      string        `yaml:"listen_addr"`      // Default: :9090
	Path            string        `yaml:"path"`             // Default: /metrics
	CollectInterval time.Duration `yaml:"collect_interval"` // Default: 10s
	AllowedIPs      []string      `yaml:"allowed_ips"`      // IP addresses/CIDRs allowed to access metrics
}

// CORSConfig lists the dashboard origins allowed to call the preview server
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	// Pricing is prefilled so an explicit zero in the file is kept
	cfg := &Config{Pricing: admission.DefaultPricing()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{Pricing: admission.DefaultPricing()}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.MaxHeaderBytes == 0 {
		c.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8080"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}

	if c.Segments.Debounce == 0 {
		c.Segments.Debounce = 500 * time.Millisecond
	}
	if c.Segments.CountTimeout == 0 {
		c.Segments.CountTimeout = 15 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/reachgate/reachgate.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.CollectInterval == 0 {
		c.Metrics.CollectInterval = 10 * time.Second
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Pricing.PerMessage.IsNegative() {
		return fmt.Errorf("pricing.per_message_cost must not be negative")
	}
	if c.Pricing.StartupFee.IsNegative() {
		return fmt.Errorf("pricing.startup_fee must not be negative")
	}

	if c.Wallet.InitialBalance.IsNegative() {
		return fmt.Errorf("wallet.initial_balance must not be negative")
	}
	if c.Wallet.InitialCredits < 0 {
		return fmt.Errorf("wallet.initial_credits must not be negative")
	}

	if c.Segments.Debounce < 0 {
		return fmt.Errorf("segments.debounce must not be negative")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL: %q", c.API.BaseURL)
	}

	if h := c.Auth.APIKeyHash; h != "" && !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("auth.api_key_hash must be a bcrypt hash")
	}

	for _, origin := range c.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors.allowed_origins must not contain empty entries")
		}
	}

	return nil
}

// AuthEnabled reports whether the preview server requires an API key
func (c *Config) AuthEnabled() bool {
	return c.Auth.APIKeyHash != ""
}
