// Package config loads StoryAI configuration from YAML with environment
// overrides, and watches the file for live changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all StoryAI configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Terminal TerminalConfig `yaml:"terminal"`
	Story    StoryConfig    `yaml:"story"`
	Wallet   WalletConfig   `yaml:"wallet"`
	AI       AIConfig       `yaml:"ai"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TerminalConfig configures the terminal session.
type TerminalConfig struct {
	Prompt          string `yaml:"prompt"`
	ProcessingDelay string `yaml:"processing_delay"`
	HistoryLimit    int    `yaml:"history_limit"` // 0 keeps every entry
	Theme           string `yaml:"theme"`         // dark, light
	BootEnabled     bool   `yaml:"boot_enabled"`
}

// StoryConfig configures the story collaborator and its contribution policy.
type StoryConfig struct {
	Backend         string  `yaml:"backend"` // memory, sqlite
	DatabasePath    string  `yaml:"database_path"`
	MinTokenBalance float64 `yaml:"min_token_balance"`
	Cooldown        string  `yaml:"cooldown"`
	ExportDir       string  `yaml:"export_dir"` // where "export story" writes
}

// WalletConfig configures the wallet and balance oracle.
type WalletConfig struct {
	Oracle            string   `yaml:"oracle"` // static, rpc
	Network           string   `yaml:"network"`
	TokenAddress      string   `yaml:"token_address"`
	RPCEndpoint       string   `yaml:"rpc_endpoint"`
	FallbackEndpoints []string `yaml:"fallback_endpoints"` // tried in order after rpc_endpoint
	DefaultBalance    float64  `yaml:"default_balance"`
	BalanceCacheTTL   string   `yaml:"balance_cache_ttl"`
}

// AIConfig configures line suggestions.
type AIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ServerConfig configures the websocket terminal server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool   `yaml:"debug_mode"`
	Level      string `yaml:"level"` // debug, info, warn, error
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "StoryAI Terminal",
		Version: "1.0.0",

		Terminal: TerminalConfig{
			Prompt:          "> ",
			ProcessingDelay: "100ms",
			Theme:           "dark",
			BootEnabled:     true,
		},

		Story: StoryConfig{
			Backend:         "memory",
			DatabasePath:    "data/story.db",
			MinTokenBalance: 100000,
			Cooldown:        "24h",
			ExportDir:       ".",
		},

		Wallet: WalletConfig{
			Oracle:       "static",
			Network:      "mainnet-beta",
			TokenAddress: "BwW3Gj2QDGLQyfLWzcuaWvXW9UtG4bLsUC8UPB6Cpump",
			RPCEndpoint:  "https://api.mainnet-beta.solana.com",
			FallbackEndpoints: []string{
				"https://api.devnet.solana.com",
				"https://solana-mainnet.g.alchemy.com/v2/demo",
				"https://rpc.ankr.com/solana",
			},
			DefaultBalance:  150000,
			BalanceCacheTTL: "30s",
		},

		AI: AIConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "30s",
		},

		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},

		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "logs/storyai.log",
			MaxSizeMB:  15,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STORYAI_NETWORK"); v != "" {
		c.Wallet.Network = v
	}
	if v := os.Getenv("STORYAI_TOKEN_ADDRESS"); v != "" {
		c.Wallet.TokenAddress = v
	}
	if v := os.Getenv("STORYAI_RPC_ENDPOINT"); v != "" {
		c.Wallet.RPCEndpoint = v
	}
	// Comma-separated; "none" disables fallbacks
	if v := os.Getenv("STORYAI_RPC_FALLBACKS"); v != "" {
		c.Wallet.FallbackEndpoints = splitList(v)
	}

	// Database path from environment switches the backend to sqlite
	if path := os.Getenv("STORYAI_DB"); path != "" {
		c.Story.DatabasePath = path
		c.Story.Backend = "sqlite"
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.AI.APIKey = key
	}

	if theme := os.Getenv("STORYAI_THEME"); theme != "" {
		c.Terminal.Theme = strings.ToLower(theme)
	}

	if v := os.Getenv("STORYAI_DEBUG"); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		out = append(out, item)
	}
	return out
}

// RPCEndpoints returns the primary endpoint followed by the fallbacks,
// skipping blanks and duplicates.
func (c *Config) RPCEndpoints() []string {
	var out []string
	for _, e := range append([]string{c.Wallet.RPCEndpoint}, c.Wallet.FallbackEndpoints...) {
		if e = strings.TrimSpace(e); e != "" && !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// GetProcessingDelay returns the artificial command delay as a duration.
func (c *Config) GetProcessingDelay() time.Duration {
	d, err := time.ParseDuration(c.Terminal.ProcessingDelay)
	if err != nil || d < 0 {
		return 100 * time.Millisecond
	}
	return d
}

// GetCooldown returns the per-author contribution cooldown.
func (c *Config) GetCooldown() time.Duration {
	d, err := time.ParseDuration(c.Story.Cooldown)
	if err != nil || d < 0 {
		return 24 * time.Hour
	}
	return d
}

// GetBalanceCacheTTL returns how long fetched balances are reused.
func (c *Config) GetBalanceCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Wallet.BalanceCacheTTL)
	if err != nil || d < 0 {
		return 30 * time.Second
	}
	return d
}

// GetAITimeout returns the line generation timeout.
func (c *Config) GetAITimeout() time.Duration {
	d, err := time.ParseDuration(c.AI.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Valid option sets.
var (
	ValidThemes   = []string{"dark", "light"}
	ValidBackends = []string{"memory", "sqlite"}
	ValidNetworks = []string{"mainnet-beta", "testnet", "devnet"}
	ValidOracles  = []string{"static", "rpc"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidThemes, c.Terminal.Theme) {
		return fmt.Errorf("invalid theme: %s (valid: %v)", c.Terminal.Theme, ValidThemes)
	}
	if c.Terminal.HistoryLimit < 0 {
		return fmt.Errorf("terminal.history_limit must not be negative")
	}
	if !slices.Contains(ValidBackends, c.Story.Backend) {
		return fmt.Errorf("invalid story backend: %s (valid: %v)", c.Story.Backend, ValidBackends)
	}
	if c.Story.Backend == "sqlite" && c.Story.DatabasePath == "" {
		return fmt.Errorf("story.database_path required for sqlite backend (set STORYAI_DB)")
	}
	if c.Story.MinTokenBalance < 0 {
		return fmt.Errorf("story.min_token_balance must not be negative")
	}
	if !slices.Contains(ValidNetworks, c.Wallet.Network) {
		return fmt.Errorf("invalid network: %s (valid: %v)", c.Wallet.Network, ValidNetworks)
	}
	if !slices.Contains(ValidOracles, c.Wallet.Oracle) {
		return fmt.Errorf("invalid balance oracle: %s (valid: %v)", c.Wallet.Oracle, ValidOracles)
	}
	if c.Wallet.Oracle == "rpc" && (c.Wallet.RPCEndpoint == "" || c.Wallet.TokenAddress == "") {
		return fmt.Errorf("wallet.rpc_endpoint and wallet.token_address required for rpc oracle")
	}
	if c.Wallet.DefaultBalance < 0 {
		return fmt.Errorf("wallet.default_balance must not be negative")
	}
	for name, v := range map[string]string{
		"terminal.processing_delay": c.Terminal.ProcessingDelay,
		"story.cooldown":            c.Story.Cooldown,
		"wallet.balance_cache_ttl":  c.Wallet.BalanceCacheTTL,
		"ai.timeout":                c.AI.Timeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	return nil
}

// IsAIEnabled returns whether line suggestions can be generated.
func (c *Config) IsAIEnabled() bool {
	return c.AI.APIKey != ""
}
