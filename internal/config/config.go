// Package config loads the store configuration from <data>/config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"hecstore.ai/internal/spatial"
)

const FileName = "config.yaml"

const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"

	DirectoryMojang  = "mojang"
	DirectoryOffline = "offline"
)

type Config struct {
	// Storage origin in world coordinates.
	Position      spatial.Position `yaml:"position"`
	Fee           decimal.Decimal  `yaml:"fee"`
	AccountEmail  string           `yaml:"account_email"`
	ServerAddress string           `yaml:"server_address"`
	GatewayURL    string           `yaml:"gateway_url"`

	StorageBackend string `yaml:"storage_backend"`
	SQLitePath     string `yaml:"sqlite_path,omitempty"`

	Directory          string `yaml:"directory"`
	DirectoryURL       string `yaml:"directory_url,omitempty"`
	DirectoryTimeoutMS int    `yaml:"directory_timeout_ms"`
	RedisURL           string `yaml:"redis_url,omitempty"`
	RedisTTLS          int    `yaml:"redis_ttl_s"`

	InboxDepth        int `yaml:"inbox_depth"`
	OutboxDepth       int `yaml:"outbox_depth"`
	ShutdownTimeoutMS int `yaml:"shutdown_timeout_ms"`
	// ActionTimeoutMS bounds each instruction sent to the session and each in-game acknowledgment.
	ActionTimeoutMS int `yaml:"action_timeout_ms"`
	// TradeRetention keeps only the newest N trades. 0 keeps all.
	TradeRetention int `yaml:"trade_retention"`

	Journal     bool   `yaml:"journal"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Load reads path. A missing file is created with the defaults, which are returned.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := Write(path, cfg); err != nil {
			return cfg, fmt.Errorf("config.yaml: create default: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.yaml: %w", err)
	}
	return cfg, nil
}

// Write stores cfg as YAML, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func defaults() Config {
	return Config{
		Fee:                decimal.Zero,
		ServerAddress:      "corejourney.org",
		GatewayURL:         "ws://127.0.0.1:8090/v1/session",
		StorageBackend:     BackendFiles,
		Directory:          DirectoryMojang,
		DirectoryTimeoutMS: 5000,
		RedisTTLS:          3600,
		InboxDepth:         64,
		OutboxDepth:        64,
		ShutdownTimeoutMS:  10000,
		ActionTimeoutMS:    30000,
		Journal:            true,
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if c.StorageBackend == "" {
		c.StorageBackend = BackendFiles
	}
	c.Directory = strings.ToLower(strings.TrimSpace(c.Directory))
	if c.Directory == "" {
		c.Directory = DirectoryMojang
	}
	if c.StorageBackend == BackendSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		c.SQLitePath = "store.sqlite"
	}
	if c.DirectoryTimeoutMS <= 0 {
		c.DirectoryTimeoutMS = 5000
	}
	if c.InboxDepth <= 0 {
		c.InboxDepth = 64
	}
	if c.OutboxDepth <= 0 {
		c.OutboxDepth = 64
	}
	if c.ShutdownTimeoutMS <= 0 {
		c.ShutdownTimeoutMS = 10000
	}
	if c.ActionTimeoutMS <= 0 {
		c.ActionTimeoutMS = 30000
	}
}

func (c Config) Validate() error {
	c.Normalize()
	if c.Fee.IsNegative() || c.Fee.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee must be in [0, 1], got %s", c.Fee)
	}
	switch c.StorageBackend {
	case BackendFiles, BackendSQLite:
	default:
		return fmt.Errorf("storage_backend %q must be %q or %q", c.StorageBackend, BackendFiles, BackendSQLite)
	}
	switch c.Directory {
	case DirectoryMojang, DirectoryOffline:
	default:
		return fmt.Errorf("directory %q must be %q or %q", c.Directory, DirectoryMojang, DirectoryOffline)
	}
	if c.TradeRetention < 0 {
		return fmt.Errorf("trade_retention must be >= 0")
	}
	if c.RedisTTLS < 0 {
		return fmt.Errorf("redis_ttl_s must be >= 0")
	}
	if c.GatewayURL != "" {
		u, err := url.Parse(c.GatewayURL)
		if err != nil {
			return fmt.Errorf("gateway_url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("gateway_url scheme must be ws or wss, got %q", u.Scheme)
		}
	}
	return nil
}

func (c Config) DirectoryTimeout() time.Duration {
	return time.Duration(c.DirectoryTimeoutMS) * time.Millisecond
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

func (c Config) ActionTimeout() time.Duration {
	return time.Duration(c.ActionTimeoutMS) * time.Millisecond
}

func (c Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLS) * time.Second
}
