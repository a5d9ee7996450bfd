// ABOUTME: Configuration loading and parsing for stellara-admin
// ABOUTME: Supports YAML or TOML files with .env loading, env var expansion, and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBackendURL is the Stellara API the admin was built against.
const DefaultBackendURL = "https://stellara-server-1.onrender.com"

// MinSessionSecretLength is the shortest accepted session.secret.
const MinSessionSecretLength = 16

// Config represents the complete stellara-admin configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Backend   BackendConfig   `yaml:"backend" toml:"backend"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Session   SessionConfig   `yaml:"session" toml:"session"`
	Catalog   CatalogConfig   `yaml:"catalog" toml:"catalog"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds the admin HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// BackendConfig describes the Stellara REST API the admin talks to
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// DatabaseConfig holds the session database location
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// SessionConfig controls browser sessions and token storage
type SessionConfig struct {
	// Secret seals stored backend tokens. Tokens are stored in the clear when empty.
	Secret        string        `yaml:"secret" toml:"secret"`
	Duration      time.Duration `yaml:"-" toml:"-"`
	SweepInterval time.Duration `yaml:"-" toml:"-"`
	SecureCookie  bool          `yaml:"secure_cookie" toml:"secure_cookie"`

	DurationRaw      string `yaml:"duration" toml:"duration"`
	SweepIntervalRaw string `yaml:"sweep_interval" toml:"sweep_interval"`
}

// CatalogConfig lists the product categories known to the admin.
// The backend owns the real set; products with other categories are still shown.
type CatalogConfig struct {
	// Categories are offered in the product form.
	Categories []string `yaml:"categories" toml:"categories"`
	// SummaryCategories get their own dashboard tile; the rest count as "other".
	SummaryCategories []string `yaml:"summary_categories" toml:"summary_categories"`
	// MaxImageSizeMB caps uploaded product images.
	MaxImageSizeMB int `yaml:"max_image_size_mb" toml:"max_image_size_mb"`
}

// MaxImageBytes is MaxImageSizeMB in bytes.
func (c CatalogConfig) MaxImageBytes() int {
	return c.MaxImageSizeMB << 20
}

// TailscaleConfig holds tsnet configuration for serving the admin on a tailnet only
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// A .env file next to the config (or in the working directory) is loaded first
// without overriding variables that are already set. Environment variables in
// the format ${VAR_NAME} are then expanded. Files ending in .toml are decoded as
// TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads .env files that exist; missing files are not an error.
func loadDotEnv(configPath string) error {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	seen := make(map[string]bool)
	for _, p := range candidates {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s: %w", abs, err)
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills unset fields with working values.
func (c *Config) ApplyDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 15 * time.Second
	}
	if c.Session.Duration == 0 {
		c.Session.Duration = 12 * time.Hour
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = 10 * time.Minute
	}
	if len(c.Catalog.Categories) == 0 {
		c.Catalog.Categories = []string{"perfumes", "bags", "shoes", "beddings"}
	}
	if len(c.Catalog.SummaryCategories) == 0 {
		c.Catalog.SummaryCategories = []string{"bags", "perfumes", "beddings"}
	}
	if c.Catalog.MaxImageSizeMB == 0 {
		c.Catalog.MaxImageSizeMB = 10
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("backend.base_url must include a host")
	}

	if c.Session.Secret != "" && len(c.Session.Secret) < MinSessionSecretLength {
		return fmt.Errorf("session.secret must be at least %d characters", MinSessionSecretLength)
	}

	if c.Catalog.MaxImageSizeMB < 0 {
		return fmt.Errorf("catalog.max_image_size_mb must not be negative")
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.TimeoutRaw != "" {
		cfg.Backend.Timeout, err = time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing backend.timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
	}

	if cfg.Session.DurationRaw != "" {
		cfg.Session.Duration, err = time.ParseDuration(cfg.Session.DurationRaw)
		if err != nil {
			return fmt.Errorf("parsing session.duration %q: %w", cfg.Session.DurationRaw, err)
		}
	}

	if cfg.Session.SweepIntervalRaw != "" {
		cfg.Session.SweepInterval, err = time.ParseDuration(cfg.Session.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing session.sweep_interval %q: %w", cfg.Session.SweepIntervalRaw, err)
		}
	}

	return nil
}
