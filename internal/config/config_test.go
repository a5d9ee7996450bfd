// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, .env files, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "admin.yaml", `
server:
  http_addr: "0.0.0.0:8090"

backend:
  base_url: "https://api.example.com/"
  timeout: "5s"

database:
  path: "./admin.db"

session:
  secret: "0123456789abcdef0123"
  duration: "2h"
  sweep_interval: "1m"
  secure_cookie: true

catalog:
  categories: ["perfumes", "bags"]
  summary_categories: ["bags"]
  max_image_size_mb: 4

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8090" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8090")
	}
	if cfg.Backend.BaseURL != "https://api.example.com" {
		t.Errorf("Backend.BaseURL = %q, want trailing slash trimmed", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("Backend.Timeout = %v, want %v", cfg.Backend.Timeout, 5*time.Second)
	}
	if cfg.Database.Path != "./admin.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./admin.db")
	}
	if cfg.Session.Duration != 2*time.Hour {
		t.Errorf("Session.Duration = %v, want %v", cfg.Session.Duration, 2*time.Hour)
	}
	if cfg.Session.SweepInterval != time.Minute {
		t.Errorf("Session.SweepInterval = %v, want %v", cfg.Session.SweepInterval, time.Minute)
	}
	if !cfg.Session.SecureCookie {
		t.Error("Session.SecureCookie = false, want true")
	}
	if len(cfg.Catalog.Categories) != 2 {
		t.Errorf("Catalog.Categories len = %d, want 2", len(cfg.Catalog.Categories))
	}
	if len(cfg.Catalog.SummaryCategories) != 1 || cfg.Catalog.SummaryCategories[0] != "bags" {
		t.Errorf("Catalog.SummaryCategories = %v, want [bags]", cfg.Catalog.SummaryCategories)
	}
	if cfg.Catalog.MaxImageBytes() != 4<<20 {
		t.Errorf("Catalog.MaxImageBytes() = %d, want %d", cfg.Catalog.MaxImageBytes(), 4<<20)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "admin.toml", `
[server]
http_addr = "localhost:8090"

[backend]
base_url = "http://localhost:5000"
timeout = "3s"

[database]
path = "admin.db"

[catalog]
categories = ["perfumes", "bags", "shoes"]
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:5000" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://localhost:5000")
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("Backend.Timeout = %v, want %v", cfg.Backend.Timeout, 3*time.Second)
	}
	if len(cfg.Catalog.Categories) != 3 {
		t.Errorf("Catalog.Categories len = %d, want 3", len(cfg.Catalog.Categories))
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "admin.yaml", `
server:
  http_addr: "localhost:8090"
database:
  path: "admin.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != DefaultBackendURL {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, DefaultBackendURL)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("Backend.Timeout = %v, want 15s", cfg.Backend.Timeout)
	}
	if cfg.Session.Duration != 12*time.Hour {
		t.Errorf("Session.Duration = %v, want 12h", cfg.Session.Duration)
	}
	want := []string{"perfumes", "bags", "shoes", "beddings"}
	if strings.Join(cfg.Catalog.Categories, ",") != strings.Join(want, ",") {
		t.Errorf("Catalog.Categories = %v, want %v", cfg.Catalog.Categories, want)
	}
	if strings.Join(cfg.Catalog.SummaryCategories, ",") != "bags,perfumes,beddings" {
		t.Errorf("Catalog.SummaryCategories = %v", cfg.Catalog.SummaryCategories)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Metrics.Path)
	}
	if cfg.Catalog.MaxImageSizeMB != 10 {
		t.Errorf("Catalog.MaxImageSizeMB = %d, want 10", cfg.Catalog.MaxImageSizeMB)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_STELLARA_BACKEND", "https://backend.test")
	t.Setenv("TEST_STELLARA_SECRET", "a-very-long-session-secret")

	configPath := writeConfig(t, "admin.yaml", `
server:
  http_addr: "localhost:8090"
backend:
  base_url: "${TEST_STELLARA_BACKEND}"
database:
  path: "admin.db"
session:
  secret: "${TEST_STELLARA_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "https://backend.test" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "https://backend.test")
	}
	if cfg.Session.Secret != "a-very-long-session-secret" {
		t.Errorf("Session.Secret = %q, want expanded value", cfg.Session.Secret)
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	configPath := writeConfig(t, "admin.yaml", `
server:
  http_addr: "localhost:8090"
database:
  path: "admin.db"
session:
  secret: "${UNSET_VAR_FOR_TEST}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.Secret != "" {
		t.Errorf("Session.Secret = %q, want empty string for unset env var", cfg.Session.Secret)
	}
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	os.Unsetenv("TEST_DOTENV_BACKEND")
	t.Cleanup(func() { os.Unsetenv("TEST_DOTENV_BACKEND") })

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_BACKEND=http://dotenv.test\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	configPath := filepath.Join(dir, "admin.yaml")
	content := `
server:
  http_addr: "localhost:8090"
backend:
  base_url: "${TEST_DOTENV_BACKEND}"
database:
  path: "admin.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://dotenv.test" {
		t.Errorf("Backend.BaseURL = %q, want value from .env", cfg.Backend.BaseURL)
	}
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	t.Setenv("TEST_DOTENV_PRIORITY", "http://from-env.test")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TEST_DOTENV_PRIORITY=http://from-file.test\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	configPath := filepath.Join(dir, "admin.yaml")
	content := `
server:
  http_addr: "localhost:8090"
backend:
  base_url: "${TEST_DOTENV_PRIORITY}"
database:
  path: "admin.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://from-env.test" {
		t.Errorf("Backend.BaseURL = %q, want the process env value", cfg.Backend.BaseURL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, "admin.yaml", `
server:
  http_addr: "localhost:8090"
backend:
  timeout: "soon"
database:
  path: "admin.db"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "backend.timeout") {
		t.Errorf("error = %v, want mention of backend.timeout", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %v, want reading config file", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := Config{
			Server:   ServerConfig{HTTPAddr: "localhost:8090"},
			Database: DatabaseConfig{Path: "admin.db"},
		}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.Server.HTTPAddr = "" },
			wantErr: "server.http_addr is required",
		},
		{
			name: "tailscale replaces http addr",
			mutate: func(c *Config) {
				c.Server.HTTPAddr = ""
				c.Tailscale.Enabled = true
				c.Tailscale.Hostname = "stellara-admin"
			},
		},
		{
			name:    "tailscale without hostname",
			mutate:  func(c *Config) { c.Tailscale.Enabled = true },
			wantErr: "tailscale.hostname is required",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path is required",
		},
		{
			name:    "backend scheme",
			mutate:  func(c *Config) { c.Backend.BaseURL = "ftp://example.com" },
			wantErr: "http or https",
		},
		{
			name:    "backend host",
			mutate:  func(c *Config) { c.Backend.BaseURL = "https://" },
			wantErr: "must include a host",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Session.Secret = "short" },
			wantErr: "session.secret",
		},
		{
			name:    "negative image size",
			mutate:  func(c *Config) { c.Catalog.MaxImageSizeMB = -1 },
			wantErr: "catalog.max_image_size_mb",
		},
		{
			name:    "metrics path",
			mutate:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: "metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
