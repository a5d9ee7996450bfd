// ABOUTME: Tests for the stellara-admin CLI helpers
// ABOUTME: Config path resolution, generated config, flag parsing, product listing, and logging

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellara/stellara-admin/internal/backend"
	"github.com/stellara/stellara-admin/internal/catalog"
	"github.com/stellara/stellara-admin/internal/config"
)

func TestGetConfigPath(t *testing.T) {
	t.Run("env var wins", func(t *testing.T) {
		t.Setenv("STELLARA_CONFIG", "/etc/stellara/admin.toml")
		assert.Equal(t, "/etc/stellara/admin.toml", getConfigPath())
	})

	t.Run("xdg config home", func(t *testing.T) {
		t.Setenv("STELLARA_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		assert.Equal(t, filepath.Join("/tmp/xdg", "stellara", "admin.yaml"), getConfigPath())
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("STELLARA_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/ada")
		assert.Equal(t, filepath.Join("/home/ada", ".config", "stellara", "admin.yaml"), getConfigPath())
	})
}

func writeRendered(t *testing.T, a initAnswers) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(renderConfig(a)), 0600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestRenderConfig_Loads(t *testing.T) {
	secret, err := generateSecret()
	require.NoError(t, err)

	cfg := writeRendered(t, initAnswers{
		HTTPAddr:      "localhost:9090",
		BackendURL:    "https://api.stellara.test/",
		DBPath:        filepath.Join(t.TempDir(), "admin.db"),
		SessionSecret: secret,
		SecureCookie:  true,
		Categories:    []string{"perfumes", "bags"},
		LogLevel:      "debug",
		LogFormat:     "json",
		Metrics:       true,
	})

	assert.Equal(t, "localhost:9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "https://api.stellara.test", cfg.Backend.BaseURL)
	assert.Equal(t, secret, cfg.Session.Secret)
	assert.True(t, cfg.Session.SecureCookie)
	assert.Equal(t, []string{"perfumes", "bags"}, cfg.Catalog.Categories)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Tailscale.Enabled)
}

func TestRenderConfig_Tailscale(t *testing.T) {
	cfg := writeRendered(t, initAnswers{
		HTTPAddr:         "localhost:8080",
		BackendURL:       config.DefaultBackendURL,
		DBPath:           ":memory:",
		TailscaleEnabled: true,
		TSHostname:       "stellara-admin",
		TSAuthKey:        "tskey-auth-123",
		TSHTTPS:          true,
		LogLevel:         "info",
		LogFormat:        "text",
	})

	assert.Empty(t, cfg.Server.HTTPAddr, "listener address is unused on a tailnet")
	assert.True(t, cfg.Tailscale.Enabled)
	assert.Equal(t, "stellara-admin", cfg.Tailscale.Hostname)
	assert.Equal(t, "tskey-auth-123", cfg.Tailscale.AuthKey)
	assert.True(t, cfg.Tailscale.HTTPS)
	assert.Empty(t, cfg.Session.Secret)
}

func TestGenerateSecret(t *testing.T) {
	a, err := generateSecret()
	require.NoError(t, err)
	b, err := generateSecret()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), config.MinSessionSecretLength)
}

func TestSplitListAndYes(t *testing.T) {
	assert.Equal(t, []string{"perfumes", "bags"}, splitList(" perfumes, ,bags "))
	assert.Nil(t, splitList(""))

	assert.True(t, yes("Y"))
	assert.True(t, yes(" yes "))
	assert.False(t, yes("no"))
	assert.False(t, yes(""))
}

func TestParseCategoryFlag(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"none", nil, "", false},
		{"separate value", []string{"--category", "bags"}, "bags", false},
		{"short flag", []string{"-c", "shoes"}, "shoes", false},
		{"equals form", []string{"--category=perfumes"}, "perfumes", false},
		{"missing value", []string{"--category"}, "", true},
		{"unknown flag", []string{"--all"}, "", true},
		{"stray argument", []string{"bags"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCategoryFlag(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintProducts(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	list := []backend.Product{
		{ID: "p1", Name: "Leather Tote", Category: "bags", Price: decimal.NewFromInt(15000),
			OldPrice: decimal.NewNullDecimal(decimal.NewFromInt(20000))},
		{ID: "p2", Name: "Oud Royale", Category: "Perfumes", Price: decimal.NewFromInt(32000)},
		{ID: "p3", Name: "Silk Duvet", Category: "beddings", Price: decimal.NewFromInt(48000)},
	}
	summary := catalog.Summarize(list, []string{"bags", "perfumes"})

	t.Run("all products", func(t *testing.T) {
		var out bytes.Buffer
		printProducts(&out, list, "", summary)
		s := out.String()

		assert.Contains(t, s, "Leather Tote")
		assert.Contains(t, s, "₦20000")
		assert.Contains(t, s, "Oud Royale")
		assert.Contains(t, s, "Silk Duvet")
		assert.Regexp(t, `All Products\s+3`, s)
		assert.Regexp(t, `Bags\s+1`, s)
		assert.Regexp(t, `Other\s+1`, s)
	})

	t.Run("filtered by category", func(t *testing.T) {
		var out bytes.Buffer
		printProducts(&out, list, "perfumes", summary)
		s := out.String()

		assert.Contains(t, s, "Oud Royale")
		assert.NotContains(t, s, "Leather Tote")
	})

	t.Run("no matches", func(t *testing.T) {
		var out bytes.Buffer
		printProducts(&out, list, "shoes", summary)
		assert.Contains(t, out.String(), "(no products)")
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 12))
	assert.Equal(t, "abcdefghi...", truncate("abcdefghijklmnop", 12))
}

func TestNewLogger(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	t.Run("console handler", func(t *testing.T) {
		var out bytes.Buffer
		logger := newLogger(config.LoggingConfig{Level: "info"}, &out)

		logger.Debug("hidden")
		logger.With("component", "server").Info("listening", "addr", ":8080")
		logger.WithGroup("req").Warn("slow", "ms", 900)

		s := out.String()
		assert.NotContains(t, s, "hidden")
		assert.Contains(t, s, "INF listening component=server addr=:8080")
		assert.Contains(t, s, "WRN slow req.ms=900")
	})

	t.Run("json handler", func(t *testing.T) {
		var out bytes.Buffer
		logger := newLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &out)

		logger.Debug("sweep", "count", 2)

		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &line))
		assert.Equal(t, "sweep", line["msg"])
		assert.Equal(t, "DEBUG", line["level"])
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
