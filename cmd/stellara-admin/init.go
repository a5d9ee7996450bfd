// ABOUTME: Interactive "init" subcommand that writes a starter admin.yaml
// ABOUTME: Prompts for listener, backend, storage, and tailnet settings and generates a session secret

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stellara/stellara-admin/internal/config"
)

// initAnswers are the values collected by runInit.
type initAnswers struct {
	HTTPAddr      string
	BackendURL    string
	DBPath        string
	SessionSecret string
	SecureCookie  bool
	Categories    []string

	TailscaleEnabled bool
	TSHostname       string
	TSAuthKey        string
	TSEphemeral      bool
	TSHTTPS          bool

	LogLevel  string
	LogFormat string
	Metrics   bool
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("stellara-admin configuration setup")
	fmt.Println("==================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDbPath := filepath.Join(getDataPath(), "admin.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	var a initAnswers

	fmt.Println("\n--- Server Configuration ---")
	a.HTTPAddr = prompt(reader, "HTTP address", "localhost:8080")
	a.BackendURL = prompt(reader, "Stellara API base URL", config.DefaultBackendURL)

	fmt.Println("\n--- Session Configuration ---")
	a.DBPath = prompt(reader, "SQLite database path (:memory: for none)", defaultDbPath)
	secret, err := generateSecret()
	if err != nil {
		return err
	}
	a.SessionSecret = secret
	a.SecureCookie = yes(prompt(reader, "Served over HTTPS (secure cookies)?", "no"))

	fmt.Println("\n--- Catalog Configuration ---")
	a.Categories = splitList(prompt(reader, "Product categories (comma separated)", "perfumes, bags, shoes, beddings"))

	fmt.Println("\n--- Tailscale Configuration ---")
	a.TailscaleEnabled = yes(prompt(reader, "Serve on a tailnet only?", "no"))
	if a.TailscaleEnabled {
		a.TSHostname = prompt(reader, "Tailscale hostname", "stellara-admin")
		a.TSAuthKey = prompt(reader, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		a.TSEphemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		a.TSHTTPS = yes(prompt(reader, "Enable HTTPS with tailnet certs?", "yes"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	a.LogLevel = prompt(reader, "Log level (debug/info/warn/error)", "info")
	a.LogFormat = prompt(reader, "Log format (text/json)", "text")
	a.Metrics = yes(prompt(reader, "Expose Prometheus metrics?", "no"))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The file holds the session secret.
	if err := os.WriteFile(outputFile, []byte(renderConfig(a)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if a.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(a.DBPath), 0700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  stellara-admin serve\n")

	return nil
}

// renderConfig produces the YAML for a.
func renderConfig(a initAnswers) string {
	var cfg strings.Builder
	cfg.WriteString("# stellara-admin configuration\n")
	cfg.WriteString("# Generated by stellara-admin init\n\n")

	cfg.WriteString("server:\n")
	if !a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", a.HTTPAddr))
	}
	cfg.WriteString("\n")

	cfg.WriteString("backend:\n")
	cfg.WriteString(fmt.Sprintf("  base_url: %q\n", a.BackendURL))
	cfg.WriteString("  timeout: \"15s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", a.DBPath))
	cfg.WriteString("\n")

	cfg.WriteString("session:\n")
	cfg.WriteString(fmt.Sprintf("  secret: %q\n", a.SessionSecret))
	cfg.WriteString("  duration: \"12h\"\n")
	cfg.WriteString("  sweep_interval: \"10m\"\n")
	cfg.WriteString(fmt.Sprintf("  secure_cookie: %t\n", a.SecureCookie))
	cfg.WriteString("\n")

	if len(a.Categories) > 0 {
		cfg.WriteString("catalog:\n")
		cfg.WriteString("  categories:\n")
		for _, c := range a.Categories {
			cfg.WriteString(fmt.Sprintf("    - %q\n", c))
		}
		cfg.WriteString("\n")
	}

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.TailscaleEnabled))
	if a.TailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: %q\n", a.TSHostname))
		if a.TSAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: %q\n", a.TSAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", a.TSEphemeral))
		cfg.WriteString(fmt.Sprintf("  https: %t\n", a.TSHTTPS))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", a.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", a.LogFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", a.Metrics))
	cfg.WriteString("  path: \"/metrics\"\n")

	return cfg.String()
}

// generateSecret returns a random session secret.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func yes(answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "yes" || answer == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
