package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  base_url: https://node.example.com
ping:
  window: 30m
  concurrency: 8
features:
  daily_claim: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://node.example.com" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Ping.Window != 30*time.Minute || cfg.Ping.Concurrency != 8 {
		t.Errorf("Ping section not applied: %+v", cfg.Ping)
	}
	if cfg.Features.DailyClaim {
		t.Error("daily_claim should be false")
	}
	if !cfg.Features.ActivateAccounts {
		t.Error("activate_accounts should keep its default")
	}
	if cfg.Ping.RoundInterval != time.Minute {
		t.Errorf("round_interval should keep its default, got %s", cfg.Ping.RoundInterval)
	}
	if len(cfg.API.Paths.Ping) != 1 {
		t.Errorf("Default ping paths lost: %v", cfg.API.Paths.Ping)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
lock_file = "other.lock"

[api]
base_url = "https://node.example.com"

[api.paths]
ping = ["/a", "/b"]

[transport]
max_retries = 5
retry_delay = "500ms"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LockFile != "other.lock" {
		t.Errorf("LockFile = %q", cfg.LockFile)
	}
	if got := strings.Join(cfg.API.Paths.Ping, ","); got != "/a,/b" {
		t.Errorf("Ping paths = %q", got)
	}
	if cfg.Transport.MaxRetries != 5 || cfg.Transport.RetryDelay != 500*time.Millisecond {
		t.Errorf("Transport section not applied: %+v", cfg.Transport)
	}
	if cfg.API.Paths.Session == "" {
		t.Error("Session path should keep its default")
	}
}

func TestINIRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "https://node.example.com"
	cfg.API.Paths.Ping = []string{"/p1", "/p2"}
	cfg.Ping.Window = 45 * time.Minute
	cfg.Accounts.UseProxies = false
	cfg.Transport.RequestsPerSecond = 2.5
	cfg.Telegram.ChatID = -100123

	path := filepath.Join(t.TempDir(), "settings.ini")
	if err := SaveToINI(cfg, path); err != nil {
		t.Fatalf("SaveToINI failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.API.BaseURL != cfg.API.BaseURL {
		t.Errorf("BaseURL = %q", loaded.API.BaseURL)
	}
	if got := strings.Join(loaded.API.Paths.Ping, ","); got != "/p1,/p2" {
		t.Errorf("Ping paths = %q", got)
	}
	if loaded.Ping.Window != 45*time.Minute {
		t.Errorf("Window = %s", loaded.Ping.Window)
	}
	if loaded.Accounts.UseProxies {
		t.Error("use_proxies should be false")
	}
	if loaded.Transport.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", loaded.Transport.RequestsPerSecond)
	}
	if loaded.Telegram.ChatID != -100123 {
		t.Errorf("ChatID = %d", loaded.Telegram.ChatID)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "https://node.example.com"
	cfg.Ping.MinInterval = 90 * time.Second

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := SaveToYAML(cfg, path); err != nil {
		t.Fatalf("SaveToYAML failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Ping.MinInterval != 90*time.Second || loaded.API.BaseURL != cfg.API.BaseURL {
		t.Errorf("Round trip mismatch: %+v", loaded)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	if _, err := Load("config.json"); err == nil {
		t.Error("Expected an error for an unsupported extension")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.API.BaseURL = "" }, "base_url"},
		{"no ping endpoints", func(c *Config) { c.API.Paths.Ping = nil }, "api.paths.ping"},
		{"zero round interval", func(c *Config) { c.Ping.RoundInterval = 0 }, "round_interval"},
		{"negative window", func(c *Config) { c.Ping.Window = -time.Second }, "ping.window"},
		{"negative retries", func(c *Config) { c.Transport.MaxRetries = -1 }, "max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.BaseURL = "https://node.example.com"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "PINGER_TELEGRAM_TOKEN=from-dotenv\n")
	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvTelegramChatID, "4242")
	t.Setenv(EnvTelegramToken, "")
	os.Unsetenv(EnvTelegramToken)

	cfg := Default()
	if err := ApplyEnv(cfg, envFile); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.Telegram.Token != "from-dotenv" || cfg.Telegram.ChatID != 4242 {
		t.Errorf("Telegram = %+v", cfg.Telegram)
	}
	if !cfg.Telegram.Enabled() {
		t.Error("Telegram should be enabled")
	}
}

func TestApplyEnvMissingFile(t *testing.T) {
	cfg := Default()
	if err := ApplyEnv(cfg, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("A missing .env file should be ignored, got %v", err)
	}
}
