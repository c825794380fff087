package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvTelegramToken  = "PINGER_TELEGRAM_TOKEN"
	EnvTelegramChatID = "PINGER_TELEGRAM_CHAT_ID"
	EnvBaseURL        = "PINGER_BASE_URL"
)

// Load reads a config file, choosing the format from its extension.
// Settings missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadFromYAML(path)
	case ".toml":
		return LoadFromTOML(path)
	case ".ini":
		return LoadFromINI(path)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// LoadFromYAML loads configuration from a YAML file
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromTOML loads configuration from a TOML file
func LoadFromTOML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromINI loads configuration from an INI file. Every section of
// Config maps to an INI section of the same name; lock_file and
// shutdown_grace live in the default section.
func LoadFromINI(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := Default()

	root := file.Section("")
	config.LockFile = root.Key("lock_file").MustString(config.LockFile)
	config.ShutdownGrace = root.Key("shutdown_grace").MustDuration(config.ShutdownGrace)

	// API
	section := file.Section("api")
	config.API.BaseURL = section.Key("base_url").MustString(config.API.BaseURL)
	paths := &config.API.Paths
	paths.Activate = section.Key("activate").MustString(paths.Activate)
	paths.Session = section.Key("session").MustString(paths.Session)
	paths.EarnInfo = section.Key("earn_info").MustString(paths.EarnInfo)
	paths.Mission = section.Key("mission").MustString(paths.Mission)
	paths.CompleteMission = section.Key("complete_mission").MustString(paths.CompleteMission)
	if section.HasKey("ping") {
		paths.Ping = section.Key("ping").Strings(",")
	}

	// Accounts
	section = file.Section("accounts")
	config.Accounts.TokensFile = section.Key("tokens_file").MustString(config.Accounts.TokensFile)
	config.Accounts.ProxiesFile = section.Key("proxies_file").MustString(config.Accounts.ProxiesFile)
	config.Accounts.UseProxies = section.Key("use_proxies").MustBool(config.Accounts.UseProxies)

	// Features
	section = file.Section("features")
	config.Features.ActivateAccounts = section.Key("activate_accounts").MustBool(config.Features.ActivateAccounts)
	config.Features.DailyClaim = section.Key("daily_claim").MustBool(config.Features.DailyClaim)

	// Ping
	section = file.Section("ping")
	config.Ping.Window = section.Key("window").MustDuration(config.Ping.Window)
	config.Ping.RoundInterval = section.Key("round_interval").MustDuration(config.Ping.RoundInterval)
	config.Ping.MinInterval = section.Key("min_interval").MustDuration(config.Ping.MinInterval)
	config.Ping.CycleDelay = section.Key("cycle_delay").MustDuration(config.Ping.CycleDelay)
	config.Ping.Concurrency = section.Key("concurrency").MustInt(config.Ping.Concurrency)

	// Transport
	section = file.Section("transport")
	config.Transport.Timeout = section.Key("timeout").MustDuration(config.Transport.Timeout)
	config.Transport.MaxRetries = section.Key("max_retries").MustInt(config.Transport.MaxRetries)
	config.Transport.RetryDelay = section.Key("retry_delay").MustDuration(config.Transport.RetryDelay)
	config.Transport.RequestsPerSecond = section.Key("requests_per_second").MustFloat64(config.Transport.RequestsPerSecond)
	config.Transport.Burst = section.Key("burst").MustInt(config.Transport.Burst)
	config.Transport.UserAgent = section.Key("user_agent").MustString(config.Transport.UserAgent)
	config.Transport.JA3 = section.Key("ja3").MustString(config.Transport.JA3)

	// Logging
	section = file.Section("logging")
	config.Logging.Level = section.Key("level").MustString(config.Logging.Level)
	config.Logging.Dir = section.Key("dir").MustString(config.Logging.Dir)

	// Journal
	config.Journal.Path = file.Section("journal").Key("path").MustString(config.Journal.Path)

	// Telegram
	section = file.Section("telegram")
	config.Telegram.Token = section.Key("token").MustString(config.Telegram.Token)
	config.Telegram.ChatID = section.Key("chat_id").MustInt64(config.Telegram.ChatID)

	return config, nil
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	file := ini.Empty()

	root := file.Section("")
	root.Key("lock_file").SetValue(config.LockFile)
	root.Key("shutdown_grace").SetValue(config.ShutdownGrace.String())

	// API
	section := file.Section("api")
	section.Key("base_url").SetValue(config.API.BaseURL)
	section.Key("activate").SetValue(config.API.Paths.Activate)
	section.Key("session").SetValue(config.API.Paths.Session)
	section.Key("earn_info").SetValue(config.API.Paths.EarnInfo)
	section.Key("mission").SetValue(config.API.Paths.Mission)
	section.Key("complete_mission").SetValue(config.API.Paths.CompleteMission)
	section.Key("ping").SetValue(strings.Join(config.API.Paths.Ping, ","))

	// Accounts
	section = file.Section("accounts")
	section.Key("tokens_file").SetValue(config.Accounts.TokensFile)
	section.Key("proxies_file").SetValue(config.Accounts.ProxiesFile)
	section.Key("use_proxies").SetValue(fmt.Sprintf("%t", config.Accounts.UseProxies))

	// Features
	section = file.Section("features")
	section.Key("activate_accounts").SetValue(fmt.Sprintf("%t", config.Features.ActivateAccounts))
	section.Key("daily_claim").SetValue(fmt.Sprintf("%t", config.Features.DailyClaim))

	// Ping
	section = file.Section("ping")
	section.Key("window").SetValue(config.Ping.Window.String())
	section.Key("round_interval").SetValue(config.Ping.RoundInterval.String())
	section.Key("min_interval").SetValue(config.Ping.MinInterval.String())
	section.Key("cycle_delay").SetValue(config.Ping.CycleDelay.String())
	section.Key("concurrency").SetValue(fmt.Sprintf("%d", config.Ping.Concurrency))

	// Transport
	section = file.Section("transport")
	section.Key("timeout").SetValue(config.Transport.Timeout.String())
	section.Key("max_retries").SetValue(fmt.Sprintf("%d", config.Transport.MaxRetries))
	section.Key("retry_delay").SetValue(config.Transport.RetryDelay.String())
	section.Key("requests_per_second").SetValue(strconv.FormatFloat(config.Transport.RequestsPerSecond, 'f', -1, 64))
	section.Key("burst").SetValue(fmt.Sprintf("%d", config.Transport.Burst))
	section.Key("user_agent").SetValue(config.Transport.UserAgent)
	section.Key("ja3").SetValue(config.Transport.JA3)

	// Logging
	section = file.Section("logging")
	section.Key("level").SetValue(config.Logging.Level)
	section.Key("dir").SetValue(config.Logging.Dir)

	// Journal
	file.Section("journal").Key("path").SetValue(config.Journal.Path)

	// Telegram. Secrets normally come from the environment.
	section = file.Section("telegram")
	section.Key("token").SetValue(config.Telegram.Token)
	section.Key("chat_id").SetValue(fmt.Sprintf("%d", config.Telegram.ChatID))

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// SaveToYAML saves configuration to a YAML file
func SaveToYAML(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// ApplyEnv loads envFile (when it exists) into the process environment and
// lets the PINGER_* variables override file values.
func ApplyEnv(config *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		config.API.BaseURL = v
	}
	if v := os.Getenv(EnvTelegramToken); v != "" {
		config.Telegram.Token = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTelegramChatID, v, err)
		}
		config.Telegram.ChatID = id
	}
	return nil
}
