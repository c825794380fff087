package config

import (
	"errors"
	"fmt"
	"time"

	"jordanella.com/reward-pinger/internal/api"
)

// Config is the full runtime configuration
type Config struct {
	API       APIConfig       `yaml:"api" toml:"api"`
	Accounts  AccountsConfig  `yaml:"accounts" toml:"accounts"`
	Features  FeaturesConfig  `yaml:"features" toml:"features"`
	Ping      PingConfig      `yaml:"ping" toml:"ping"`
	Transport TransportConfig `yaml:"transport" toml:"transport"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Journal   JournalConfig   `yaml:"journal" toml:"journal"`
	Telegram  TelegramConfig  `yaml:"telegram" toml:"telegram"`

	// LockFile guards against two instances driving the same fleet
	LockFile      string        `yaml:"lock_file" toml:"lock_file"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace" toml:"shutdown_grace"`
}

// APIConfig locates the reward service
type APIConfig struct {
	BaseURL string            `yaml:"base_url" toml:"base_url"`
	Paths   api.EndpointPaths `yaml:"paths" toml:"paths"`
}

// AccountsConfig points at the token and proxy lists
type AccountsConfig struct {
	TokensFile  string `yaml:"tokens_file" toml:"tokens_file"`
	ProxiesFile string `yaml:"proxies_file" toml:"proxies_file"`
	UseProxies  bool   `yaml:"use_proxies" toml:"use_proxies"`
}

// FeaturesConfig toggles optional stages
type FeaturesConfig struct {
	ActivateAccounts bool `yaml:"activate_accounts" toml:"activate_accounts"`
	DailyClaim       bool `yaml:"daily_claim" toml:"daily_claim"`
}

// PingConfig shapes the ping windows
type PingConfig struct {
	Window        time.Duration `yaml:"window" toml:"window"`
	RoundInterval time.Duration `yaml:"round_interval" toml:"round_interval"`
	MinInterval   time.Duration `yaml:"min_interval" toml:"min_interval"`
	CycleDelay    time.Duration `yaml:"cycle_delay" toml:"cycle_delay"`
	Concurrency   int           `yaml:"concurrency" toml:"concurrency"`
}

// TransportConfig mirrors api.ClientOptions
type TransportConfig struct {
	Timeout           time.Duration `yaml:"timeout" toml:"timeout"`
	MaxRetries        int           `yaml:"max_retries" toml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay" toml:"retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int           `yaml:"burst" toml:"burst"`
	UserAgent         string        `yaml:"user_agent" toml:"user_agent"`
	JA3               string        `yaml:"ja3" toml:"ja3"`
}

// LoggingConfig controls log level and the log directory
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	Dir   string `yaml:"dir" toml:"dir"`
}

// JournalConfig locates the sqlite run journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// TelegramConfig enables notifications when both fields are set
type TelegramConfig struct {
	Token  string `yaml:"token" toml:"token"`
	ChatID int64  `yaml:"chat_id" toml:"chat_id"`
}

// Enabled reports whether notifications can be sent
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// Default creates a config with default values
func Default() *Config {
	client := api.DefaultClientOptions()
	return &Config{
		API: APIConfig{
			Paths: api.DefaultEndpointPaths(),
		},
		Accounts: AccountsConfig{
			TokensFile:  "tokens.txt",
			ProxiesFile: "proxies.txt",
			UseProxies:  true,
		},
		Features: FeaturesConfig{
			ActivateAccounts: true,
			DailyClaim:       true,
		},
		Ping: PingConfig{
			Window:        2 * time.Hour,
			RoundInterval: time.Minute,
			MinInterval:   time.Minute,
			CycleDelay:    3 * time.Second,
			Concurrency:   50,
		},
		Transport: TransportConfig{
			Timeout:           client.Timeout,
			MaxRetries:        client.MaxRetries,
			RetryDelay:        client.RetryDelay,
			RequestsPerSecond: client.RequestsPerSecond,
			Burst:             client.Burst,
			UserAgent:         client.UserAgent,
			JA3:               client.JA3,
		},
		Logging: LoggingConfig{
			Level: "INFO",
			Dir:   "logs",
		},
		Journal: JournalConfig{
			Path: "pinger.db",
		},
		LockFile:      "pinger.lock",
		ShutdownGrace: time.Second,
	}
}

// ClientOptions converts the transport section for api.NewClient
func (c *Config) ClientOptions() api.ClientOptions {
	return api.ClientOptions{
		Timeout:           c.Transport.Timeout,
		MaxRetries:        c.Transport.MaxRetries,
		RetryDelay:        c.Transport.RetryDelay,
		RequestsPerSecond: c.Transport.RequestsPerSecond,
		Burst:             c.Transport.Burst,
		UserAgent:         c.Transport.UserAgent,
		JA3:               c.Transport.JA3,
	}
}

// Endpoints resolves the configured paths against the base URL
func (c *Config) Endpoints() (api.Endpoints, error) {
	return api.ResolveEndpoints(c.API.BaseURL, c.API.Paths)
}

// Validate checks the settings the run loop cannot work without
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if len(c.API.Paths.Ping) == 0 {
		errs = append(errs, errors.New("api.paths.ping must list at least one endpoint"))
	}
	if c.Accounts.TokensFile == "" {
		errs = append(errs, errors.New("accounts.tokens_file is required"))
	}
	if c.Ping.Window < 0 {
		errs = append(errs, fmt.Errorf("ping.window must not be negative, got %s", c.Ping.Window))
	}
	if c.Ping.RoundInterval <= 0 {
		errs = append(errs, fmt.Errorf("ping.round_interval must be positive, got %s", c.Ping.RoundInterval))
	}
	if c.Ping.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("ping.min_interval must not be negative, got %s", c.Ping.MinInterval))
	}
	if c.Ping.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("ping.concurrency must not be negative, got %d", c.Ping.Concurrency))
	}
	if c.Transport.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("transport.max_retries must not be negative, got %d", c.Transport.MaxRetries))
	}

	return errors.Join(errs...)
}
