// Package config provides configuration management for pricewatch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Monitor       MonitorConfig      `mapstructure:"monitor"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Quotes        QuotesConfig       `mapstructure:"quotes"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// MonitorConfig holds evaluation loop configuration. CooldownWindow and
// Interval are the only two tunables the evaluator's behavior depends on.
type MonitorConfig struct {
	Scope          string        `mapstructure:"scope"`
	CooldownWindow time.Duration `mapstructure:"cooldown_window"`
	Interval       time.Duration `mapstructure:"interval"`
	QuoteTimeout   time.Duration `mapstructure:"quote_timeout"`
}

// StorageConfig selects the rule store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite", "file"
	Path    string `mapstructure:"path"`
}

// QuotesConfig holds quote provider configuration.
type QuotesConfig struct {
	Provider string        `mapstructure:"provider"` // "yahoo", "coincap"
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, firings_only, errors_only
	Email    EmailConfig    `mapstructure:"email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Desktop  DesktopConfig  `mapstructure:"desktop"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// DesktopConfig holds desktop notification configuration.
type DesktopConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Bell    bool `mapstructure:"bell"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/pricewatch"
	}
	return filepath.Join(home, ".config", "pricewatch")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing config
// file is not an error: defaults apply on first run.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("monitor.scope", "default")
	v.SetDefault("monitor.cooldown_window", time.Hour)
	v.SetDefault("monitor.interval", 60*time.Second)
	v.SetDefault("monitor.quote_timeout", 5*time.Second)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", filepath.Join(configDir, "pricewatch.db"))

	v.SetDefault("quotes.provider", "yahoo")
	v.SetDefault("quotes.cache_ttl", 30*time.Second)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.desktop.enabled", true)
	v.SetDefault("notifications.desktop.bell", true)
	v.SetDefault("notifications.email.smtp_port", 587)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PRICEWATCH_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("PRICEWATCH_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("PRICEWATCH_SMTP_USERNAME"); v != "" {
		cfg.Notifications.Email.Username = v
	}
	if v := os.Getenv("PRICEWATCH_SMTP_PASSWORD"); v != "" {
		cfg.Notifications.Email.Password = v
	}
	if v := os.Getenv("PRICEWATCH_QUOTE_PROVIDER"); v != "" {
		cfg.Quotes.Provider = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Storage.Backend != "sqlite" && c.Storage.Backend != "file" {
		return fmt.Errorf("invalid storage backend: %s (must be 'sqlite' or 'file')", c.Storage.Backend)
	}
	if c.Quotes.Provider != "yahoo" && c.Quotes.Provider != "coincap" {
		return fmt.Errorf("invalid quote provider: %s (must be 'yahoo' or 'coincap')", c.Quotes.Provider)
	}
	if c.Monitor.CooldownWindow <= 0 {
		return fmt.Errorf("cooldown_window must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Monitor.QuoteTimeout <= 0 {
		return fmt.Errorf("quote_timeout must be positive")
	}
	switch c.Notifications.Level {
	case "", "all", "firings_only", "errors_only":
	default:
		return fmt.Errorf("invalid notification level: %s", c.Notifications.Level)
	}
	return nil
}
