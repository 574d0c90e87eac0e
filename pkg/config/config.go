package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ScraperConfig holds general scraper settings.
type ScraperConfig struct {
	Workers         string `yaml:"workers"`
	Headless        bool   `yaml:"headless"`
	PageTimeoutSecs int    `yaml:"page_timeout_seconds"`
}

// PageTimeout returns the per-page navigation timeout.
func (s ScraperConfig) PageTimeout() time.Duration {
	if s.PageTimeoutSecs <= 0 {
		return 40 * time.Second
	}
	return time.Duration(s.PageTimeoutSecs) * time.Second
}

// StorageConfig points at the sqlite files.
type StorageConfig struct {
	SnapshotsPath   string `yaml:"snapshots_path"`
	PreferencesPath string `yaml:"preferences_path"`
}

// TelegramConfig holds messaging credentials and the retry policy.
// BotToken and ChannelChatID may instead come from the environment
// (TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID), which wins over the file.
type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	ChannelChatID  int64  `yaml:"channel_chat_id"`
	MaxRetries     int    `yaml:"max_retries"`
	RetryDelaySecs int    `yaml:"retry_delay_seconds"`
}

// RetryDelay returns the pause between dispatch attempts.
func (t TelegramConfig) RetryDelay() time.Duration {
	if t.RetryDelaySecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(t.RetryDelaySecs) * time.Second
}

// MarketplaceConfig describes one scan target: a listing page on one site
// plus the notification category it feeds. Threshold values differ per
// marketplace on purpose; there is no global default.
type MarketplaceConfig struct {
	Name             string  `yaml:"name"`
	BaseURL          string  `yaml:"base_url"`
	ListingURL       string  `yaml:"listing_url"`
	CategoryID       string  `yaml:"category_id"`
	CategoryTitle    string  `yaml:"category_title"`
	ThresholdPercent float64 `yaml:"threshold_percent"`
	Enabled          bool    `yaml:"enabled"`
}

// ScheduleConfig controls periodic operation of the scan passes.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// Config is the complete structure of the config.yml file.
type Config struct {
	Scraper      ScraperConfig       `yaml:"scraper"`
	Storage      StorageConfig       `yaml:"storage"`
	Telegram     TelegramConfig      `yaml:"telegram"`
	Schedule     ScheduleConfig      `yaml:"schedule"`
	Marketplaces []MarketplaceConfig `yaml:"marketplaces"`
}

// Load reads config.yml, overlays secrets from the environment and validates
// the result. Configuration problems are startup failures, never mid-pass
// surprises.
func Load(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config YAML: %w", err)
	}

	// .env is optional; real environments set the variables directly.
	_ = godotenv.Load()

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID %q is not a number: %w", chatIDStr, err)
		}
		cfg.Telegram.ChannelChatID = chatID
	}

	if cfg.Telegram.MaxRetries <= 0 {
		cfg.Telegram.MaxRetries = 3
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token missing: set telegram.bot_token or TELEGRAM_BOT_TOKEN")
	}
	if c.Telegram.ChannelChatID == 0 {
		return fmt.Errorf("telegram channel chat id missing: set telegram.channel_chat_id or TELEGRAM_CHAT_ID")
	}
	if c.Storage.SnapshotsPath == "" {
		return fmt.Errorf("storage.snapshots_path missing")
	}
	if c.Storage.PreferencesPath == "" {
		return fmt.Errorf("storage.preferences_path missing")
	}
	enabled := c.EnabledMarketplaces()
	if len(enabled) == 0 {
		return fmt.Errorf("no enabled marketplaces configured")
	}
	for _, m := range enabled {
		if m.Name == "" || m.ListingURL == "" {
			return fmt.Errorf("marketplace entry missing name or listing_url")
		}
		if m.ThresholdPercent < 0 || m.ThresholdPercent > 100 {
			return fmt.Errorf("marketplace %s: threshold_percent %.1f outside [0,100]", m.Name, m.ThresholdPercent)
		}
	}
	return nil
}

// EnabledMarketplaces filters the marketplace list down to active entries.
func (c *Config) EnabledMarketplaces() []MarketplaceConfig {
	var enabled []MarketplaceConfig
	for _, m := range c.Marketplaces {
		if m.Enabled {
			enabled = append(enabled, m)
		}
	}
	return enabled
}
