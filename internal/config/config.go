package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config application configuration
type Config struct {
	// HTTP
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8000"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL" envDefault:"http://127.0.0.1:8000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	// Remote mail API
	GraphBaseURL string        `env:"GRAPH_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	GraphTimeout time.Duration `env:"GRAPH_TIMEOUT" envDefault:"30s"`

	// OAuth
	ClientID          string   `env:"OUTLOOK_CLIENT_ID,required,notEmpty"`
	Tenant            string   `env:"OUTLOOK_TENANT" envDefault:"consumers"`
	Scopes            []string `env:"OUTLOOK_SCOPES" envDefault:"Mail.Read,User.Read,offline_access" envSeparator:","`
	TokenCacheBackend string   `env:"TOKEN_CACHE_BACKEND" envDefault:"file"` // "file" or "keyring"
	TokenCachePath    string   `env:"TOKEN_CACHE_PATH" envDefault:"./data/token_cache.json"`

	// Store
	StoreDSN             string `env:"STORE_DSN" envDefault:"./data/mailhook.db"` // sqlite path or postgres:// URL
	StoreEmailTable      string `env:"STORE_EMAIL_TABLE" envDefault:"emails"`
	StoreAttachmentTable string `env:"STORE_ATTACHMENT_TABLE" envDefault:"attachments"`
	StoreBlobTable       string `env:"STORE_BLOB_TABLE" envDefault:"attachment_blobs"`

	// Subscription
	TargetFolders        []string      `env:"TARGET_FOLDERS" envDefault:"Bloomberg" envSeparator:","`
	ClientState          string        `env:"SUBSCRIPTION_CLIENT_STATE" envDefault:"secretClientValue"`
	SubscriptionLifetime time.Duration `env:"SUBSCRIPTION_LIFETIME" envDefault:"167h"` // 6 days 23 hours
	RenewMarginMinutes   int           `env:"RENEW_MARGIN_MINUTES" envDefault:"60"`
	PollIntervalMinutes  int           `env:"POLL_INTERVAL_MINUTES" envDefault:"5"`
	RenewMaxRetries      int           `env:"RENEW_MAX_RETRIES" envDefault:"5"`
	RenewRetryInterval   time.Duration `env:"RENEW_RETRY_INTERVAL" envDefault:"30s"`

	// Classification
	PlainCategory      string `env:"CATEGORY_PLAIN" envDefault:"Bloomberg"`
	AttachmentCategory string `env:"CATEGORY_ATTACHMENT" envDefault:"Shuchuang"`

	// Telegram alerts (optional)
	TelegramToken   string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID  int64  `env:"TELEGRAM_ALERT_CHAT_ID"`
	TelegramTopicID int    `env:"TELEGRAM_ALERT_TOPIC_ID"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// CallbackURL returns the externally reachable webhook URL
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/notifications"
}

// RenewMargin returns the renewal margin as a duration
func (c *Config) RenewMargin() time.Duration {
	return time.Duration(c.RenewMarginMinutes) * time.Minute
}

// PollInterval returns the subscription check interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

// AlertsEnabled returns true if Telegram alerting is configured
func (c *Config) AlertsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	for _, table := range []string{c.StoreEmailTable, c.StoreAttachmentTable, c.StoreBlobTable} {
		if !identifierRegex.MatchString(table) {
			return fmt.Errorf("invalid table name %q", table)
		}
	}

	if c.RenewMarginMinutes <= 0 {
		return fmt.Errorf("RENEW_MARGIN_MINUTES must be positive, got %d", c.RenewMarginMinutes)
	}
	if c.PollIntervalMinutes <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MINUTES must be positive, got %d", c.PollIntervalMinutes)
	}
	if c.RenewMaxRetries < 0 {
		return fmt.Errorf("RENEW_MAX_RETRIES must not be negative, got %d", c.RenewMaxRetries)
	}
	if c.SubscriptionLifetime <= c.RenewMargin() {
		return fmt.Errorf("SUBSCRIPTION_LIFETIME (%s) must exceed the renewal margin (%s)", c.SubscriptionLifetime, c.RenewMargin())
	}

	if c.PlainCategory == "" || c.AttachmentCategory == "" {
		return fmt.Errorf("CATEGORY_PLAIN and CATEGORY_ATTACHMENT must be set")
	}
	if strings.EqualFold(c.PlainCategory, c.AttachmentCategory) {
		return fmt.Errorf("CATEGORY_PLAIN and CATEGORY_ATTACHMENT must differ, both are %q", c.PlainCategory)
	}

	switch c.TokenCacheBackend {
	case "file", "keyring":
	default:
		return fmt.Errorf("unknown TOKEN_CACHE_BACKEND %q", c.TokenCacheBackend)
	}

	folders := c.TargetFolders[:0]
	for _, f := range c.TargetFolders {
		if f = strings.TrimSpace(f); f != "" {
			folders = append(folders, f)
		}
	}
	c.TargetFolders = folders

	return nil
}
