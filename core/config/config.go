package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID gates the mutating commands; 0 leaves them open to everyone.
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// StorageConfig locates the association snapshot.
type StorageConfig struct {
	SnapshotPath string `yaml:"snapshot_path" envconfig:"SNAPSHOT_PATH"`
}

// InviteConfig configures invitation tokens carried by /start deep links.
type InviteConfig struct {
	// Secret is appended to the player name before base64 encoding. Empty disables invitations.
	Secret      string `yaml:"secret" envconfig:"INVITE_SECRET"`
	BotUsername string `yaml:"bot_username" envconfig:"BOT_USERNAME"`
}

// SessionsConfig bounds the lifetime of idle dialogue sessions.
type SessionsConfig struct {
	// TTLMinutes is the idle lifetime: 0 selects the default, negative disables expiry.
	TTLMinutes int `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
}

// DatabaseConfig holds the optional Postgres journal connection.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	// UpdateCommand is a message starting with "/".
	UpdateCommand = "command"
	// UpdateText is any other message, typically a dialogue answer.
	UpdateText = "text"
)

const (
	defaultSnapshotPath  = "storage.csv"
	defaultSessionTTL    = 30
	defaultMigrationsDir = "migrations"
)

// RateLimitConfig sets the minimum gap between two updates of one user.
// ExcludeUpdates lists UpdateCommand or UpdateText kinds that are never limited.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Invite    InviteConfig    `yaml:"invite"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Database  DatabaseConfig  `yaml:"database"`
}

// CoreConfig lets the runner treat *Config as a config carrier.
func (c *Config) CoreConfig() *Config { return c }

// SessionTTL resolves the idle session lifetime; zero means sessions never expire.
func (c *Config) SessionTTL() time.Duration {
	if c == nil || c.Sessions.TTLMinutes == 0 {
		return defaultSessionTTL * time.Minute
	}
	if c.Sessions.TTLMinutes < 0 {
		return 0
	}
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// Load reads the YAML file at path, applies environment overrides and
// normalizes the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
