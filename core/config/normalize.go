package config

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/pixil98/go-errors"
)

// sections run in order; each fills its defaults and reports its problems.
var sections = []func(*Config) error{
	normalizeTelegram,
	normalizeRateLimit,
	normalizeStorage,
	normalizeInvite,
	func(c *Config) error { return normalizeDatabase(&c.Database) },
}

// Normalize fills defaults and validates cfg, reporting every problem found
// rather than only the first.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	el := errors.NewErrorList()
	for _, normalize := range sections {
		el.Add(normalize(cfg))
	}
	return el.Err()
}

func normalizeTelegram(cfg *Config) error {
	el := errors.NewErrorList()
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		el.Add(fmt.Errorf("telegram token is required"))
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch mode {
	case "", "polling", RunModeLongpoll:
		cfg.Telegram.RunMode = RunModeLongpoll
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			el.Add(fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0"))
		}
	case RunModeWebhook:
		cfg.Telegram.RunMode = RunModeWebhook
		const when = "when telegram.run_mode is 'webhook'"
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			el.Add(fmt.Errorf("webhook.url is required %s", when))
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			el.Add(fmt.Errorf("webhook.listen is required %s", when))
		}
		if cfg.Webhook.Port <= 0 {
			el.Add(fmt.Errorf("webhook.port must be > 0 %s", when))
		}
	default:
		el.Add(fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode))
	}
	return el.Err()
}

func normalizeRateLimit(cfg *Config) error {
	kept := cfg.RateLimit.ExcludeUpdates[:0]
	for _, v := range cfg.RateLimit.ExcludeUpdates {
		switch kind := strings.ToLower(strings.TrimSpace(v)); kind {
		case "":
		case UpdateCommand, UpdateText:
			kept = append(kept, kind)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: %s, %s", v, UpdateCommand, UpdateText)
		}
	}
	cfg.RateLimit.ExcludeUpdates = kept
	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	return nil
}

func normalizeStorage(cfg *Config) error {
	cfg.Storage.SnapshotPath = strings.TrimSpace(cfg.Storage.SnapshotPath)
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = defaultSnapshotPath
	}
	return nil
}

func normalizeInvite(cfg *Config) error {
	cfg.Invite.BotUsername = strings.TrimPrefix(strings.TrimSpace(cfg.Invite.BotUsername), "@")
	if strings.ContainsAny(cfg.Invite.Secret, " \t\r\n") {
		return fmt.Errorf("invite.secret must not contain whitespace")
	}
	return nil
}

func normalizeDatabase(db *DatabaseConfig) error {
	if !db.Enabled {
		return nil
	}
	db.Port = cmp.Or(strings.TrimSpace(db.Port), "5432")
	db.SSLMode = cmp.Or(strings.TrimSpace(db.SSLMode), "disable")
	db.MigrationsDir = cmp.Or(strings.TrimSpace(db.MigrationsDir), defaultMigrationsDir)
	if db.MaxConnections <= 0 {
		db.MaxConnections = 4
	}
	el := errors.NewErrorList()
	if strings.TrimSpace(db.Host) == "" {
		el.Add(fmt.Errorf("database.host is required when database.enabled"))
	}
	if strings.TrimSpace(db.Name) == "" {
		el.Add(fmt.Errorf("database.name is required when database.enabled"))
	}
	return el.Err()
}
