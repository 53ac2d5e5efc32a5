package telegram

import (
	"net"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/animbot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10

// messageUpdates is all the bot consumes: commands and dialogue replies.
var messageUpdates = []string{"message"}

// WebhookOptions declares webhook listener settings. Its fields mirror
// coreconfig.WebhookConfig so the section converts directly.
type WebhookOptions struct {
	URL    string
	Listen string
	Port   int
}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	RunMode                string
	LongPollTimeoutSeconds int
	Webhook                WebhookOptions
	// AllowedUpdates defaults to message updates only.
	AllowedUpdates []string
}

// PollerOptionsFrom maps the telegram and webhook config sections.
func PollerOptionsFrom(cfg *coreconfig.Config) PollerOptions {
	return PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook:                WebhookOptions(cfg.Webhook),
	}
}

// BuildPoller returns a webhook listener in webhook mode and a long poller
// otherwise.
func BuildPoller(opts PollerOptions) tele.Poller {
	allowed := opts.AllowedUpdates
	if len(allowed) == 0 {
		allowed = messageUpdates
	}
	if strings.EqualFold(strings.TrimSpace(opts.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(opts.Webhook.Listen, strconv.Itoa(opts.Webhook.Port)),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
			AllowedUpdates: allowed,
		}
	}
	return &tele.LongPoller{
		Timeout:        time.Duration(longPollTimeout(opts.LongPollTimeoutSeconds)) * time.Second,
		AllowedUpdates: allowed,
	}
}

func longPollTimeout(seconds int) int {
	if seconds <= 0 {
		return defaultLongPollTimeout
	}
	return seconds
}
