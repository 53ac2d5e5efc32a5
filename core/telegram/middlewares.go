package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the bot-wide chain: panic recovery, then the
// per-user rate limit when rate_limit.interval_ms is set. The routers add
// logging and metrics per route.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}
	if cfg == nil {
		return mws
	}
	if rl, ok := rateLimit(cfg.RateLimit, onLimited); ok {
		mws = append(mws, rl)
	}
	return mws
}

func rateLimit(rc coreconfig.RateLimitConfig, onLimited func(tele.Context) error) (Middleware, bool) {
	if rc.IntervalMS <= 0 {
		return Middleware{}, false
	}
	skip := make(map[string]struct{}, len(rc.ExcludeUpdates))
	for _, kind := range rc.ExcludeUpdates {
		skip[strings.ToLower(strings.TrimSpace(kind))] = struct{}{}
	}
	return Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  time.Duration(rc.IntervalMS) * time.Millisecond,
			Exclude:   skip,
			OnLimited: onLimited,
		}),
	}, true
}
