package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds (see coreconfig.Update*) that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	now       func() time.Time
}

// updateKind classifies an update for rate_limit.exclude_updates.
func updateKind(upd tele.Update) string {
	switch {
	case upd.Message == nil:
		return "other"
	case strings.HasPrefix(upd.Message.Text, "/"):
		return coreconfig.UpdateCommand
	}
	return coreconfig.UpdateText
}

// limiter remembers when each user was last let through.
type limiter struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[int64]time.Time
	pruned   time.Time
}

// allow records an update from user at now and reports whether it may pass.
// Entries older than the interval are dropped at most once per interval.
func (l *limiter) allow(user int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.pruned) >= l.interval {
		for id, ts := range l.last {
			if now.Sub(ts) >= l.interval {
				delete(l.last, id)
			}
		}
		l.pruned = now
	}
	if ts, ok := l.last[user]; ok && now.Sub(ts) < l.interval {
		return false
	}
	l.last[user] = now
	return true
}

// RateLimitMiddleware drops updates that arrive from the same user less than
// Interval after the previous one that was let through.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &limiter{interval: opts.Interval, last: make(map[int64]time.Time)}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if lim.allow(user.ID, now()) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.Duration("interval", opts.Interval),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
