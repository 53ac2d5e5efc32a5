package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const keyUpdateStart = "update_start"

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var recent = &updateSet{seen: make(map[int]time.Time), keepFor: 10 * time.Second}

type updateSet struct {
	mu      sync.Mutex
	seen    map[int]time.Time
	keepFor time.Duration
}

// markSeen records updateID and reports whether it was already present.
func (s *updateSet) markSeen(updateID int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ts := range s.seen {
		if now.Sub(ts) > s.keepFor {
			delete(s.seen, id)
		}
	}
	if _, ok := s.seen[updateID]; ok {
		return true
	}
	s.seen[updateID] = now
	return false
}

// LoggerMiddleware logs a single receipt line per update and sets rid.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		meta := tghelpers.MetaFrom(c)
		rid := meta.RID()
		c.Set(tghelpers.RIDKey, rid)
		c.Set(keyUpdateStart, time.Now())
		ctx := tghelpers.NewUpdateContext(c, rid)

		if logger.ShouldSampleDebug() && !recent.markSeen(meta.UpdateID, time.Now()) {
			attrs := []slog.Attr{
				slog.String("rid", rid),
				slog.Int("update_id", meta.UpdateID),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID), slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			attrs = append(attrs, payloadAttrs(c.Text())...)
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

// payloadAttrs describes message text; command arguments may carry
// invitation tokens so only the command name is logged for them.
func payloadAttrs(text string) []slog.Attr {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		return []slog.Attr{slog.String("cmd", logger.SanitizeLimit(cmd, 64))}
	}
	return []slog.Attr{slog.String("payload", logger.SanitizeLimit(text, 256))}
}
