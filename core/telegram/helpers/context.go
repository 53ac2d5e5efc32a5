package helpers

import (
	"context"

	"github.com/m3rciful/animbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey = "logger_ctx"
	// RIDKey holds the correlation id set by the logging middleware.
	RIDKey = "rid"
)

// Meta identifies one update for logging and session lookup.
type Meta struct {
	UpdateID int
	ChatID   int64
	UserID   int64
}

// MetaFrom reads the update, chat and sender ids from c.
func MetaFrom(c tele.Context) Meta {
	m := Meta{UpdateID: c.Update().ID}
	if chat := c.Chat(); chat != nil {
		m.ChatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		m.UserID = user.ID
	}
	return m
}

// RID returns the update's correlation id.
func (m Meta) RID() string {
	return logger.BuildRID(m.UpdateID, m.ChatID, m.UserID)
}

// NewUpdateContext derives a fresh logging context for c, stores it on c and
// returns it.
func NewUpdateContext(c tele.Context, rid string) context.Context {
	m := MetaFrom(c)
	if rid == "" {
		rid = m.RID()
	}
	ctx := logger.WithScope(logger.Background(), logger.Scope{
		RID:      rid,
		UpdateID: m.UpdateID,
		ChatID:   m.ChatID,
		UserID:   m.UserID,
	})
	StoreContext(c, ctx)
	return ctx
}

// StoreContext attaches ctx to c for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the stored context, creating one on first use.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	rid, _ := c.Get(RIDKey).(string)
	return NewUpdateContext(c, rid)
}

// WithHandler records the handler name on the stored context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
