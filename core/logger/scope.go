package logger

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

type scopeKey struct{}

// Scope holds the identifiers every line logged under a context inherits.
type Scope struct {
	RID      string
	UpdateID int
	ChatID   int64
	UserID   int64
	Handler  string
	// Session is the dialogue session key, usually the sender's user id.
	Session int64
}

// ScopeFrom returns the scope stored in ctx, or the zero Scope.
func ScopeFrom(ctx context.Context) Scope {
	if ctx == nil {
		return Scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(Scope)
	return s
}

// WithScope replaces the scope stored in ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

func updateScope(ctx context.Context, fn func(*Scope)) context.Context {
	s := ScopeFrom(ctx)
	fn(&s)
	return WithScope(ctx, s)
}

// WithRID sets the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return updateScope(ctx, func(s *Scope) { s.RID = rid })
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string { return ScopeFrom(ctx).RID }

// WithHandler names the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return updateScope(ctx, func(s *Scope) { s.Handler = handler })
}

// HandlerFrom returns the handler name, if any.
func HandlerFrom(ctx context.Context) string { return ScopeFrom(ctx).Handler }

// WithSession tags ctx with a dialogue session key.
func WithSession(ctx context.Context, session int64) context.Context {
	return updateScope(ctx, func(s *Scope) { s.Session = session })
}

// BuildRID joins update, chat and user ids as "update:chat:user".
func BuildRID(updateID int, chatID, userID int64) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(updateID))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(chatID, 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(userID, 10))
	return b.String()
}

// SanitizeLimit strips control and format runes (tab and newline survive) and
// keeps at most max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	out := make([]rune, 0, min(len(s), max))
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		out = append(out, r)
		if len(out) == max {
			break
		}
	}
	return string(out)
}

// fields lists the scope as log attributes, skipping zero values.
func (s Scope) fields() []field {
	var out []field
	if s.RID != "" {
		out = append(out, field{"rid", s.RID})
	}
	if s.UpdateID != 0 {
		out = append(out, field{"update_id", int64(s.UpdateID)})
	}
	if s.UserID != 0 {
		out = append(out, field{"user_id", s.UserID})
	}
	if s.ChatID != 0 {
		out = append(out, field{"chat_id", s.ChatID})
	}
	if s.Session != 0 {
		out = append(out, field{"session", s.Session})
	}
	if s.Handler != "" {
		out = append(out, field{"handler", s.Handler})
	}
	return out
}
