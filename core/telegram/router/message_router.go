package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/animbot/core/telegram"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"
	"github.com/m3rciful/animbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversation is the part of a dialogue engine the text router needs.
type Conversation interface {
	InProgress(sessionID int64) bool
	HandleText(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and document updates.
type TextOptions struct {
	// Admin guards admin-only commands reached through text, such as
	// "/POINTS" which the bot's exact-match routing misses.
	Admin           middleware.AdminOptions
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for free text and documents.
func TextRoutes(conv Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		start := time.Now()
		name, h := pickText(c, conv, reg, opts)
		return summary{handler: name, start: start}.serve(c, h)
	}
	doc := func(c tele.Context) error {
		return summary{handler: "unexpected_document", start: time.Now()}.serve(c, opts.UnknownDocument)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(middleware.MessageMetricsMiddleware(h)))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(doc)},
	}
}

// pickText chooses who serves a text update: a registered command the
// exact-match routing missed, then an open conversation, then the registry
// fallback. Commands come first so "/POINTS" mid-dialogue restarts the
// workflow behind the admin check.
func pickText(c tele.Context, conv Conversation, reg *tg.Registry, opts TextOptions) (string, tele.HandlerFunc) {
	if reg != nil {
		if msg := c.Message(); msg != nil && strings.HasPrefix(msg.Text, "/") {
			if key, cmd, ok := reg.LookupCommand(commandName(msg.Text)); ok && cmd.Handler != nil {
				return "cmd." + handlerKey(key), middleware.WithAdminCheck(opts.Admin, cmd.AdminOnly, cmd.Handler)
			}
		}
	}
	if conv != nil && conv.InProgress(tghelpers.SessionID(c)) {
		return "dialogue", conv.HandleText
	}
	if reg == nil {
		return "unknown_text", opts.UnknownText
	}
	if fb := reg.TextFallback(); fb != nil {
		return "fallback", fb
	}
	return "unknown_text", opts.UnknownText
}
