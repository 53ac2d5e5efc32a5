package router

import (
	"log/slog"
	"sort"
	"time"

	"github.com/m3rciful/animbot/core/logger"
	tg "github.com/m3rciful/animbot/core/telegram"
	"github.com/m3rciful/animbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Aliases get their own route bound to the same handler.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	names := make([]string, 0, len(reg.Commands()))
	for name := range reg.Commands() {
		names = append(names, name)
	}
	sort.Strings(names)

	var routes []tg.Route
	for _, name := range names {
		def := reg.Commands()[name]
		h := wrapCommand(name, def.Handler)
		h = middleware.WithAdminCheck(adminOpts, def.AdminOnly, h)
		h = middleware.LoggerMiddleware(middleware.MessageMetricsMiddleware(h))
		h = middleware.RecoverMiddleware(h)

		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range def.Aliases {
			routes = append(routes, tg.Route{Endpoint: "/" + handlerKey(alias), Handler: h})
		}
	}

	logger.LogEvent(logger.Background(), logger.TWire, slog.LevelInfo, "tg.wire",
		slog.String("status", "complete"),
		slog.Int("commands", len(names)),
		slog.Int("routes", len(routes)),
	)

	return routes
}

func wrapCommand(name string, h tele.HandlerFunc) tele.HandlerFunc {
	handlerName := "cmd." + handlerKey(name)
	return func(c tele.Context) error {
		return summary{handler: handlerName, start: time.Now()}.serve(c, h)
	}
}
