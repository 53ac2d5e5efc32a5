package router

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"
	"github.com/m3rciful/animbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary produces the handler.handled line for one update.
type summary struct {
	handler string
	start   time.Time
}

// serve runs h and logs the summary. A nil h is logged as skipped.
func (s summary) serve(c tele.Context, h tele.HandlerFunc) error {
	if h == nil {
		s.log(c, "skip", nil)
		return nil
	}
	tghelpers.WithHandler(c, s.handler)
	err := h(c)
	s.log(c, logger.Status(err), err)
	return err
}

func (s summary) log(c tele.Context, status string, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(s.start)).Milliseconds()),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, logger.Err(err), slog.String("err_code", errorCode(err)))
	}
	logger.LogEvent(ctx, logger.TG, level, "handler.handled", attrs...)
}

// errorCode buckets handler errors for dashboards.
func errorCode(err error) string {
	var (
		flood tele.FloodError
		api   *tele.Error
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &flood):
		return "FLOOD_WAIT"
	case errors.As(err, &api):
		return "TG_" + strconv.Itoa(api.Code)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "TIMEOUT"
	}
	return "INTERNAL"
}

// handlerKey turns a command or alias into the lower-case key used in
// handler names and endpoints.
func handlerKey(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// commandName extracts "/name" from "/name@bot args".
func commandName(text string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}
