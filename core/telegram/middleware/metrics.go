package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "reply_counters"

// replyCounters tracks what a handler sent back for one update.
type replyCounters struct {
	messages int
	keyboard bool
}

func (rc *replyCounters) sent(opts []interface{}) {
	rc.messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			rc.keyboard = rc.keyboard || v != nil
		case *tele.SendOptions:
			rc.keyboard = rc.keyboard || (v != nil && v.ReplyMarkup != nil)
		}
	}
}

// countingContext counts successful Send and Reply calls.
type countingContext struct {
	tele.Context
	rc *replyCounters
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	err := c.Context.Send(what, opts...)
	if err == nil {
		c.rc.sent(opts)
	}
	return err
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	err := c.Context.Reply(what, opts...)
	if err == nil {
		c.rc.sent(opts)
	}
	return err
}

// MessageMetricsMiddleware counts the replies sent for an update and logs
// update.handled once the handler returns.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		rc := &replyCounters{}
		c.Set(countersKey, rc)
		err := next(countingContext{Context: c, rc: rc})

		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.Int("messages", rc.messages),
			slog.Bool("kb", rc.keyboard),
		}
		if start, ok := c.Get(keyUpdateStart).(time.Time); ok {
			attrs = append(attrs, slog.Duration("duration", time.Since(start)))
		}
		logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelDebug, "update.handled", attrs...)
		return err
	}
}

// GetCounters returns how many messages were sent for the update so far and
// whether any carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	rc, ok := c.Get(countersKey).(*replyCounters)
	if !ok || rc == nil {
		return 0, false
	}
	return rc.messages, rc.keyboard
}
