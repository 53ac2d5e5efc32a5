package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/logger"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/animbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	SenderOptions tgsender.Options

	Middlewares []Middleware
	// Routes builds the handlers once the registry is final.
	Routes func(reg *Registry) []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Sender   *tgsender.Sender
	Registry *Registry
}

// RunTelegram builds the bot from opts and serves updates until ctx ends.
// OnStart runs after handlers are wired and before the first update;
// OnStop runs once the bot has stopped, with cancellation stripped from ctx.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	cfg := opts.Config

	began := time.Now()
	poller := BuildPoller(PollerOptionsFrom(cfg))
	bot, err := newBot(ctx, cfg, poller)
	if err != nil {
		return err
	}
	logMode(ctx, poller, time.Since(began))
	if !opts.DisableWebhookCleanup && strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll) {
		dropWebhook(ctx, bot)
	}

	sender := tgsender.New(opts.SenderOptions)
	tghelpers.SetSender(sender)
	defer tghelpers.SetSender(nil)

	bound := wire(bot, opts)
	logger.LogEvent(ctx, logger.TWire, slog.LevelDebug, "routes.bound", slog.Int("count", bound))
	InitBotCommands(bot, opts.Registry, cfg.Telegram.AdminID)

	rt := Runtime{Bot: bot, Sender: sender, Registry: opts.Registry}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}
	runErr := serve(ctx, bot)
	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func newBot(ctx context.Context, cfg *coreconfig.Config, poller tele.Poller) (*tele.Bot, error) {
	timeout := time.Duration(longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds)+20) * time.Second
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(HTTPOptions{ClientTimeout: timeout}),
		OnError: func(err error, c tele.Context) {
			ectx := ctx
			if c != nil {
				ectx = tghelpers.BuildContext(c)
			}
			logger.LogEvent(ectx, logger.TG, slog.LevelError, "handler.error", logger.Err(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

func logMode(ctx context.Context, poller tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", took)}
	if wh, ok := poller.(*tele.Webhook); ok {
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", wh.Listen),
			slog.String("public_url", wh.Endpoint.PublicURL),
		)
	} else {
		attrs = append(attrs, slog.String("mode", coreconfig.RunModeLongpoll))
		if lp, ok := poller.(*tele.LongPoller); ok {
			attrs = append(attrs, slog.Duration("poll_timeout", lp.Timeout))
		}
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode", attrs...)
}

// dropWebhook clears a webhook left by an earlier webhook deployment, which
// would otherwise make getUpdates fail.
func dropWebhook(ctx context.Context, bot *tele.Bot) {
	err := bot.RemoveWebhook(false)
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.TG, level, "delete_webhook", slog.String("status", logger.Status(err)), logger.Err(err))
}

// binder is the part of *tele.Bot that wire uses.
type binder interface {
	Use(middleware ...tele.MiddlewareFunc)
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
}

// wire installs middlewares and routes on b and returns the number of
// routes bound. Entries with a nil endpoint or handler are skipped.
func wire(b binder, opts RunOptions) int {
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			b.Use(mw.Use)
		}
	}
	if opts.Routes == nil {
		return 0
	}
	n := 0
	for _, r := range opts.Routes(opts.Registry) {
		if r.Endpoint == nil || r.Handler == nil {
			continue
		}
		b.Handle(r.Endpoint, r.Handler)
		n++
	}
	return n
}

type runner interface {
	Start()
	Stop()
}

// serve blocks in r.Start until it returns or ctx ends, in which case r is
// stopped and ctx.Err is returned.
func serve(ctx context.Context, r runner) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.Stop()
		<-done
		return ctx.Err()
	}
}
