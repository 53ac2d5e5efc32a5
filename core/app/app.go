// Package app binds the Telegram transport to the dialogue engine.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/dialogue"
	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/logger"
	"github.com/m3rciful/animbot/core/store"
	coretelegram "github.com/m3rciful/animbot/core/telegram"
	tghelpers "github.com/m3rciful/animbot/core/telegram/helpers"
	"github.com/m3rciful/animbot/core/telegram/keyboard"
	"github.com/m3rciful/animbot/core/telegram/middleware"
	"github.com/m3rciful/animbot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

const (
	optionsPerRow   = 2
	janitorInterval = time.Minute

	msgAdminOnly   = "This command is reserved for the organizers."
	msgSlowDown    = "Too many messages, please wait a moment."
	msgNoDocuments = "Documents are not supported. Use /help to see the commands."
)

// Options carries the infrastructure built by bootstrap.
type Options struct {
	Config  *coreconfig.Config
	Store   *store.Store
	Journal journal.Journal
	// Close releases infrastructure once the bot has stopped.
	Close func() error
}

// App owns the dialogue engine and the command registry.
type App struct {
	cfg    *coreconfig.Config
	engine *dialogue.Engine
	reg    *coretelegram.Registry
	close  func() error
}

// New builds the engine and registers every bot command.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("app: nil store provided")
	}
	a := &App{
		cfg: opts.Config,
		engine: dialogue.New(opts.Store, dialogue.Options{
			InviteSecret: opts.Config.Invite.Secret,
			Journal:      opts.Journal,
			SessionTTL:   opts.Config.SessionTTL(),
		}),
		reg:   coretelegram.NewRegistry(),
		close: opts.Close,
	}
	a.registerCommands()
	a.reg.SetTextFallback(a.HandleText)
	return a, nil
}

// Engine exposes the dialogue engine.
func (a *App) Engine() *dialogue.Engine { return a.engine }

// Registry exposes the command registry.
func (a *App) Registry() *coretelegram.Registry { return a.reg }

type commandDef struct {
	name        string
	description string
	adminOnly   bool
	hidden      bool
	aliases     []string
}

var commandDefs = []commandDef{
	{name: dialogue.CmdStart, description: "start the bot or open an invitation", hidden: true},
	{name: dialogue.CmdHelp, description: "list the commands"},
	{name: dialogue.CmdCancel, description: "cancel the current dialogue"},
	{name: dialogue.CmdPoints, description: "enter points for a player", adminOnly: true},
	{name: dialogue.CmdRegister, description: "register a player", adminOnly: true},
	{name: dialogue.CmdRemove, description: "remove a player or an inscription", adminOnly: true},
	{name: dialogue.CmdAnimations, description: "list the animations", aliases: []string{"anims"}},
	{name: dialogue.CmdPlayers, description: "list players, optionally of one animation"},
	{name: dialogue.CmdScores, description: "scoreboard of one animation"},
	{name: dialogue.CmdPlayer, description: "points of one player"},
	{name: dialogue.CmdHistory, description: "recent changes for a player", adminOnly: true},
}

func (a *App) registerCommands() {
	for _, def := range commandDefs {
		if def.name == dialogue.CmdHistory && !a.engine.JournalEnabled() {
			def.hidden = true
		}
		a.reg.RegisterCommand("/"+def.name, coretelegram.Command{
			Handler:     a.commandHandler(def.name),
			Description: def.description,
			AdminOnly:   def.adminOnly,
			Hidden:      def.hidden,
			Aliases:     def.aliases,
		})
	}
}

func (a *App) commandHandler(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		reply, err := a.engine.OnCommand(ctx, tghelpers.SessionID(c), name, commandArgs(c))
		return a.render(ctx, c, reply, err)
	}
}

// HandleText feeds free text to the sender's dialogue.
func (a *App) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply, err := a.engine.OnText(ctx, tghelpers.SessionID(c), c.Text())
	return a.render(ctx, c, reply, err)
}

// InProgress reports whether sessionID has an open dialogue.
func (a *App) InProgress(sessionID int64) bool {
	return a.engine.InProgress(sessionID)
}

// render sends the reply lines, attaching quick replies to the last one.
// Persistence failures are logged here and not returned, since the user has
// already been told.
func (a *App) render(ctx context.Context, c tele.Context, reply dialogue.Reply, err error) error {
	if err != nil {
		logger.Error(ctx, "app", "store.persist_failed",
			logger.Err(err),
			slog.String("handler", logger.HandlerFrom(ctx)),
		)
	}
	if len(reply.Messages) == 0 {
		return nil
	}
	return tghelpers.SendLines(c, reply.Messages, markupFor(reply))
}

func markupFor(reply dialogue.Reply) *tele.ReplyMarkup {
	if len(reply.Options) > 0 {
		return keyboard.Options(reply.Options, optionsPerRow)
	}
	if reply.Closed {
		return keyboard.RemoveKeyboard()
	}
	return nil
}

// commandArgs returns the text after the command word.
func commandArgs(c tele.Context) string {
	msg := c.Message()
	if msg == nil {
		return ""
	}
	if msg.Payload != "" {
		return strings.TrimSpace(msg.Payload)
	}
	_, args, _ := strings.Cut(strings.TrimSpace(msg.Text), " ")
	return strings.TrimSpace(args)
}

func reject(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, text)
	}
}

// TelegramRunOptions wires routes, middleware and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	admin := middleware.AdminOptions{AdminID: a.cfg.Telegram.AdminID, OnReject: reject(msgAdminOnly)}
	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    a.reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, reject(msgSlowDown)),
		Routes: func(reg *coretelegram.Registry) []coretelegram.Route {
			routes := router.CommandRoutes(reg, router.CommandRouteOptions{
				AdminID:       admin.AdminID,
				OnAdminReject: admin.OnReject,
			})
			return append(routes, router.TextRoutes(a, reg, router.TextOptions{
				Admin:           admin,
				UnknownDocument: reject(msgNoDocuments),
			})...)
		},
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			go a.engine.RunJanitor(ctx, janitorInterval)
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			if a.close == nil {
				return nil
			}
			if err := a.close(); err != nil {
				logger.Error(ctx, "app", "shutdown.close_failed", logger.Err(err))
				return err
			}
			return nil
		},
	}, nil
}
