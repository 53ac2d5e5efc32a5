package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/animbot/core/logger"
)

// Command is a slash command with its handler and menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are rejected for everyone but the configured admin.
	AdminOnly bool
	// Hidden commands are routed but never shown in the menu.
	Hidden  bool
	Aliases []string
}

// Registry holds the bot commands and the text fallback.
type Registry struct {
	commands     map[string]Command
	textFallback tele.HandlerFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// RegisterCommand adds cmd under name, which must start with "/".
// Invalid and duplicate registrations are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd Command) bool {
	reason := ""
	switch {
	case r == nil:
		return false
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		reason = "invalid"
	case !strings.HasPrefix(name, "/"):
		reason = "no_slash_prefix"
	}
	if _, exists := r.commands[name]; reason == "" && exists {
		reason = "duplicate"
	}
	if reason != "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return false
	}
	r.commands[name] = cmd
	return true
}

// ListCommands returns menu entries sorted by name. With adminView false,
// hidden and admin-only commands are left out; with true only hidden ones are.
func (r *Registry) ListCommands(adminView bool) []tele.Command {
	var list []tele.Command
	for name, meta := range r.commands {
		if meta.Hidden || (!adminView && meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a name or alias to the canonical key.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]Command {
	return r.commands
}

// SetTextFallback sets the handler for text that no route claims.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// CommandSetter is the part of *tele.Bot used to publish the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the public menu, plus the full menu in the
// admin's private chat when adminID is set.
func InitBotCommands(bot CommandSetter, reg *Registry, adminID int64) {
	ctx := context.Background()
	public := reg.ListCommands(false)
	if err := bot.SetCommands(public); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "register.commands.set_failed",
			slog.String("scope", "default"),
			logger.Err(err),
		)
	}
	if adminID == 0 {
		return
	}
	all := reg.ListCommands(true)
	scope := tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID}
	if err := bot.SetCommands(all, scope); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "register.commands.set_failed",
			slog.String("scope", "admin"),
			logger.Err(err),
		)
		return
	}
	logger.TWire.LogAttrs(ctx, slog.LevelDebug, "register.commands.set",
		slog.Int("public", len(public)),
		slog.Int("admin", len(all)),
	)
}
