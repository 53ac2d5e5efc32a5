package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/dialogue"
	"github.com/m3rciful/animbot/core/store"
	coretelegram "github.com/m3rciful/animbot/core/telegram"
)

type chat struct {
	tele.Context
	texts   []string
	markups []*tele.ReplyMarkup
}

func (c *chat) Send(what interface{}, opts ...interface{}) error {
	c.texts = append(c.texts, what.(string))
	var markup *tele.ReplyMarkup
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			markup = so.ReplyMarkup
		}
	}
	c.markups = append(c.markups, markup)
	return nil
}

func (c *chat) last() (string, *tele.ReplyMarkup) {
	return c.texts[len(c.texts)-1], c.markups[len(c.markups)-1]
}

func newChat(userID int64, text, payload string) *chat {
	return &chat{Context: tele.NewContext(nil, tele.Update{ID: 3, Message: &tele.Message{
		Sender:  &tele.User{ID: userID},
		Chat:    &tele.Chat{ID: userID},
		Text:    text,
		Payload: payload,
	}})}
}

func newApp(t *testing.T) (*App, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "storage.csv"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := &coreconfig.Config{}
	cfg.Telegram.AdminID = 7
	a, err := New(Options{Config: cfg, Store: st})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, st
}

func command(t *testing.T, a *App, name string) tele.HandlerFunc {
	t.Helper()
	_, cmd, ok := a.Registry().LookupCommand(name)
	if !ok {
		t.Fatalf("command %s not registered", name)
	}
	return cmd.Handler
}

func menu(cmds []tele.Command) string {
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.Text)
	}
	return strings.Join(names, ",")
}

func TestCommandMenu(t *testing.T) {
	a, _ := newApp(t)
	testutil.AssertEqual(t, "public", menu(a.Registry().ListCommands(false)), "animations,cancel,help,player,players,scores")
	testutil.AssertEqual(t, "admin", menu(a.Registry().ListCommands(true)),
		"animations,cancel,help,player,players,points,register,remove,scores")
}

func TestRemoveDialogueRendersKeyboards(t *testing.T) {
	a, _ := newApp(t)
	c := newChat(7, "/remove", "")
	if err := command(t, a, "/remove")(c); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, markup := c.last()
	testutil.AssertEqual(t, "yes/no rows", len(markup.ReplyKeyboard), 1)
	testutil.AssertEqual(t, "yes", markup.ReplyKeyboard[0][0].Text, dialogue.OptionYes)
	testutil.AssertEqual(t, "no", markup.ReplyKeyboard[0][1].Text, dialogue.OptionNo)
	testutil.AssertEqual(t, "in progress", a.InProgress(7), true)

	reply := newChat(7, dialogue.OptionNo, "")
	if err := a.HandleText(reply); err != nil {
		t.Fatalf("text: %v", err)
	}
	_, markup = reply.last()
	testutil.AssertEqual(t, "keyboard removed", markup.RemoveKeyboard, true)
	testutil.AssertEqual(t, "closed", a.InProgress(7), false)
}

func TestPointsCommandUsesArguments(t *testing.T) {
	a, st := newApp(t)
	if _, _, err := st.AddAssociation("alice", "Chess", 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := newChat(7, "/points alice", "alice")
	if err := command(t, a, "/points")(c); err != nil {
		t.Fatalf("points: %v", err)
	}
	s, ok := a.Engine().Session(7)
	testutil.AssertEqual(t, "open", ok, true)
	testutil.AssertEqual(t, "player", s.Player, "alice")
	_, markup := c.last()
	testutil.AssertEqual(t, "event option", markup.ReplyKeyboard[0][0].Text, "Chess")

	_ = a.HandleText(newChat(7, "Chess", ""))
	final := newChat(7, "10", "")
	_ = a.HandleText(final)
	text, _ := final.last()
	testutil.AssertEqual(t, "report", text, "[Chess] alice - 15pts")
}

func TestRenderSwallowsPersistError(t *testing.T) {
	a, _ := newApp(t)
	c := newChat(7, "x", "")
	err := a.render(context.Background(), c, dialogue.Reply{Messages: []string{"saved?"}, Closed: true}, errors.New("disk full"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	testutil.AssertEqual(t, "sent", len(c.texts), 1)
	if err := a.render(context.Background(), c, dialogue.Reply{}, nil); err != nil {
		t.Fatalf("empty reply: %v", err)
	}
	testutil.AssertEqual(t, "nothing more sent", len(c.texts), 1)
}

func TestCommandArgs(t *testing.T) {
	testutil.AssertEqual(t, "payload", commandArgs(newChat(1, "/start abc", "abc")), "abc")
	testutil.AssertEqual(t, "from text", commandArgs(newChat(1, "/POINTS  bob ", "")), "bob")
	testutil.AssertEqual(t, "none", commandArgs(newChat(1, "/help", "")), "")
}

func TestRunOptionsCloseOnStop(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "storage.csv"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	closed := 0
	a, err := New(Options{Config: &coreconfig.Config{}, Store: st, Close: func() error { closed++; return nil }})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("run options: %v", err)
	}
	routes := opts.Routes(opts.Registry)
	testutil.AssertEqual(t, "routes", len(routes), len(commandDefs)+1+2)
	if err := opts.OnStop(context.Background(), coretelegram.Runtime{}); err != nil {
		t.Fatalf("stop: %v", err)
	}
	testutil.AssertEqual(t, "closed", closed, 1)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(Options{Config: &coreconfig.Config{}})
	testutil.AssertErrorContains(t, err, "nil store")
}
