package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/store"
)

func TestQueries(t *testing.T) {
	h := newHarness(t)
	h.seed("alice", "Chess", 10)
	h.seed("bob", "Chess", 25)
	h.seed("carol", "Chess", 10)
	h.seed("alice", "Board Games", 4)
	if _, err := h.store.AddPlayer("dave"); err != nil {
		t.Fatalf("add player: %v", err)
	}

	tests := map[string]struct {
		cmd, args string
		exp       string
	}{
		"animations":       {cmd: "animations", exp: "Board Games\nChess"},
		"players":          {cmd: "players", exp: "alice\nbob\ncarol\ndave"},
		"players of event": {cmd: "players", args: "Chess", exp: "[Chess]\nalice - 10pts\nbob - 25pts\ncarol - 10pts"},
		"scores":           {cmd: "scores", args: "Chess", exp: "[Chess]\nbob - 25pts\nalice - 10pts\ncarol - 10pts"},
		"scores unknown":   {cmd: "scores", args: "Poker", exp: "Unknown animation [Poker]."},
		"scores usage":     {cmd: "scores", exp: msgUsageScores},
		"player":           {cmd: "player", args: "alice", exp: "[Board Games] - 4pts\n[Chess] - 10pts"},
		"player unknown":   {cmd: "player", args: "zoe", exp: "Player zoe not found."},
		"player empty":     {cmd: "player", args: "dave", exp: "dave is not registered for any animation."},
		"player usage":     {cmd: "player", exp: msgUsagePlayer},
		"history usage":    {cmd: "history", exp: msgUsageHistory},
		"help":             {cmd: "help", exp: msgHelp},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := h.cmd(tt.cmd, tt.args)
			assertSlice(t, "messages", r.Messages, []string{tt.exp})
			testutil.AssertEqual(t, "closed", r.Closed, true)
		})
	}
}

func TestQueriesOnEmptyStore(t *testing.T) {
	h := newHarness(t)
	assertSlice(t, "animations", h.cmd("animations", "").Messages, msgs(msgNoAnimations))
	assertSlice(t, "players", h.cmd("players", "").Messages, msgs(msgNoPlayers))
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	h.cmd("points", "alice")
	h.text("Chess")
	h.text("5")
	h.cmd("points", "alice")
	h.text("Chess")
	h.text("3")

	r := h.cmd("history", "alice")
	assertSlice(t, "history", r.Messages, []string{
		"2026-01-02 15:04 points_added [Chess] +3 (total 8)\n" +
			"2026-01-02 15:04 points_added [Chess] +5 (total 5)\n" +
			"2026-01-02 15:04 association_added [Chess] +0 (total 0)",
	})
	testutil.AssertEqual(t, "actor", h.journal.entries[0].ActorID, user)

	r = h.cmd("history", "zoe")
	assertSlice(t, "empty", r.Messages, msgs(msgHistoryEmpty, "zoe"))

	h.journal.err = errors.New("db down")
	r = h.cmd("history", "alice")
	assertSlice(t, "failed", r.Messages, msgs(msgHistoryFailed))
}

func TestHistoryDisabled(t *testing.T) {
	e := New(store.New(), Options{})
	r, err := e.OnCommand(context.Background(), user, "history", "alice")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	assertSlice(t, "off", r.Messages, msgs(msgHistoryOff))
	testutil.AssertEqual(t, "enabled", e.JournalEnabled(), false)
}

func TestFormatEntry(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC)
	tests := map[string]struct {
		entry journal.Entry
		exp   string
	}{
		"player added": {
			entry: journal.Entry{Action: journal.ActionPlayerAdded, Player: "a", CreatedAt: at},
			exp:   "2026-03-04 05:06 player_added",
		},
		"removed": {
			entry: journal.Entry{Action: journal.ActionAssociationRemoved, Player: "a", Event: "Go", Delta: -2, CreatedAt: at},
			exp:   "2026-03-04 05:06 association_removed [Go]",
		},
		"negative points": {
			entry: journal.Entry{Action: journal.ActionPointsAdded, Player: "a", Event: "Go", Delta: -2, Total: 5, CreatedAt: at},
			exp:   "2026-03-04 05:06 points_added [Go] -2 (total 5)",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "line", formatEntry(tt.entry), tt.exp)
		})
	}
}

func TestParseAnswers(t *testing.T) {
	for _, in := range []string{"yes", " Y ", "Oui", "o"} {
		testutil.AssertEqual(t, in, parseYesNo(in), answerYes)
	}
	for _, in := range []string{"no", "N", "non"} {
		testutil.AssertEqual(t, in, parseYesNo(in), answerNo)
	}
	testutil.AssertEqual(t, "maybe", parseYesNo("maybe"), answerInvalid)
	testutil.AssertEqual(t, "Player", parseScope("Player"), scopePlayer)
	testutil.AssertEqual(t, "INSCRIPTION", parseScope("INSCRIPTION"), scopeInscription)
	testutil.AssertEqual(t, "other", parseScope("all"), scopeInvalid)
}
