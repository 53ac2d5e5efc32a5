package main

import (
	"bytes"
	"flag"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"

	"github.com/m3rciful/animbot/core/invite"
)

func TestParseConfigEnvDefaults(t *testing.T) {
	t.Setenv("BOT_USERNAME", "icelanim_bot")
	t.Setenv("INVITE_SECRET", "s3cret")

	fs := flag.NewFlagSet("invitelink", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"alice"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	testutil.AssertEqual(t, "config", cfg, Config{Bot: "icelanim_bot", Secret: "s3cret", Player: "alice"})
}

func TestParseConfigFlagsOverride(t *testing.T) {
	t.Setenv("BOT_USERNAME", "env_bot")
	t.Setenv("INVITE_SECRET", "env")

	fs := flag.NewFlagSet("invitelink", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-bot", "flag_bot", "-secret", "flag", "bob"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	testutil.AssertEqual(t, "config", cfg, Config{Bot: "flag_bot", Secret: "flag", Player: "bob"})
}

func TestParseConfigRequiresPlayer(t *testing.T) {
	fs := flag.NewFlagSet("invitelink", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	_, err := ParseConfig(fs, []string{"-bot", "b"})
	testutil.AssertErrorContains(t, err, "player argument")
}

func TestRunWritesLink(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(Config{Bot: "@icelanim_bot", Secret: "s3cret", Player: " alice "}, buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	link := strings.TrimSpace(buf.String())
	const prefix = "tg://resolve?domain=icelanim_bot&start="
	if !strings.HasPrefix(link, prefix) {
		t.Fatalf("unexpected link %q", link)
	}
	player, err := invite.Decode(strings.TrimPrefix(link, prefix), "s3cret")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	testutil.AssertEqual(t, "player", player, "alice")
}

func TestRunErrors(t *testing.T) {
	tests := map[string]struct {
		cfg    Config
		expErr string
	}{
		"no secret": {cfg: Config{Bot: "b", Player: "alice"}, expErr: "secret not configured"},
		"no bot":    {cfg: Config{Secret: "s", Player: "alice"}, expErr: "bot username"},
		"no player": {cfg: Config{Bot: "b", Secret: "s", Player: " , "}, expErr: "invalid player"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := Run(tt.cfg, &bytes.Buffer{})
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}
