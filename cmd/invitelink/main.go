// Command invitelink prints the tg://resolve deep link that opens the bot
// with an invitation token for one player.
//
//	INVITE_SECRET=... invitelink -bot icelanim_bot alice
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"

	coreconfig "github.com/m3rciful/animbot/core/config"
	"github.com/m3rciful/animbot/core/invite"
	"github.com/m3rciful/animbot/core/store"
)

// Config holds the link parameters.
type Config struct {
	Bot    string
	Secret string
	Player string
}

// ParseConfig reads flags, falling back to BOT_USERNAME and INVITE_SECRET.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var env coreconfig.InviteConfig
	if err := envconfig.Process("", &env); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	cfg := Config{Bot: env.BotUsername, Secret: env.Secret}
	fs.StringVar(&cfg.Bot, "bot", cfg.Bot, "bot username (default: $BOT_USERNAME)")
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "shared invitation secret (default: $INVITE_SECRET)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() != 1 {
		return Config{}, errors.New("exactly one player argument is required")
	}
	cfg.Player = fs.Arg(0)
	return cfg, nil
}

// Run builds the link and writes it to out.
func Run(cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	player, err := store.SanitizePlayer(cfg.Player)
	if err != nil {
		return err
	}
	token, err := invite.Encode(player, strings.TrimSpace(cfg.Secret))
	if err != nil {
		return err
	}
	link, err := invite.Link(cfg.Bot, token)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, link)
	return err
}

func main() {
	cfg, err := ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invitelink: %v\n", err)
		os.Exit(2)
	}
	if err := Run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "invitelink: %v\n", err)
		os.Exit(1)
	}
}
