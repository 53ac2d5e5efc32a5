package dialogue

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/logger"
	"github.com/m3rciful/animbot/core/store"
)

// historyLimit is how many journal entries /history shows.
const historyLimit = 10

func (e *Engine) query(ctx context.Context, name, args string) Reply {
	switch name {
	case CmdAnimations:
		events := e.store.Events()
		if len(events) == 0 {
			return say(msgNoAnimations)
		}
		return say("%s", strings.Join(events, "\n"))

	case CmdPlayers:
		if args == "" {
			players := e.store.Players()
			if len(players) == 0 {
				return say(msgNoPlayers)
			}
			return say("%s", strings.Join(players, "\n"))
		}
		return e.eventScores(args, func(a, b score) int { return cmp.Compare(a.name, b.name) })

	case CmdScores:
		if args == "" {
			return say(msgUsageScores)
		}
		return e.eventScores(args, func(a, b score) int {
			if c := cmp.Compare(b.points, a.points); c != 0 {
				return c
			}
			return cmp.Compare(a.name, b.name)
		})

	case CmdPlayer:
		if args == "" {
			return say(msgUsagePlayer)
		}
		return e.playerCard(args)

	case CmdHistory:
		if args == "" {
			return say(msgUsageHistory)
		}
		return e.history(ctx, args)
	}
	return say(msgUnknownCommand, name)
}

type score struct {
	name   string
	points int
}

func (e *Engine) eventScores(raw string, order func(a, b score) int) Reply {
	event, err := store.SanitizeEvent(raw)
	if err != nil {
		return say(msgInvalidEvent)
	}
	assoc, err := e.store.EventAssociations(event)
	if err != nil {
		return say(msgUnknownEvent, event)
	}
	scores := make([]score, 0, len(assoc))
	for p, pts := range assoc {
		scores = append(scores, score{name: p, points: pts})
	}
	slices.SortFunc(scores, order)

	lines := make([]string, 0, len(scores)+1)
	lines = append(lines, fmt.Sprintf("[%s]", event))
	for _, s := range scores {
		lines = append(lines, fmt.Sprintf(msgScoreLine, s.name, s.points))
	}
	return say("%s", strings.Join(lines, "\n"))
}

func (e *Engine) playerCard(raw string) Reply {
	player, err := store.SanitizePlayer(raw)
	if err != nil {
		return say(msgInvalidPlayer)
	}
	assoc, err := e.store.PlayerAssociations(player)
	if err != nil {
		return say(msgPlayerNotFound, player)
	}
	if len(assoc) == 0 {
		return say(msgNoInscriptions, player)
	}
	lines := make([]string, 0, len(assoc))
	for _, event := range slices.Sorted(maps.Keys(assoc)) {
		lines = append(lines, fmt.Sprintf(msgPlayerEventLine, event, assoc[event]))
	}
	return say("%s", strings.Join(lines, "\n"))
}

func (e *Engine) history(ctx context.Context, raw string) Reply {
	if !e.journal.Enabled() {
		return say(msgHistoryOff)
	}
	player, err := store.SanitizePlayer(raw)
	if err != nil {
		return say(msgInvalidPlayer)
	}
	entries, err := e.journal.Recent(ctx, player, historyLimit)
	if err != nil {
		logger.LogEvent(ctx, logger.JRNL, slog.LevelWarn, "journal.recent",
			slog.String("status", "fail"),
			slog.String("player", player),
			logger.Err(err),
		)
		return say(msgHistoryFailed)
	}
	if len(entries) == 0 {
		return say(msgHistoryEmpty, player)
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, formatEntry(entry))
	}
	return say("%s", strings.Join(lines, "\n"))
}

func formatEntry(e journal.Entry) string {
	ts := e.CreatedAt.UTC().Format("2006-01-02 15:04")
	switch e.Action {
	case journal.ActionPlayerAdded, journal.ActionPlayerRemoved:
		return fmt.Sprintf("%s %s", ts, e.Action)
	case journal.ActionAssociationRemoved:
		return fmt.Sprintf("%s %s [%s]", ts, e.Action, e.Event)
	}
	return fmt.Sprintf("%s %s [%s] %+d (total %d)", ts, e.Action, e.Event, e.Delta, e.Total)
}
