package dialogue

import (
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/m3rciful/animbot/core/invite"
	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/store"
)

func (e *Engine) stepPoints(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	switch s.Step {
	case StepPointsPlayer:
		return e.pointsPlayer(s, input)
	case StepPointsEvent:
		return e.pointsEvent(ctx, actor, s, input)
	case StepPointsConfirmNew:
		switch parseYesNo(input) {
		case answerYes:
			return e.pointsRegister(ctx, actor, s)
		case answerNo:
			return done(), say(msgAborted), nil
		}
		return done(), say(msgInvalidReply), nil
	case StepPointsValue:
		return e.pointsValue(ctx, actor, s, input)
	}
	return done(), say(msgInvalidReply), nil
}

// pointsPlayer resolves the player. Their current animations become quick
// choices; a player without any is asked to name a new one.
func (e *Engine) pointsPlayer(s Session, input string) (Session, Reply, error) {
	player, err := store.SanitizePlayer(input)
	if err != nil {
		return s, say(msgInvalidPlayer), nil
	}
	assoc, err := e.store.PlayerAssociations(player)
	if err != nil && !store.IsNotFound(err) {
		return abort(err)
	}

	s.Player = player
	s.Step = StepPointsEvent
	s.HadEvents = len(assoc) > 0
	if s.HadEvents {
		return s, say(msgPickEvent, player).with(limitOptions(slices.Sorted(maps.Keys(assoc)))...), nil
	}
	return s, say(msgNewEventPrompt, player).with(limitOptions(e.store.Events())...), nil
}

// pointsEvent accepts a chosen or typed animation. A name the player is not
// registered for needs confirmation only when they already had animations.
func (e *Engine) pointsEvent(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	event, err := store.SanitizeEvent(input)
	if err != nil {
		return s, say(msgInvalidEvent), nil
	}
	s.Event = event
	if !s.HadEvents {
		return e.pointsRegister(ctx, actor, s)
	}

	_, err = e.store.Points(s.Player, event)
	switch {
	case err == nil:
		s.Step = StepPointsValue
		return s, say(msgAskPoints, s.Player, event), nil
	case store.IsNotFound(err):
		s.Step = StepPointsConfirmNew
		return s, say(msgConfirmNewEvent, s.Player, event).with(OptionYes, OptionNo), nil
	}
	return abort(err)
}

func (e *Engine) pointsRegister(ctx context.Context, actor int64, s Session) (Session, Reply, error) {
	outcome, total, err := e.store.AddAssociation(s.Player, s.Event, 0)
	if err != nil {
		return abort(err)
	}
	if outcome == store.Created {
		e.record(ctx, actor, journal.Entry{
			Action: journal.ActionAssociationAdded,
			Player: s.Player,
			Event:  s.Event,
			Total:  total,
		})
	}
	s.Step = StepPointsValue
	return s, say(msgRegisteredFor, s.Player, s.Event).then(msgAskPoints, s.Player, s.Event), nil
}

func (e *Engine) pointsValue(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	points, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return s, say(msgInvalidPoints), nil
	}
	outcome, total, err := e.store.AddAssociation(s.Player, s.Event, points)
	if store.IsValidation(err) {
		return s, say(msgPointsOutOfRange, total), nil
	}
	if err != nil {
		return abort(err)
	}
	if outcome != store.Unchanged {
		action := journal.ActionPointsAdded
		if outcome == store.Created {
			action = journal.ActionAssociationAdded
		}
		e.record(ctx, actor, journal.Entry{
			Action: action,
			Player: s.Player,
			Event:  s.Event,
			Delta:  points,
			Total:  total,
		})
	}
	return done(), say(msgPointsReport, s.Event, s.Player, total), nil
}

// decodeInvitation returns the sanitized player carried by a /start token.
func decodeInvitation(token, secret string) (string, error) {
	raw, err := invite.Decode(token, secret)
	if err != nil {
		return "", err
	}
	return store.SanitizePlayer(raw)
}
