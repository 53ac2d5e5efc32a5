package dialogue

import (
	"context"
	"maps"
	"slices"

	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/store"
)

func (e *Engine) stepRemove(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	switch s.Step {
	case StepRemoveConfirm:
		switch parseYesNo(input) {
		case answerYes:
			s.Step = StepRemoveScope
			return s, say(msgAskScope).with(OptionPlayer, OptionInscription), nil
		case answerNo:
			return done(), say(msgNothingRemoved), nil
		}
		return done(), say(msgInvalidReply), nil

	case StepRemoveScope:
		switch parseScope(input) {
		case scopePlayer:
			s.Step = StepRemovePlayer
		case scopeInscription:
			s.Step = StepRemoveEventPlayer
		default:
			return done(), say(msgInvalidReply), nil
		}
		return s, say(msgAskPlayer).with(limitOptions(e.store.Players())...), nil

	case StepRemovePlayer:
		return e.removePlayer(ctx, actor, s, input)
	case StepRemoveEventPlayer:
		return e.removeEventPlayer(s, input)
	case StepRemoveEvent:
		return e.removeEvent(ctx, actor, s, input)
	}
	return done(), say(msgInvalidReply), nil
}

func (e *Engine) removePlayer(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	player, err := store.SanitizePlayer(input)
	if err != nil {
		return s, say(msgInvalidPlayer), nil
	}
	err = e.store.RemovePlayer(player)
	switch {
	case store.IsNotFound(err):
		return done(), say(msgPlayerNotFound, player), nil
	case err != nil:
		return abort(err)
	}
	e.record(ctx, actor, journal.Entry{Action: journal.ActionPlayerRemoved, Player: player})
	return done(), say(msgPlayerRemoved, player), nil
}

func (e *Engine) removeEventPlayer(s Session, input string) (Session, Reply, error) {
	player, err := store.SanitizePlayer(input)
	if err != nil {
		return s, say(msgInvalidPlayer), nil
	}
	assoc, err := e.store.PlayerAssociations(player)
	switch {
	case store.IsNotFound(err):
		return done(), say(msgPlayerNotFound, player), nil
	case err != nil:
		return abort(err)
	case len(assoc) == 0:
		return done(), say(msgNoInscriptions, player), nil
	}
	s.Player = player
	s.Step = StepRemoveEvent
	return s, say(msgPickEventRemove, player).with(limitOptions(slices.Sorted(maps.Keys(assoc)))...), nil
}

func (e *Engine) removeEvent(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	event, err := store.SanitizeEvent(input)
	if err != nil {
		return s, say(msgInvalidEvent), nil
	}
	points, err := e.store.Points(s.Player, event)
	if err == nil {
		err = e.store.RemoveAssociation(s.Player, event)
	}
	switch {
	case store.IsNotFound(err):
		return done(), say(msgNotRegistered, s.Player, event), nil
	case err != nil:
		return abort(err)
	}
	e.record(ctx, actor, journal.Entry{
		Action: journal.ActionAssociationRemoved,
		Player: s.Player,
		Event:  event,
		Delta:  -points,
	})

	r := say(msgInscriptionGone, s.Player, event)
	if _, err := e.store.EventAssociations(event); store.IsNotFound(err) {
		r = r.then(msgEventGone, event)
	}
	return done(), r, nil
}
