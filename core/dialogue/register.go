package dialogue

import (
	"context"

	"github.com/m3rciful/animbot/core/journal"
	"github.com/m3rciful/animbot/core/store"
)

func (e *Engine) stepRegister(ctx context.Context, actor int64, s Session, input string) (Session, Reply, error) {
	switch s.Step {
	case StepRegisterPlayer:
		player, err := store.SanitizePlayer(input)
		if err != nil {
			return s, say(msgInvalidPlayer), nil
		}
		created, err := e.store.AddPlayer(player)
		if err != nil {
			return abort(err)
		}
		r := say(msgPlayerExists, player)
		if created {
			e.record(ctx, actor, journal.Entry{Action: journal.ActionPlayerAdded, Player: player})
			r = say(msgPlayerCreated, player)
		}
		s.Player = player
		s.Step = StepRegisterConfirm
		return s, r.then(msgAskRegisterFor, player).with(OptionYes, OptionNo), nil

	case StepRegisterConfirm:
		switch parseYesNo(input) {
		case answerYes:
			s.Step = StepRegisterEvent
			return s, say(msgAskEvent).with(limitOptions(e.store.Events())...), nil
		case answerNo:
			return done(), say(msgRegisterDone), nil
		}
		return done(), say(msgInvalidReply), nil

	case StepRegisterEvent:
		event, err := store.SanitizeEvent(input)
		if err != nil {
			return s, say(msgInvalidEvent), nil
		}
		outcome, total, err := e.store.AddAssociation(s.Player, event, 0)
		if err != nil {
			return abort(err)
		}
		if outcome != store.Created {
			return done(), say(msgAlreadyIn, s.Player, event), nil
		}
		e.record(ctx, actor, journal.Entry{
			Action: journal.ActionAssociationAdded,
			Player: s.Player,
			Event:  event,
			Total:  total,
		})
		return done(), say(msgRegisteredFor, s.Player, event), nil
	}
	return done(), say(msgInvalidReply), nil
}
