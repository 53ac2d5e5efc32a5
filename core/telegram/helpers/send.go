package helpers

import (
	"sync/atomic"

	"github.com/m3rciful/animbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalSender atomic.Pointer[sender.Sender]

// SetSender wires the retrying sender used by helper functions.
func SetSender(s *sender.Sender) {
	globalSender.Store(s)
}

func send(c tele.Context, action string, run func() error) error {
	s := globalSender.Load()
	if s == nil {
		return run()
	}
	return s.Do(BuildContext(c), action, run)
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return send(c, "send.text", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendWithMarkup sends raw text with the given reply markup attached.
func SendWithMarkup(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ReplyMarkup: markup})
}

// SendLines sends each line as its own message and attaches markup to the
// last one only.
func SendLines(c tele.Context, lines []string, markup *tele.ReplyMarkup) error {
	for i, line := range lines {
		var err error
		if i == len(lines)-1 && markup != nil {
			err = SendWithMarkup(c, line, markup)
		} else {
			err = SendText(c, line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
