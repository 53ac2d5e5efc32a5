package helpers

import tele "gopkg.in/telebot.v4"

// SessionID picks the key dialogue sessions are stored under: the sender's
// user ID, or the chat ID for updates without a sender.
func SessionID(c tele.Context) int64 {
	if c == nil {
		return 0
	}
	m := MetaFrom(c)
	if m.UserID != 0 {
		return m.UserID
	}
	return m.ChatID
}
