// Package invite encodes and decodes the invitation tokens carried by
// /start deep links. A token is base64 of "<player> <secret>".
package invite

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MaxStartPayload is the longest start parameter Telegram accepts.
const MaxStartPayload = 64

var (
	// ErrMalformed is returned for tokens that are not base64 of "<player> <secret>".
	ErrMalformed = errors.New("invite: malformed token")
	// ErrSecret is returned when the token secret does not match.
	ErrSecret = errors.New("invite: secret mismatch")
	// ErrNoSecret is returned when no secret is configured.
	ErrNoSecret = errors.New("invite: secret not configured")
)

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// Encode builds the token for player. The result uses the URL-safe unpadded
// alphabet so it fits in a start parameter.
func Encode(player, secret string) (string, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return "", fmt.Errorf("%w: empty player", ErrMalformed)
	}
	if secret == "" {
		return "", ErrNoSecret
	}
	if strings.ContainsAny(secret, " \t\r\n") {
		return "", fmt.Errorf("%w: secret contains whitespace", ErrMalformed)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(player + " " + secret)), nil
}

// Decode validates token against secret and returns the player segment.
// Standard, URL-safe, padded and unpadded encodings are all accepted.
func Decode(token, secret string) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	raw, err := decodeAny(strings.TrimSpace(token))
	if err != nil {
		return "", err
	}

	idx := strings.LastIndexByte(raw, ' ')
	if idx <= 0 || idx == len(raw)-1 {
		return "", ErrMalformed
	}
	player := strings.TrimSpace(raw[:idx])
	got := raw[idx+1:]
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		return "", ErrSecret
	}
	if player == "" {
		return "", ErrMalformed
	}
	return player, nil
}

// Link returns the tg://resolve deep link opening bot with token as start payload.
func Link(botUsername, token string) (string, error) {
	bot := strings.TrimPrefix(strings.TrimSpace(botUsername), "@")
	if bot == "" {
		return "", errors.New("invite: bot username required")
	}
	if len(token) > MaxStartPayload {
		return "", fmt.Errorf("invite: token is %d characters, start payload allows %d", len(token), MaxStartPayload)
	}
	q := url.Values{}
	q.Set("domain", bot)
	q.Set("start", token)
	return "tg://resolve?" + q.Encode(), nil
}

func decodeAny(token string) (string, error) {
	if token == "" {
		return "", ErrMalformed
	}
	for _, enc := range encodings {
		if b, err := enc.DecodeString(token); err == nil {
			return string(b), nil
		}
	}
	return "", ErrMalformed
}
