package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Delimiter separates fields in the snapshot file.
const Delimiter = ','

// SanitizePlayer normalizes a player identifier: NFC form, no delimiter,
// no whitespace and no control characters anywhere in the value.
func SanitizePlayer(raw string) (string, error) {
	id := strings.Map(func(r rune) rune {
		if r == Delimiter || unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFC.String(raw))
	if id == "" {
		return "", &ValidationError{Field: KindPlayer, Value: raw, Reason: "empty after sanitizing"}
	}
	return id, nil
}

// SanitizeEvent normalizes an animation identifier: NFC form, delimiter and
// control characters removed, surrounding whitespace trimmed. Inner spaces stay.
func SanitizeEvent(raw string) (string, error) {
	id := strings.Map(func(r rune) rune {
		if r == Delimiter || unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFC.String(raw))
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &ValidationError{Field: KindEvent, Value: raw, Reason: "empty after sanitizing"}
	}
	return id, nil
}
