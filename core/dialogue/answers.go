package dialogue

import "strings"

type answer int

const (
	answerInvalid answer = iota
	answerYes
	answerNo
)

func parseYesNo(text string) answer {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "oui", "o":
		return answerYes
	case "no", "n", "non":
		return answerNo
	}
	return answerInvalid
}

type scope int

const (
	scopeInvalid scope = iota
	scopePlayer
	scopeInscription
)

func parseScope(text string) scope {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "player", "joueur":
		return scopePlayer
	case "inscription", "registration":
		return scopeInscription
	}
	return scopeInvalid
}
