package dialogue

// Quick-reply labels.
const (
	OptionYes         = "Yes"
	OptionNo          = "No"
	OptionPlayer      = "Player"
	OptionInscription = "Inscription"
)

const (
	msgWelcome = "Welcome! This bot keeps the animation scoreboard."
	msgHelp    = `Commands:
/points [player] - enter points for a player
/register - register a player
/remove - remove a player or an inscription
/animations - list animations
/players [animation] - list players
/scores <animation> - animation scoreboard
/player <player> - a player's animations
/history <player> - recent changes for a player
/cancel - abort the current dialogue`

	msgAskPlayer         = "Please enter the player's username:"
	msgInvalidPlayer     = "That is not a valid username, please try again:"
	msgInvalidEvent      = "That is not a valid animation name, please try again:"
	msgInvalidPoints     = "Points must be a whole number, please try again:"
	msgPointsOutOfRange  = "That would push the total (%d) out of range, please enter another number:"
	msgInvalidReply      = "Invalid reply, nothing was changed."
	msgPickEvent         = "Please pick an animation for %s:"
	msgNewEventPrompt    = "%s has no animation yet. Please enter the animation name:"
	msgConfirmNewEvent   = "%s is not registered for [%s]. Register them? (yes/no)"
	msgRegisteredFor     = "Registered %s for [%s]."
	msgAskPoints         = "Please enter the points received by %s for [%s]:"
	msgPointsReport      = "[%s] %s - %dpts"
	msgAborted           = "Cancelled, nothing was changed."
	msgCancelled         = "Cancelled."
	msgNothingToCancel   = "Nothing to cancel."
	msgNoSession         = "Nothing in progress. Send /help for the list of commands."
	msgUnknownCommand    = "Unknown command /%s. Send /help for the list of commands."
	msgPersistFailed     = "The change could not be saved. Please tell the operator."
	msgInvalidInvitation = "This invitation link is not valid."
	msgInvitationsOff    = "Invitations are not enabled."

	msgPlayerCreated   = "Player %s created."
	msgPlayerExists    = "Player %s already exists."
	msgAskRegisterFor  = "Register %s for an animation? (yes/no)"
	msgAskEvent        = "Please enter the animation name:"
	msgAlreadyIn       = "%s is already registered for [%s]."
	msgRegisterDone    = "Done."
	msgConfirmRemove   = "This removes data permanently. Continue? (yes/no)"
	msgAskScope        = "Remove a whole player or a single inscription?"
	msgNothingRemoved  = "Nothing was removed."
	msgPlayerNotFound  = "Player %s not found."
	msgPlayerRemoved   = "Player %s removed."
	msgNoInscriptions  = "%s is not registered for any animation."
	msgPickEventRemove = "Which animation should %s be removed from?"
	msgNotRegistered   = "%s is not registered for [%s]."
	msgInscriptionGone = "%s removed from [%s]."
	msgEventGone       = "[%s] has no players left."

	msgNoAnimations    = "No animations yet."
	msgNoPlayers       = "No players yet."
	msgUnknownEvent    = "Unknown animation [%s]."
	msgUsageScores     = "Usage: /scores <animation>"
	msgUsagePlayer     = "Usage: /player <player>"
	msgUsageHistory    = "Usage: /history <player>"
	msgHistoryOff      = "History is not available: the journal is disabled."
	msgHistoryFailed   = "History is unavailable right now."
	msgHistoryEmpty    = "No recorded changes for %s."
	msgScoreLine       = "%s - %dpts"
	msgPlayerEventLine = "[%s] - %dpts"
)
