package blackjack

import "errors"

// Errors the caller is expected to translate into a user-facing message.
// None of them change engine state.
var (
	ErrInvalidBet     = errors.New("blackjack: bet must be positive")
	ErrGameInProgress = errors.New("blackjack: player already has an active game")
	ErrNoActiveGame   = errors.New("blackjack: no active game")
	ErrUnknownAction  = errors.New("blackjack: unknown action")
)

// ErrEngineInvariant marks an internal bug such as drawing from an empty deck
// or losing track of a card. Callers must not settle a game that returned it.
var ErrEngineInvariant = errors.New("blackjack: engine invariant violated")
