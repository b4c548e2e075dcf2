// Package blackjack implements the single-hand Blackjack engine.
//
// The main type is Engine, which owns a Registry of in-progress games keyed
// by player ID and drives each game through its stages in response to
// player actions.
//
// # Basic Usage
//
//	e := blackjack.NewEngine(randutil.New(randutil.Seed()))
//	state, err := e.StartGame(100, "alice", "table-1")
//	if err != nil {
//	    // ErrGameInProgress, ErrInvalidBet
//	}
//	for state.Stage == blackjack.StageInProgress {
//	    state, err = e.PerformGameAction("alice", blackjack.Stand)
//	}
//	payout := state.AmountWon
//	e.EndGame("alice")
//
// # Deterministic Testing
//
// Pass a fixed seed to randutil.New, or supply a pre-stacked deck with
// WithDeckSource:
//
//	deck, _ := cards.NewStackedDeck(cards.MustParseCards("As Kd 6c 5h")...)
//	e := blackjack.NewEngine(rng, blackjack.WithDeckSource(func() *cards.Deck { return deck }))
//
// # Settlement
//
// A win pays 2x the bet, a push returns the bet and a loss (including bust
// and surrender) returns nothing. A natural pays the same as any win unless
// WithNaturalPayout configures a bonus ratio such as 3:2.
package blackjack
