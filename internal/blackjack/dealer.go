package blackjack

import (
	"fmt"

	"github.com/lox/blackjackforbots/cards"
)

// DealerShouldHit reports whether the house rules require the dealer to
// draw on the given value. The dealer stands on every 17, soft or hard.
func DealerShouldHit(v Value) bool {
	return !v.IsBust() && v.Best() < DealerStandsOn
}

// PlayDealer draws cards for the dealer until the house rules say stand and
// returns the completed hand. A natural stands immediately.
func PlayDealer(hand Hand, deck *cards.Deck) (Hand, error) {
	for DealerShouldHit(hand.Value()) {
		c, err := deck.Draw()
		if err != nil {
			return hand, fmt.Errorf("%w: dealer draw: %w", ErrEngineInvariant, err)
		}
		hand = append(hand, c)
	}
	return hand, nil
}
