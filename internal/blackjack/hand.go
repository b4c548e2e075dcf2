package blackjack

import (
	"strconv"

	"github.com/lox/blackjackforbots/cards"
)

const (
	// Target is the best possible hand total
	Target = 21
	// DealerStandsOn is the total at which the dealer stops drawing
	DealerStandsOn = 17

	softBonus = 10
)

// Value is the set of valid totals for a hand: the hard total (every ace
// counted as 1) and, when an ace can count 11 without busting, the soft
// total.
type Value struct {
	Hard    int
	Soft    int
	HasSoft bool
}

// Evaluate computes the value of a set of cards. It is recomputed from the
// cards on every call.
func Evaluate(cs []cards.Card) Value {
	hard := 0
	aces := 0
	for _, c := range cs {
		hard += c.Rank.Points()
		if c.IsAce() {
			aces++
		}
	}

	v := Value{Hard: hard}
	if aces > 0 && hard+softBonus <= Target {
		v.Soft = hard + softBonus
		v.HasSoft = true
	}
	return v
}

// Best returns the total used for settlement: the soft total when valid,
// otherwise the hard total (which is the minimal bust total when busted).
func (v Value) Best() int {
	if v.HasSoft {
		return v.Soft
	}
	return v.Hard
}

// Totals returns the valid totals in ascending order. It is never empty.
func (v Value) Totals() []int {
	if v.HasSoft {
		return []int{v.Hard, v.Soft}
	}
	return []int{v.Hard}
}

// IsBust reports whether every valid total exceeds 21
func (v Value) IsBust() bool {
	return v.Hard > Target
}

// IsSoft reports whether the best total counts an ace as 11
func (v Value) IsSoft() bool {
	return v.HasSoft
}

// String renders every valid total, e.g. "7 or 17" and "11 or 21"
func (v Value) String() string {
	if v.HasSoft {
		return strconv.Itoa(v.Hard) + " or " + strconv.Itoa(v.Soft)
	}
	return strconv.Itoa(v.Best())
}

// Hand is an ordered set of cards. Order only affects display.
type Hand []cards.Card

// Value returns the current value of the hand
func (h Hand) Value() Value {
	return Evaluate(h)
}

// IsBust reports whether the hand is over 21 on every total
func (h Hand) IsBust() bool {
	return Evaluate(h).IsBust()
}

// IsBlackjack reports whether the hand is a two-card 21
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && Evaluate(h).Best() == Target
}

// String returns the cards separated by spaces
func (h Hand) String() string {
	return cards.FormatCards(h)
}

func (h Hand) clone() Hand {
	out := make(Hand, len(h))
	copy(out, h)
	return out
}
