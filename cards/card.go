// Package cards provides the playing card and deck model used by the
// blackjack engine.
package cards

import (
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit uint8

const (
	Spades Suit = iota
	Hearts
	Clubs
	Diamonds
)

// String returns the suit symbol
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	default:
		return "?"
	}
}

// Letter returns the single lowercase letter used in compact notation
func (s Suit) Letter() byte {
	switch s {
	case Spades:
		return 's'
	case Hearts:
		return 'h'
	case Clubs:
		return 'c'
	case Diamonds:
		return 'd'
	default:
		return '?'
	}
}

// IsRed returns true for Hearts and Diamonds
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank uint8

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the display form of the rank
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Points returns the hard blackjack value of the rank. Aces count 1 here;
// the hand calculator decides when one may count 11.
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 1
	case r >= Ten:
		return 10
	default:
		return int(r)
	}
}

// Card is an immutable playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the display form of the card (e.g. "A♠", "10♥")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Compact returns the two-character notation (e.g. "As", "Th")
func (c Card) Compact() string {
	r := c.Rank.String()
	if c.Rank == Ten {
		r = "T"
	}
	return r + string(c.Suit.Letter())
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// Valid reports whether the card has a known rank and suit
func (c Card) Valid() bool {
	return c.Rank >= Two && c.Rank <= Ace && c.Suit <= Diamonds
}

// ParseCard parses compact notation such as "As", "Th" or "10h"
func ParseCard(s string) (Card, error) {
	if len(s) < 2 || len(s) > 3 {
		return Card{}, fmt.Errorf("invalid card string: %q", s)
	}

	rankPart, suitPart := s[:len(s)-1], s[len(s)-1]

	var rank Rank
	switch strings.ToUpper(rankPart) {
	case "2":
		rank = Two
	case "3":
		rank = Three
	case "4":
		rank = Four
	case "5":
		rank = Five
	case "6":
		rank = Six
	case "7":
		rank = Seven
	case "8":
		rank = Eight
	case "9":
		rank = Nine
	case "T", "10":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	case "A":
		rank = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank: %q", rankPart)
	}

	var suit Suit
	switch suitPart {
	case 's', 'S':
		suit = Spades
	case 'h', 'H':
		suit = Hearts
	case 'c', 'C':
		suit = Clubs
	case 'd', 'D':
		suit = Diamonds
	default:
		return Card{}, fmt.Errorf("invalid suit: %c", suitPart)
	}

	return NewCard(rank, suit), nil
}

// ParseCards parses a whitespace separated list of cards ("As Kd 10h")
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseCards is ParseCards for fixtures; it panics on bad input
func MustParseCards(s string) []Card {
	cs, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cs
}

// FormatCards joins the display form of cards with spaces
func FormatCards(cs []Card) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
