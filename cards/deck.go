package cards

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// ErrEmptyDeck is returned when drawing from an exhausted deck
var ErrEmptyDeck = errors.New("cards: deck is empty")

// Deck is an ordered pile of cards consumed from the top. Drawn cards are
// never returned to the deck.
type Deck struct {
	cards [DeckSize]Card
	size  int
	next  int
}

// NewDeck creates a full 52-card deck shuffled with the given RNG
func NewDeck(rng *rand.Rand) *Deck {
	if rng == nil {
		panic("rng is required for deck creation")
	}

	d := &Deck{size: DeckSize}
	i := 0
	for suit := Spades; suit <= Diamonds; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}

	// Fisher-Yates
	for i := DeckSize - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d
}

// NewStackedDeck creates a deck whose top cards are the given cards in order,
// followed by the rest of the standard deck in a fixed order. Duplicate
// cards are rejected so the deck still holds exactly 52 distinct cards.
func NewStackedDeck(top ...Card) (*Deck, error) {
	if len(top) > DeckSize {
		return nil, fmt.Errorf("cards: %d cards exceed a single deck", len(top))
	}

	d := &Deck{size: DeckSize}
	seen := make(map[Card]bool, DeckSize)
	i := 0
	for _, c := range top {
		if !c.Valid() {
			return nil, fmt.Errorf("cards: invalid card %v", c)
		}
		if seen[c] {
			return nil, fmt.Errorf("cards: duplicate card %s", c)
		}
		seen[c] = true
		d.cards[i] = c
		i++
	}
	for suit := Spades; suit <= Diamonds; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := NewCard(rank, suit)
			if seen[c] {
				continue
			}
			d.cards[i] = c
			i++
		}
	}
	return d, nil
}

// Draw removes and returns the top card
func (d *Deck) Draw() (Card, error) {
	if d.next >= d.size {
		return Card{}, ErrEmptyDeck
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return d.size - d.next
}

// Peek returns the top card without removing it
func (d *Deck) Peek() (Card, bool) {
	if d.next >= d.size {
		return Card{}, false
	}
	return d.cards[d.next], true
}
