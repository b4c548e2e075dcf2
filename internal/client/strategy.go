package client

import (
	"fmt"
	rand "math/rand/v2"
	"sort"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
)

// View is what a player can see when deciding: their own cards and the
// dealer's face-up card.
type View struct {
	Player   blackjack.Hand
	DealerUp cards.Card
	Bet      int64
}

// Strategy decides the next action for a hand in progress
type Strategy interface {
	Name() string
	Decide(v View) blackjack.Action
}

// DealerMimic plays the dealer's fixed rule: hit below 17
type DealerMimic struct{}

func (DealerMimic) Name() string { return "dealer" }

func (DealerMimic) Decide(v View) blackjack.Action {
	if blackjack.DealerShouldHit(v.Player.Value()) {
		return blackjack.Hit
	}
	return blackjack.Stand
}

// Basic is basic strategy restricted to hitting and standing, for a game
// without doubles, splits or insurance.
type Basic struct{}

func (Basic) Name() string { return "basic" }

func (Basic) Decide(v View) blackjack.Action {
	value := v.Player.Value()
	total := value.Best()
	up := upcardValue(v.DealerUp)

	if value.IsSoft() {
		switch {
		case total >= 19:
			return blackjack.Stand
		case total == 18 && up <= 8:
			return blackjack.Stand
		default:
			return blackjack.Hit
		}
	}

	switch {
	case total >= 17:
		return blackjack.Stand
	case total >= 13:
		if up <= 6 {
			return blackjack.Stand
		}
		return blackjack.Hit
	case total == 12:
		if up >= 4 && up <= 6 {
			return blackjack.Stand
		}
		return blackjack.Hit
	default:
		return blackjack.Hit
	}
}

// upcardValue counts an ace as 11
func upcardValue(c cards.Card) int {
	if c.IsAce() {
		return 11
	}
	return c.Rank.Points()
}

// Random hits or stands with equal probability below 21
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a Random strategy. rng is required.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		panic("rng is required for the random strategy")
	}
	return &Random{rng: rng}
}

func (*Random) Name() string { return "random" }

func (r *Random) Decide(v View) blackjack.Action {
	if v.Player.Value().Best() >= blackjack.Target || r.rng.IntN(2) == 0 {
		return blackjack.Stand
	}
	return blackjack.Hit
}

var strategies = map[string]func(rng *rand.Rand) Strategy{
	"dealer": func(*rand.Rand) Strategy { return DealerMimic{} },
	"basic":  func(*rand.Rand) Strategy { return Basic{} },
	"random": func(rng *rand.Rand) Strategy { return NewRandom(rng) },
}

// NewStrategy returns the named strategy. rng is only used by "random".
func NewStrategy(name string, rng *rand.Rand) (Strategy, error) {
	build, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (want one of %v)", name, StrategyNames())
	}
	return build(rng), nil
}

// StrategyNames lists the available strategies
func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
