package blackjack

import (
	"math"
	"math/bits"
	"time"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/gameid"
	"github.com/rs/zerolog"
)

// Option configures an Engine during creation.
type Option func(*Engine)

// Payout is the bonus ratio paid on a winning natural, on top of the
// returned stake. The default 1:1 makes a natural pay like any other win.
type Payout struct {
	Num int64
	Den int64
}

// EvenMoney is the default natural payout
var EvenMoney = Payout{Num: 1, Den: 1}

// ThreeToTwo is the traditional casino natural payout
var ThreeToTwo = Payout{Num: 3, Den: 2}

// winnings returns the total returned for a winning bet, stake included.
// Fractions are rounded down. Bets must satisfy covers.
func (p Payout) winnings(bet int64) int64 {
	bonus, _ := p.bonus(bet)
	return bet + bonus
}

// bonus returns bet*Num/Den rounded down, computed in 128 bits. ok is false
// when the result does not fit in an int64.
func (p Payout) bonus(bet int64) (int64, bool) {
	hi, lo := bits.Mul64(uint64(bet), uint64(p.Num))
	if hi >= uint64(p.Den) {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, uint64(p.Den))
	if q > math.MaxInt64 {
		return 0, false
	}
	return int64(q), true
}

// covers reports whether every payout on bet fits in an int64: twice the
// bet for a plain win and the stake plus bonus for a natural.
func (p Payout) covers(bet int64) bool {
	if bet <= 0 || bet > math.MaxInt64/2 {
		return false
	}
	bonus, ok := p.bonus(bet)
	return ok && bonus <= math.MaxInt64-bet
}

// WithLogger sets the engine logger. Default is zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.With().Str("component", "blackjack").Logger()
	}
}

// WithDeckSource overrides how a fresh deck is produced for each game.
// The source must return a new, full deck on every call.
func WithDeckSource(fn func() *cards.Deck) Option {
	return func(e *Engine) {
		e.newDeck = fn
	}
}

// WithNaturalPayout sets the bonus ratio for a winning natural. Ratios with
// a non-positive part are ignored.
func WithNaturalPayout(p Payout) Option {
	return func(e *Engine) {
		if p.Num > 0 && p.Den > 0 {
			e.naturalPayout = p
		}
	}
}

// WithClock sets the time source used for game timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator sets the generator used for game IDs
func WithIDGenerator(g *gameid.Generator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}
