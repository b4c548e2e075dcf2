package blackjack

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/gameid"
	"github.com/rs/zerolog"
)

// game is the mutable state of one in-progress or finished game. It is only
// reachable through the registry and guarded by its own mutex, so actions
// for different players never contend.
type game struct {
	mu sync.Mutex

	id          string
	playerID    string
	channelID   string
	bet         int64
	deck        *cards.Deck
	player      Hand
	dealer      Hand
	phase       phase
	surrendered bool
	amountWon   int64
	outcome     Outcome
	startedAt   time.Time
	endedAt     time.Time
}

// Engine runs Blackjack games. Each Engine owns its registry; there is no
// package-level state.
type Engine struct {
	registry *Registry[*game]
	logger   zerolog.Logger

	rngMu   sync.Mutex
	rng     *rand.Rand
	newDeck func() *cards.Deck

	ids           *gameid.Generator
	naturalPayout Payout
	now           func() time.Time
}

// NewEngine creates an engine that shuffles decks with rng. The RNG is
// required to make randomness explicit and testing deterministic.
func NewEngine(rng *rand.Rand, opts ...Option) *Engine {
	if rng == nil {
		panic("rng is required for engine creation")
	}

	e := &Engine{
		registry:      NewRegistry[*game](),
		logger:        zerolog.Nop(),
		rng:           rng,
		ids:           gameid.NewGenerator(nil),
		naturalPayout: EvenMoney,
		now:           time.Now,
	}
	e.newDeck = e.shuffledDeck

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// shuffledDeck serialises access to the shared RNG, which is not safe for
// concurrent use.
func (e *Engine) shuffledDeck() *cards.Deck {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return cards.NewDeck(e.rng)
}

// StartGame creates, deals and registers a game for playerID. It fails with
// ErrGameInProgress if the player already has a game; the existing game is
// left untouched. If either hand is a natural the returned state is
// already settled.
func (e *Engine) StartGame(bet int64, playerID, channelID string) (*GameState, error) {
	if bet <= 0 {
		return nil, ErrInvalidBet
	}
	if !e.naturalPayout.covers(bet) {
		return nil, fmt.Errorf("%w: payout on %d overflows", ErrInvalidBet, bet)
	}

	g, err := e.registry.Create(playerID, func() (*game, error) {
		g := &game{
			id:        e.ids.Generate(),
			playerID:  playerID,
			channelID: channelID,
			bet:       bet,
			deck:      e.newDeck(),
			phase:     phasePlayerTurn,
			startedAt: e.now(),
		}
		if err := e.deal(g); err != nil {
			return nil, err
		}
		return g, nil
	})
	if err != nil {
		if !errors.Is(err, ErrGameInProgress) {
			e.logger.Error().Err(err).Str("player", playerID).Msg("Failed to start game")
		}
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e.logger.Debug().
		Str("game_id", g.id).
		Str("player", playerID).
		Str("channel", channelID).
		Int64("bet", bet).
		Str("player_cards", g.player.String()).
		Str("dealer_cards", g.dealer.String()).
		Msg("Game started")

	return g.snapshot(), nil
}

// deal gives two cards each in the order player, player, dealer, dealer and
// resolves naturals.
func (e *Engine) deal(g *game) error {
	for _, to := range []*Hand{&g.player, &g.player, &g.dealer, &g.dealer} {
		c, err := g.deck.Draw()
		if err != nil {
			return fmt.Errorf("%w: initial deal: %w", ErrEngineInvariant, err)
		}
		*to = append(*to, c)
	}
	if err := g.checkCards(); err != nil {
		return err
	}

	playerNatural := g.player.IsBlackjack()
	dealerNatural := g.dealer.IsBlackjack()
	switch {
	case playerNatural && dealerNatural:
		e.settle(g, OutcomePush, g.bet)
	case playerNatural:
		e.settle(g, OutcomeBlackjack, e.naturalPayout.winnings(g.bet))
	case dealerNatural:
		e.settle(g, OutcomeLoss, 0)
	}
	return nil
}

// PerformGameAction applies one player action. It returns ErrNoActiveGame
// when the player has no game or the game is already settled; both leave
// state untouched.
func (e *Engine) PerformGameAction(playerID string, action Action) (*GameState, error) {
	g, ok := e.registry.Get(playerID)
	if !ok {
		return nil, ErrNoActiveGame
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.phase {
	case phasePlayerTurn:
	case phaseDealerTurn, phaseSettled:
		return nil, ErrNoActiveGame
	default:
		return nil, fmt.Errorf("%w: unknown phase %d", ErrEngineInvariant, g.phase)
	}

	switch action {
	case Hit:
		c, err := g.deck.Draw()
		if err != nil {
			return nil, e.void(g, fmt.Errorf("%w: player draw: %w", ErrEngineInvariant, err))
		}
		g.player = append(g.player, c)
		if g.player.IsBust() {
			e.settle(g, OutcomeBust, 0)
		}

	case Stand:
		g.phase = phaseDealerTurn
		dealer, err := PlayDealer(g.dealer, g.deck)
		g.dealer = dealer
		if err != nil {
			return nil, e.void(g, err)
		}
		e.showdown(g)

	case Quit:
		g.surrendered = true
		e.settle(g, OutcomeSurrender, 0)

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}

	if err := g.checkCards(); err != nil {
		return nil, e.void(g, err)
	}

	e.logger.Debug().
		Str("game_id", g.id).
		Str("player", playerID).
		Stringer("action", action).
		Str("player_cards", g.player.String()).
		Stringer("stage", g.phase.stage()).
		Msg("Action applied")

	return g.snapshot(), nil
}

// showdown compares best totals after the dealer has played
func (e *Engine) showdown(g *game) {
	player := g.player.Value().Best()
	dealer := g.dealer.Value()

	switch {
	case dealer.IsBust():
		e.settle(g, OutcomeWin, 2*g.bet)
	case player > dealer.Best():
		e.settle(g, OutcomeWin, 2*g.bet)
	case player == dealer.Best():
		e.settle(g, OutcomePush, g.bet)
	default:
		e.settle(g, OutcomeLoss, 0)
	}
}

func (e *Engine) settle(g *game, outcome Outcome, amountWon int64) {
	g.phase = phaseSettled
	g.outcome = outcome
	g.amountWon = amountWon
	g.endedAt = e.now()

	e.logger.Info().
		Str("game_id", g.id).
		Str("player", g.playerID).
		Int64("bet", g.bet).
		Int64("amount_won", amountWon).
		Stringer("outcome", outcome).
		Str("player_cards", g.player.String()).
		Str("dealer_cards", g.dealer.String()).
		Msg("Game settled")
}

// void closes a game the engine can no longer trust. The game is DONE with
// no outcome and nothing won; callers refund the bet and end it.
func (e *Engine) void(g *game, err error) error {
	g.phase = phaseSettled
	g.outcome = OutcomePending
	g.amountWon = 0
	g.endedAt = e.now()

	e.logger.Error().Err(err).
		Str("game_id", g.id).
		Str("player", g.playerID).
		Int64("bet", g.bet).
		Msg("Game voided")
	return err
}

// EndGame removes the player's game from the registry. It does not check
// that the game is settled; callers end a game once they have paid it out.
func (e *Engine) EndGame(playerID string) {
	if e.registry.Delete(playerID) {
		e.logger.Debug().Str("player", playerID).Msg("Game ended")
	}
}

// Game returns a snapshot of the player's current game
func (e *Engine) Game(playerID string) (*GameState, bool) {
	g, ok := e.registry.Get(playerID)
	if !ok {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot(), true
}

// ActiveGames returns the number of registered games
func (e *Engine) ActiveGames() int {
	return e.registry.Len()
}

// Players returns the IDs of players with a registered game
func (e *Engine) Players() []string {
	return e.registry.Players()
}

// checkCards verifies that no card has been lost or duplicated
func (g *game) checkCards() error {
	if total := g.deck.Remaining() + len(g.player) + len(g.dealer); total != cards.DeckSize {
		return fmt.Errorf("%w: %d cards accounted for, want %d", ErrEngineInvariant, total, cards.DeckSize)
	}
	return nil
}

func (g *game) snapshot() *GameState {
	return &GameState{
		ID:             g.id,
		PlayerID:       g.playerID,
		ChannelID:      g.channelID,
		Bet:            g.bet,
		PlayerCards:    g.player.clone(),
		DealerCards:    g.dealer.clone(),
		CardsRemaining: g.deck.Remaining(),
		Stage:          g.phase.stage(),
		Surrendered:    g.surrendered,
		AmountWon:      g.amountWon,
		Outcome:        g.outcome,
		StartedAt:      g.startedAt,
		EndedAt:        g.endedAt,
	}
}
