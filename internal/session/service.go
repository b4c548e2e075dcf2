// Package session is the caller side of the blackjack engine: it stakes and
// settles games against a wallet and records what happened.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/history"
	"github.com/lox/blackjackforbots/internal/statistics"
	"github.com/lox/blackjackforbots/internal/wallet"
	"github.com/rs/zerolog"
)

// Wallet ledger reasons
const (
	ReasonBet    = "blackjack bet"
	ReasonPayout = "blackjack payout"
	ReasonRefund = "blackjack refund"
)

// ErrBetOutOfRange is returned when a bet is outside the table limits
var ErrBetOutOfRange = errors.New("session: bet out of range")

// Result is what transports send back after a start or an action
type Result struct {
	State *blackjack.GameState
	// Balance is the wallet balance after the bet or, for settled games,
	// after the payout.
	Balance int64
}

// Service ties an engine to a wallet, history and statistics.
type Service struct {
	engine  *blackjack.Engine
	wallet  wallet.Store
	history history.Recorder
	stats   *statistics.Collector
	logger  zerolog.Logger

	minBet int64
	maxBet int64

	mu      sync.Mutex
	actions map[string][]blackjack.Action
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With().Str("component", "session").Logger()
	}
}

// WithHistory records every settled game
func WithHistory(r history.Recorder) Option {
	return func(s *Service) {
		s.history = r
	}
}

// WithStatistics aggregates every settled game into c
func WithStatistics(c *statistics.Collector) Option {
	return func(s *Service) {
		s.stats = c
	}
}

// WithBetLimits sets the table limits. A zero max means no upper limit.
func WithBetLimits(minBet, maxBet int64) Option {
	return func(s *Service) {
		s.minBet = minBet
		s.maxBet = maxBet
	}
}

// NewService creates a service. Without options it keeps no history, counts
// statistics in a fresh collector and accepts any positive bet.
func NewService(engine *blackjack.Engine, store wallet.Store, opts ...Option) *Service {
	s := &Service{
		engine:  engine,
		wallet:  store,
		history: history.Nop{},
		stats:   statistics.NewCollector(),
		logger:  zerolog.Nop(),
		minBet:  1,
		actions: make(map[string][]blackjack.Action),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying engine
func (s *Service) Engine() *blackjack.Engine { return s.engine }

// Statistics returns the collector settled games are recorded into
func (s *Service) Statistics() *statistics.Collector { return s.stats }

// Limits returns the minimum and maximum bet
func (s *Service) Limits() (int64, int64) { return s.minBet, s.maxBet }

// Balance returns the player's wallet balance
func (s *Service) Balance(ctx context.Context, playerID string) (int64, error) {
	return s.wallet.Balance(ctx, playerID)
}

// Game returns the player's current game, if any
func (s *Service) Game(playerID string) (*blackjack.GameState, bool) {
	return s.engine.Game(playerID)
}

// Start debits the bet and deals a new game. If the deal settles the game
// on naturals it is paid out before returning.
func (s *Service) Start(ctx context.Context, playerID, channelID string, bet int64) (*Result, error) {
	if bet <= 0 {
		return nil, blackjack.ErrInvalidBet
	}
	if bet < s.minBet || (s.maxBet > 0 && bet > s.maxBet) {
		return nil, fmt.Errorf("%w: %d not in [%d, %s]", ErrBetOutOfRange, bet, s.minBet, s.maxLabel())
	}
	if _, ok := s.engine.Game(playerID); ok {
		return nil, blackjack.ErrGameInProgress
	}

	balance, err := s.wallet.Adjust(ctx, playerID, -bet, ReasonBet)
	if err != nil {
		return nil, err
	}

	state, err := s.engine.StartGame(bet, playerID, channelID)
	if err != nil {
		s.refund(ctx, playerID, bet)
		if errors.Is(err, blackjack.ErrEngineInvariant) {
			s.logger.Error().Err(err).Str("player", playerID).Msg("Engine invariant violated during deal")
		}
		return nil, err
	}

	s.mu.Lock()
	s.actions[playerID] = nil
	s.mu.Unlock()

	if state.Done() {
		return s.settle(ctx, state, false)
	}
	return &Result{State: state, Balance: balance}, nil
}

// Act applies one action. Settled games are paid out and removed from the
// engine before returning.
func (s *Service) Act(ctx context.Context, playerID string, action blackjack.Action) (*Result, error) {
	return s.act(ctx, playerID, action, false)
}

// Timeout surrenders a game whose player did not act in time
func (s *Service) Timeout(ctx context.Context, playerID string) (*Result, error) {
	s.logger.Info().Str("player", playerID).Msg("Player timed out, surrendering")
	return s.act(ctx, playerID, blackjack.Quit, true)
}

func (s *Service) act(ctx context.Context, playerID string, action blackjack.Action, timedOut bool) (*Result, error) {
	state, err := s.engine.PerformGameAction(playerID, action)
	if err != nil {
		if errors.Is(err, blackjack.ErrEngineInvariant) {
			s.abort(ctx, playerID, err)
		}
		return nil, err
	}

	s.mu.Lock()
	s.actions[playerID] = append(s.actions[playerID], action)
	s.mu.Unlock()

	if state.Done() {
		return s.settle(ctx, state, timedOut)
	}

	balance, err := s.wallet.Balance(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &Result{State: state, Balance: balance}, nil
}

// settle credits the payout, records the game and removes it from the
// engine. The game is removed even if the credit fails so the player is not
// stuck.
func (s *Service) settle(ctx context.Context, state *blackjack.GameState, timedOut bool) (*Result, error) {
	defer s.engine.EndGame(state.PlayerID)

	s.mu.Lock()
	actions := s.actions[state.PlayerID]
	delete(s.actions, state.PlayerID)
	s.mu.Unlock()

	var (
		balance int64
		err     error
	)
	if state.AmountWon > 0 {
		balance, err = s.wallet.Adjust(ctx, state.PlayerID, state.AmountWon, ReasonPayout)
	} else {
		balance, err = s.wallet.Balance(ctx, state.PlayerID)
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("game_id", state.ID).
			Str("player", state.PlayerID).
			Int64("amount_won", state.AmountWon).
			Msg("Failed to pay out game")
		return nil, fmt.Errorf("session: pay out %s: %w", state.ID, err)
	}

	s.stats.Record(state)

	rec := history.FromState(state, actions)
	rec.TimedOut = timedOut
	rec.BalanceAfter = balance
	if err := s.history.Record(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("game_id", state.ID).Msg("Failed to record game history")
	}

	s.logger.Debug().
		Str("game_id", state.ID).
		Str("player", state.PlayerID).
		Stringer("outcome", state.Outcome).
		Int64("net", state.Net()).
		Int64("balance", balance).
		Msg("Game paid out")

	return &Result{State: state, Balance: balance}, nil
}

// abort voids a game whose engine state is corrupt. Nothing is paid out;
// the stake is returned.
func (s *Service) abort(ctx context.Context, playerID string, cause error) {
	state, ok := s.engine.Game(playerID)
	s.engine.EndGame(playerID)

	s.mu.Lock()
	delete(s.actions, playerID)
	s.mu.Unlock()

	ev := s.logger.Error().Err(cause).Str("player", playerID)
	if ok {
		ev = ev.Str("game_id", state.ID)
	}
	ev.Msg("Engine invariant violated, aborting game")

	if ok {
		s.refund(ctx, playerID, state.Bet)
	}
}

func (s *Service) refund(ctx context.Context, playerID string, bet int64) {
	if _, err := s.wallet.Adjust(ctx, playerID, bet, ReasonRefund); err != nil {
		s.logger.Error().Err(err).Str("player", playerID).Int64("bet", bet).Msg("Failed to refund bet")
	}
}

// Close flushes the history recorder
func (s *Service) Close() error {
	return s.history.Close()
}

func (s *Service) maxLabel() string {
	if s.maxBet <= 0 {
		return "∞"
	}
	return fmt.Sprint(s.maxBet)
}
