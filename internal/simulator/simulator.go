// Package simulator plays many blackjack games in-process to measure a
// strategy's results.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/client"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/session"
	"github.com/lox/blackjackforbots/internal/statistics"
	"github.com/lox/blackjackforbots/internal/wallet"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for running simulations
type Config struct {
	Players  int
	Games    int // per player
	Bet      int64
	Strategy string
	Seed     int64

	NaturalPayout blackjack.Payout
	// StartingBalance defaults to enough coins to never run out
	StartingBalance int64

	// Shared runs every player against one engine. Results are then not
	// reproducible from the seed because players draw from one RNG.
	Shared bool

	Timeout time.Duration
	Logger  zerolog.Logger
	// Monitor, if set, sees every settled game. It is called from
	// several goroutines at once.
	Monitor Monitor
}

// Monitor observes a running simulation
type Monitor interface {
	OnGame(state *blackjack.GameState)
	OnComplete(total statistics.Stats)
}

func (c *Config) applyDefaults() {
	if c.Players <= 0 {
		c.Players = 1
	}
	if c.Bet <= 0 {
		c.Bet = 10
	}
	if c.Strategy == "" {
		c.Strategy = "basic"
	}
	if c.NaturalPayout == (blackjack.Payout{}) {
		c.NaturalPayout = blackjack.EvenMoney
	}
	if c.StartingBalance <= 0 {
		c.StartingBalance = c.Bet * int64(c.Games)
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
}

// Result is the outcome of a simulation
type Result struct {
	Config   Config
	Total    statistics.Stats
	Players  map[string]statistics.Stats
	Duration time.Duration
}

// GamesPerSecond returns the simulation throughput
func (r *Result) GamesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Total.Games) / r.Duration.Seconds()
}

// PlayerID names the n-th simulated player
func PlayerID(n int) string {
	return fmt.Sprintf("sim-%03d", n+1)
}

// Run plays cfg.Games games for each of cfg.Players concurrent players
func Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg.applyDefaults()
	if cfg.Games <= 0 {
		return nil, errors.New("simulator: games must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	logger := cfg.Logger.With().Str("component", "simulator").Logger()
	collector := statistics.NewCollector()
	store := wallet.NewMemoryStore(cfg.StartingBalance)

	newService := func(seed int64) *session.Service {
		engine := blackjack.NewEngine(randutil.New(seed),
			blackjack.WithNaturalPayout(cfg.NaturalPayout),
			blackjack.WithLogger(logger))
		return session.NewService(engine, store,
			session.WithStatistics(collector),
			session.WithLogger(logger))
	}

	var shared *session.Service
	if cfg.Shared {
		shared = newService(cfg.Seed)
	}

	logger.Info().
		Int("players", cfg.Players).
		Int("games", cfg.Games).
		Str("strategy", cfg.Strategy).
		Int64("seed", cfg.Seed).
		Bool("shared", cfg.Shared).
		Msg("Starting simulation")

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Players; w++ {
		workerSeed := randutil.Derive(cfg.Seed, w)
		g.Go(func() error {
			svc := shared
			if svc == nil {
				svc = newService(workerSeed)
			}
			strategy, err := client.NewStrategy(cfg.Strategy, randutil.New(workerSeed^1))
			if err != nil {
				return fmt.Errorf("simulator: %w", err)
			}
			return playWorker(ctx, svc, PlayerID(w), cfg, strategy)
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("simulator: timed out after %s: %w", cfg.Timeout, err)
		}
		return nil, err
	}

	res := &Result{
		Config:   cfg,
		Total:    collector.Total(),
		Players:  collector.All(),
		Duration: time.Since(start),
	}
	if err := res.Total.Validate(); err != nil {
		return nil, fmt.Errorf("simulator: statistics validation failed: %w", err)
	}
	if cfg.Monitor != nil {
		cfg.Monitor.OnComplete(res.Total)
	}

	logger.Info().
		Int("games", res.Total.Games).
		Int64("net", res.Total.Net).
		Float64("house_edge", res.Total.HouseEdge()).
		Dur("duration", res.Duration).
		Msg("Simulation complete")
	return res, nil
}

func playWorker(ctx context.Context, svc *session.Service, playerID string, cfg Config, strategy client.Strategy) error {
	for i := 0; i < cfg.Games; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := svc.Start(ctx, playerID, "simulator", cfg.Bet)
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s game %d: %w", playerID, i+1, err)
		}

		for !res.State.Done() {
			view := client.View{
				Player:   res.State.PlayerCards,
				DealerUp: res.State.DealerCards[0],
				Bet:      res.State.Bet,
			}
			res, err = svc.Act(ctx, playerID, strategy.Decide(view))
			if err != nil {
				return fmt.Errorf("%s game %d: %w", playerID, i+1, err)
			}
		}
		if cfg.Monitor != nil {
			cfg.Monitor.OnGame(res.State)
		}
	}
	return nil
}
