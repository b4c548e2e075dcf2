package main

import (
	"os"

	"github.com/lox/blackjackforbots/cmd/blackjackforbots/shared"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/server"
	"github.com/lox/blackjackforbots/internal/session"
	"github.com/lox/blackjackforbots/internal/tui"
	"github.com/rs/zerolog"
)

type PlayCmd struct {
	Player          string `env:"USER" help:"Player name (defaults to $USER)"`
	Bet             int64  `default:"10" help:"Starting bet"`
	MinBet          int64  `default:"1" help:"Minimum bet"`
	MaxBet          int64  `default:"0" help:"Maximum bet (0 = no limit)"`
	StartingBalance int64  `default:"1000" help:"Coins for a new player"`
	NaturalPayout   string `default:"1:1" help:"Winnings ratio for a player natural, e.g. 3:2"`
	WalletFile      string `help:"Keep your balance in this file between sessions"`
	HistoryFile     string `help:"Append game history to this TOML file"`
	Plain           bool   `help:"Disable colours"`
	Seed            *int64 `help:"Deterministic RNG seed (optional)"`
	LogLevel        string `default:"error" help:"Log level (debug|info|warn|error)"`
}

func (c *PlayCmd) Run() error {
	logger, err := shared.SetupClientLogger(c.LogLevel, "play")
	if err != nil {
		return err
	}
	payout, err := server.ParsePayout(c.NaturalPayout)
	if err != nil {
		return err
	}

	player := c.Player
	if player == "" {
		player = "player"
	}
	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}

	// the TUI owns the terminal, so server-side components stay quiet
	quiet := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	store, rec, err := openStorage(c.WalletFile, c.HistoryFile, c.StartingBalance, 1, quiet)
	if err != nil {
		return err
	}

	engine := blackjack.NewEngine(randutil.New(seed), blackjack.WithNaturalPayout(payout))
	service := session.NewService(engine, store,
		session.WithHistory(rec),
		session.WithBetLimits(c.MinBet, c.MaxBet),
	)
	defer func() {
		if err := service.Close(); err != nil {
			logger.Error("Failed to flush history", "error", err)
		}
	}()

	ctx, cancel := shared.SetupSignalHandler()
	defer cancel()

	return tui.Run(ctx, service, tui.Config{
		PlayerID: player,
		Channel:  "terminal",
		Bet:      c.Bet,
		Plain:    c.Plain,
		Logger:   logger,
	})
}
