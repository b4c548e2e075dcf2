package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lox/blackjackforbots/cmd/blackjackforbots/shared"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/server"
	"github.com/lox/blackjackforbots/internal/simulator"
	"github.com/pterm/pterm"
)

type SimulateCmd struct {
	Strategy        string        `arg:"" default:"basic" enum:"basic,dealer,random" help:"Strategy (basic, dealer, random)"`
	Players         int           `default:"4" help:"Concurrent players"`
	Games           int           `default:"10000" help:"Games per player"`
	Bet             int64         `default:"10" help:"Bet per game"`
	StartingBalance int64         `help:"Coins per player (default: enough to never run out)"`
	NaturalPayout   string        `default:"1:1" help:"Winnings ratio for a player natural, e.g. 3:2"`
	Shared          bool          `help:"Run every player against one engine (not reproducible)"`
	Seed            *int64        `help:"Deterministic RNG seed (optional)"`
	Timeout         time.Duration `default:"5m" help:"Give up after this long"`
	Dots            bool          `help:"Print a dot per game"`
	Debug           bool          `help:"Enable debug logging"`
}

func (c *SimulateCmd) Run() error {
	level := "warn"
	if c.Debug {
		level = "debug"
	}
	logger, err := shared.SetupLogger(level, false)
	if err != nil {
		return err
	}
	payout, err := server.ParsePayout(c.NaturalPayout)
	if err != nil {
		return err
	}

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}

	cfg := simulator.Config{
		Players:         c.Players,
		Games:           c.Games,
		Bet:             c.Bet,
		Strategy:        c.Strategy,
		Seed:            seed,
		NaturalPayout:   payout,
		StartingBalance: c.StartingBalance,
		Shared:          c.Shared,
		Timeout:         c.Timeout,
		Logger:          logger,
	}
	if c.Dots {
		cfg.Monitor = simulator.NewDotsMonitor(os.Stdout)
	}

	ctx, cancel := shared.SetupSignalHandler()
	defer cancel()

	var spinner *pterm.SpinnerPrinter
	if !c.Dots {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Simulating %d x %d games (%s)", c.Players, c.Games, c.Strategy))
	}
	res, err := simulator.Run(ctx, cfg)
	if spinner != nil {
		if err != nil {
			spinner.Fail(err.Error())
		} else {
			spinner.Success(fmt.Sprintf("%d games in %s (%.0f games/s)",
				res.Total.Games, res.Duration.Round(time.Millisecond), res.GamesPerSecond()))
		}
	}
	if err != nil {
		return err
	}

	table, err := statsTable(res.Players, res.Total)
	if err != nil {
		return err
	}
	fmt.Println(table)
	printSummary(os.Stdout, res.Total)
	fmt.Printf("Seed: %d\n", seed)
	return nil
}
