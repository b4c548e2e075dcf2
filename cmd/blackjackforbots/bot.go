package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjackforbots/cmd/blackjackforbots/shared"
	"github.com/lox/blackjackforbots/internal/client"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/statistics"
)

type BotCmd struct {
	Strategy string `arg:"" default:"basic" enum:"basic,dealer,random" help:"Strategy (basic, dealer, random)"`
	Server   string `default:"ws://localhost:8080" env:"BLACKJACK_SERVER" help:"Server URL"`
	Player   string `default:"" help:"Player ID (defaults to <strategy>-bot-<pid>)"`
	Games    int    `default:"100" help:"Number of games to play"`
	Bet      int64  `default:"10" help:"Bet per game"`
	Seed     *int64 `help:"Seed for the random strategy"`
	LogLevel string `default:"info" help:"Log level (debug|info|warn|error)"`
}

func (c *BotCmd) Run() error {
	logger, err := shared.SetupClientLogger(c.LogLevel, "bot")
	if err != nil {
		return err
	}

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
	}
	strategy, err := client.NewStrategy(c.Strategy, randutil.New(seed))
	if err != nil {
		return err
	}

	player := c.Player
	if player == "" {
		player = fmt.Sprintf("%s-bot-%d", strategy.Name(), os.Getpid())
	}

	ctx, cancel := shared.SetupSignalHandler()
	defer cancel()

	cl, err := client.Dial(ctx, c.Server, player, logger)
	if err != nil {
		return err
	}
	defer cl.Close()

	stats, err := cl.Play(ctx, c.Games, c.Bet, strategy)
	if err != nil {
		return err
	}

	table, err := statsTable(map[string]statistics.Stats{player: stats}, stats)
	if err != nil {
		return err
	}
	fmt.Println(table)
	printSummary(os.Stdout, stats)
	return nil
}
