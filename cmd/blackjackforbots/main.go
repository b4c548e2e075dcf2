package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the blackjack server"`
	Bot      BotCmd           `cmd:"" help:"Play games against a server with a built-in strategy"`
	Play     PlayCmd          `cmd:"" help:"Play interactively in the terminal against a local dealer"`
	Simulate SimulateCmd      `cmd:"" help:"Simulate many games in-process and report the results"`
	History  HistoryCmd       `cmd:"" help:"Work with game history files"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjackforbots"),
		kong.Description("Blackjack server and tools for bot-vs-dealer play"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
