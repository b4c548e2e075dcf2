package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lox/blackjackforbots/internal/history"
)

// HistoryCmd is the root command for history utilities.
type HistoryCmd struct {
	Render HistoryRenderCmd `cmd:"render" help:"Render a TOML history file game by game"`
}

// HistoryRenderCmd prints each recorded game.
type HistoryRenderCmd struct {
	File   string `arg:"" name:"file" help:"Path to history.toml"`
	Player string `help:"Only show games for this player"`
	Limit  int    `help:"Maximum number of games to render (0 = all)"`
}

func (cmd HistoryRenderCmd) Run() error {
	if cmd.File == "" {
		return errors.New("history render requires a file path")
	}

	records, err := history.ReadFile(cmd.File)
	if err != nil {
		return err
	}

	p := history.NewPrinter(os.Stdout)
	shown := 0
	for _, rec := range records {
		if cmd.Player != "" && rec.Player != cmd.Player {
			continue
		}
		if cmd.Limit > 0 && shown >= cmd.Limit {
			break
		}
		p.Print(rec)
		shown++
	}
	if shown == 0 {
		return fmt.Errorf("no games found in %s", cmd.File)
	}
	p.Summary()
	return nil
}
