package simulator

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/statistics"
)

const dot = "●"

// DotsMonitor implements Monitor for minimal progress output.
// Shows a coloured dot per game: green for a win, red for a loss, gray for
// a push.
type DotsMonitor struct {
	writer    io.Writer
	mu        sync.Mutex
	dotCount  int
	lineWidth int

	win, loss, push string
}

// NewDotsMonitor creates a new dots monitor. Colour is dropped when writer
// is not a terminal.
func NewDotsMonitor(writer io.Writer) *DotsMonitor {
	if writer == nil {
		writer = os.Stdout
	}
	r := lipgloss.NewRenderer(writer)
	return &DotsMonitor{
		writer:    writer,
		lineWidth: 80,
		win:       r.NewStyle().Foreground(lipgloss.Color("2")).Render(dot),
		loss:      r.NewStyle().Foreground(lipgloss.Color("1")).Render(dot),
		push:      r.NewStyle().Foreground(lipgloss.Color("8")).Render(dot),
	}
}

// OnGame implements Monitor
func (d *DotsMonitor) OnGame(state *blackjack.GameState) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch net := state.Net(); {
	case net > 0:
		fmt.Fprint(d.writer, d.win)
	case net < 0:
		fmt.Fprint(d.writer, d.loss)
	default:
		fmt.Fprint(d.writer, d.push)
	}

	d.dotCount++
	if d.dotCount >= d.lineWidth {
		fmt.Fprintln(d.writer)
		d.dotCount = 0
	}
}

// OnComplete implements Monitor
func (d *DotsMonitor) OnComplete(total statistics.Stats) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dotCount > 0 {
		fmt.Fprintln(d.writer)
		d.dotCount = 0
	}
	fmt.Fprintf(d.writer, "\nCompleted %d games (net %+d)\n", total.Games, total.Net)
}
