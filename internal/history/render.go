package history

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjackforbots/cards"
)

// Printer writes records in a readable, coloured layout
type Printer struct {
	writer io.Writer
	games  int
	net    int64

	header, win, loss, push, dim, red, black lipgloss.Style
}

// NewPrinter creates a printer. Colour is dropped when writer is not a
// terminal.
func NewPrinter(writer io.Writer) *Printer {
	if writer == nil {
		writer = os.Stdout
	}
	r := lipgloss.NewRenderer(writer)
	return &Printer{
		writer: writer,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		win:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		loss:   r.NewStyle().Foreground(lipgloss.Color("1")),
		push:   r.NewStyle().Foreground(lipgloss.Color("3")),
		dim:    r.NewStyle().Faint(true),
		red:    r.NewStyle().Foreground(lipgloss.Color("1")),
		black:  r.NewStyle(),
	}
}

// Print renders one game
func (p *Printer) Print(rec Record) {
	p.games++
	p.net += rec.Net()

	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, p.header.Render(fmt.Sprintf("=== Game #%d (ID: %s) ===", p.games, rec.GameID)))
	fmt.Fprintf(p.writer, "Player: %s", rec.Player)
	if rec.Channel != "" {
		fmt.Fprintf(p.writer, "  Channel: %s", rec.Channel)
	}
	fmt.Fprintf(p.writer, "  Bet: %d\n", rec.Bet)

	fmt.Fprintf(p.writer, "Player: %s (%d)\n", p.cards(rec.PlayerCards), rec.PlayerTotal)
	fmt.Fprintf(p.writer, "Dealer: %s (%d)\n", p.cards(rec.DealerCards), rec.DealerTotal)
	if len(rec.Actions) > 0 {
		fmt.Fprintf(p.writer, "Actions: %s\n", strings.Join(rec.Actions, ", "))
	}

	result := fmt.Sprintf("%s %+d", strings.ToUpper(rec.Outcome), rec.Net())
	switch {
	case rec.Net() > 0:
		result = p.win.Render(result)
	case rec.Net() < 0:
		result = p.loss.Render(result)
	default:
		result = p.push.Render(result)
	}
	if rec.TimedOut {
		result += p.loss.Render(" (timed out)")
	}
	fmt.Fprintf(p.writer, "Result: %s  Balance: %d\n", result, rec.BalanceAfter)
	fmt.Fprintln(p.writer, p.dim.Render("────────────────────────────────────────"))
}

// Summary prints totals for everything printed so far
func (p *Printer) Summary() {
	fmt.Fprintln(p.writer)
	fmt.Fprintln(p.writer, p.header.Render("=== SUMMARY ==="))
	fmt.Fprintf(p.writer, "Games: %d  Net: %+d\n", p.games, p.net)
}

// cards colours compact card codes by suit. Unparseable codes are printed
// as they are.
func (p *Printer) cards(codes []string) string {
	out := make([]string, len(codes))
	for i, code := range codes {
		c, err := cards.ParseCard(code)
		switch {
		case err != nil:
			out[i] = code
		case c.Suit.IsRed():
			out[i] = p.red.Render(c.String())
		default:
			out[i] = p.black.Render(c.String())
		}
	}
	return "[" + strings.Join(out, " ") + "]"
}
