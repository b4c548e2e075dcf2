package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/protocol"
)

// Static styles for content elements
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	GameLogStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	HandLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	RedCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	BlackCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FAFAFA")).
			Bold(true)

	HiddenCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262"))

	activePaneStyle = paneStyle.
			BorderForeground(lipgloss.Color("#04B575"))
)

// formatCards renders cards with suit colours. With hideHole set every card
// after the first is drawn face down.
func formatCards(cs []cards.Card, hideHole bool) string {
	if len(cs) == 0 {
		return "[]"
	}

	formatted := make([]string, 0, len(cs))
	for i, c := range cs {
		switch {
		case hideHole && i > 0:
			formatted = append(formatted, HiddenCardStyle.Render(protocol.HiddenCard))
		case c.Suit.IsRed():
			formatted = append(formatted, RedCardStyle.Render(c.String()))
		default:
			formatted = append(formatted, BlackCardStyle.Render(c.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

// outcomeStyle picks the colour for a settled game's result line
func outcomeStyle(o blackjack.Outcome) lipgloss.Style {
	switch o {
	case blackjack.OutcomeWin, blackjack.OutcomeBlackjack:
		return SuccessStyle
	case blackjack.OutcomePush, blackjack.OutcomeSurrender:
		return WarningStyle
	case blackjack.OutcomeLoss, blackjack.OutcomeBust:
		return ErrorStyle
	default:
		return InfoStyle
	}
}
