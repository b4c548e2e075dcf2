// Package tui is an interactive terminal table for playing blackjack
// against a local engine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/session"
	"github.com/lox/blackjackforbots/internal/wallet"
	"github.com/muesli/termenv"
)

const sidebarWidth = 26

// Config holds the settings for a TUI session
type Config struct {
	PlayerID string
	Channel  string
	Bet      int64
	// BetStep is how much +/- changes the bet. Defaults to the table minimum.
	BetStep int64
	// Plain disables colours
	Plain  bool
	Logger *log.Logger
}

// Model is the Bubble Tea model for a single player's table
type Model struct {
	ctx     context.Context
	service *session.Service
	logger  *log.Logger
	cfg     Config

	keys    keyMap
	help    help.Model
	logView viewport.Model

	state   *blackjack.GameState
	balance int64
	bet     int64
	minBet  int64
	maxBet  int64

	gameLog  []string
	status   string
	quitting bool

	width  int
	height int
}

// NewModel creates a model bound to service. The player's balance is read
// up front so the first frame can show it.
func NewModel(ctx context.Context, service *session.Service, cfg Config) (*Model, error) {
	if cfg.PlayerID == "" {
		return nil, errors.New("tui: player id is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	minBet, maxBet := service.Limits()
	if cfg.BetStep <= 0 {
		cfg.BetStep = minBet
	}

	balance, err := service.Balance(ctx, cfg.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("tui: read balance: %w", err)
	}

	m := &Model{
		ctx:     ctx,
		service: service,
		logger:  cfg.Logger.WithPrefix("tui"),
		cfg:     cfg,
		keys:    defaultKeyMap(),
		help:    help.New(),
		logView: viewport.New(10, 5),
		balance: balance,
		minBet:  minBet,
		maxBet:  maxBet,
	}
	m.bet = m.clampBet(cfg.Bet)
	m.keys.inGame(false)

	// pick up a game left running by an earlier session
	if state, ok := service.Game(cfg.PlayerID); ok {
		m.state = state
		m.keys.inGame(true)
		m.addLog(InfoStyle.Render("Resuming game " + state.ID))
	}
	return m, nil
}

// Run starts the program and blocks until the player exits
func Run(ctx context.Context, service *session.Service, cfg Config) error {
	if cfg.Plain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	m, err := NewModel(ctx, service, cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.leave()
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
		case key.Matches(msg, m.keys.Deal):
			m.deal()
		case key.Matches(msg, m.keys.Hit):
			m.act(blackjack.Hit)
		case key.Matches(msg, m.keys.Stand):
			m.act(blackjack.Stand)
		case key.Matches(msg, m.keys.Surrender):
			m.act(blackjack.Quit)
		case key.Matches(msg, m.keys.BetUp):
			m.bet = m.clampBet(m.bet + m.cfg.BetStep)
		case key.Matches(msg, m.keys.BetDown):
			m.bet = m.clampBet(m.bet - m.cfg.BetStep)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *Model) playing() bool {
	return m.state != nil && !m.state.Done()
}

func (m *Model) deal() {
	if m.playing() {
		return
	}

	res, err := m.service.Start(m.ctx, m.cfg.PlayerID, m.cfg.Channel, m.bet)
	if err != nil {
		m.fail("deal", err)
		return
	}
	m.apply(res)
	m.addLog(fmt.Sprintf("Bet %d. You %s, dealer %s",
		m.state.Bet,
		formatCards(m.state.PlayerCards, false),
		formatCards(m.state.DealerCards, !m.state.Done())))
	m.afterResult()
}

func (m *Model) act(action blackjack.Action) {
	if !m.playing() {
		return
	}

	res, err := m.service.Act(m.ctx, m.cfg.PlayerID, action)
	if err != nil {
		m.fail(action.String(), err)
		return
	}
	m.apply(res)

	switch action {
	case blackjack.Hit:
		drawn := m.state.PlayerCards[len(m.state.PlayerCards)-1:]
		m.addLog(fmt.Sprintf("You hit %s (%s)", formatCards(drawn, false), m.state.PlayerValue()))
	case blackjack.Stand:
		m.addLog(fmt.Sprintf("You stand on %d", m.state.PlayerValue().Best()))
	case blackjack.Quit:
		m.addLog("You surrender")
	}
	m.afterResult()
}

// leave surrenders any running game so the stake is settled before exit
func (m *Model) leave() {
	if !m.playing() {
		return
	}
	if _, err := m.service.Act(m.ctx, m.cfg.PlayerID, blackjack.Quit); err != nil {
		m.logger.Warn("Failed to surrender on exit", "error", err)
	}
}

func (m *Model) apply(res *session.Result) {
	m.state = res.State
	m.balance = res.Balance
	m.status = ""
	m.keys.inGame(m.playing())
}

func (m *Model) afterResult() {
	if !m.state.Done() {
		return
	}

	s := m.state
	line := fmt.Sprintf("Dealer %s (%d). %s, net %+d, balance %d",
		formatCards(s.DealerCards, false),
		s.DealerValue().Best(),
		strings.ToUpper(s.Outcome.String()),
		s.Net(),
		m.balance)
	m.addLog(outcomeStyle(s.Outcome).Render(line))
	m.logger.Debug("Game settled", "game_id", s.ID, "outcome", s.Outcome, "net", s.Net())

	if m.balance < m.minBet {
		m.status = ErrorStyle.Render("Out of coins")
		m.keys.Deal.SetEnabled(false)
		return
	}
	m.bet = m.clampBet(m.bet)
}

func (m *Model) fail(op string, err error) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		m.status = ErrorStyle.Render(fmt.Sprintf("Not enough coins for a bet of %d", m.bet))
	case errors.Is(err, session.ErrBetOutOfRange):
		m.status = ErrorStyle.Render("Bet outside table limits")
	case errors.Is(err, blackjack.ErrEngineInvariant):
		m.status = ErrorStyle.Render("Game voided, bet refunded")
		m.state = nil
		m.keys.inGame(false)
		m.refreshBalance()
	default:
		m.status = ErrorStyle.Render(err.Error())
	}
	m.logger.Warn("Action failed", "op", op, "error", err)
}

func (m *Model) refreshBalance() {
	if b, err := m.service.Balance(m.ctx, m.cfg.PlayerID); err == nil {
		m.balance = b
	}
}

// clampBet keeps a bet inside the table limits and the player's balance
func (m *Model) clampBet(bet int64) int64 {
	if m.maxBet > 0 && bet > m.maxBet {
		bet = m.maxBet
	}
	if bet > m.balance {
		bet = m.balance
	}
	if bet < m.minBet {
		bet = m.minBet
	}
	return bet
}

func (m *Model) addLog(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logView.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logView.Height > 0 && m.logView.Width > 0 {
		m.logView.GotoBottom()
	}
}

// Log returns the game log lines
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	tableHeight := lipgloss.Height(m.renderTable())
	helpHeight := lipgloss.Height(m.help.View(m.keys))

	w := m.width - sidebarWidth - 4
	h := m.height - tableHeight - helpHeight - 5
	m.logView.Width = max(w, 1)
	m.logView.Height = max(h, 1)
	m.logView.GotoBottom()
}

// View implements tea.Model
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	table := activePaneStyle.Width(m.width - 2).Render(m.renderTable())
	logPane := paneStyle.
		Width(m.logView.Width).
		Height(m.logView.Height).
		Render(GameLogStyle.Render(m.logView.View()))
	sidebar := paneStyle.
		Width(sidebarWidth).
		Height(m.logView.Height).
		Render(m.renderSidebar())

	return lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Render("Blackjack for Bots"),
		table,
		lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebar),
		m.help.View(m.keys),
	)
}

func (m *Model) renderTable() string {
	var b strings.Builder
	if m.state == nil {
		b.WriteString(InfoStyle.Render("Press n to deal"))
		if m.status != "" {
			b.WriteString("\n" + m.status)
		}
		return b.String()
	}

	s := m.state
	hidden := !s.Done()
	dealerTotal := s.DealerValue().String()
	if hidden {
		dealerTotal = blackjack.Evaluate(s.DealerCards[:1]).String()
	}
	fmt.Fprintf(&b, "%s %s %s\n", HandLabelStyle.Render("Dealer"), formatCards(s.DealerCards, hidden), InfoStyle.Render(dealerTotal))
	fmt.Fprintf(&b, "%s    %s %s", HandLabelStyle.Render("You"), formatCards(s.PlayerCards, false), InfoStyle.Render(s.PlayerValue().String()))

	if s.Done() {
		fmt.Fprintf(&b, "\n%s", outcomeStyle(s.Outcome).Render(fmt.Sprintf("%s  %+d", strings.ToUpper(s.Outcome.String()), s.Net())))
	}
	if m.status != "" {
		b.WriteString("\n" + m.status)
	}
	return b.String()
}

func (m *Model) renderSidebar() string {
	lines := []string{
		HandLabelStyle.Render(m.cfg.PlayerID),
		fmt.Sprintf("Balance: %d", m.balance),
		fmt.Sprintf("Bet:     %d", m.bet),
	}
	if m.maxBet > 0 {
		lines = append(lines, InfoStyle.Render(fmt.Sprintf("Limits %d-%d", m.minBet, m.maxBet)))
	} else {
		lines = append(lines, InfoStyle.Render(fmt.Sprintf("Min bet %d", m.minBet)))
	}

	if st, ok := m.service.Statistics().Player(m.cfg.PlayerID); ok {
		lines = append(lines,
			"",
			fmt.Sprintf("Games:   %d", st.Games),
			fmt.Sprintf("Won:     %d", st.Wins),
			fmt.Sprintf("Pushed:  %d", st.Pushes),
			fmt.Sprintf("Net:     %+d", st.Net),
		)
	}
	return strings.Join(lines, "\n")
}
