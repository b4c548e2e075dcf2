package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Deal      key.Binding
	Hit       key.Binding
	Stand     key.Binding
	Surrender key.Binding
	BetUp     key.Binding
	BetDown   key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Deal: key.NewBinding(
			key.WithKeys("n", "enter"),
			key.WithHelp("n/enter", "deal"),
		),
		Hit: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "hit"),
		),
		Stand: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stand"),
		),
		Surrender: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "surrender"),
		),
		BetUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "raise bet"),
		),
		BetDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "lower bet"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "exit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Deal, k.Hit, k.Stand, k.Surrender, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Deal, k.BetUp, k.BetDown},
		{k.Hit, k.Stand, k.Surrender},
		{k.Help, k.Quit},
	}
}

// inGame toggles bindings so help only lists what can be pressed
func (k *keyMap) inGame(playing bool) {
	k.Hit.SetEnabled(playing)
	k.Stand.SetEnabled(playing)
	k.Surrender.SetEnabled(playing)
	k.Deal.SetEnabled(!playing)
	k.BetUp.SetEnabled(!playing)
	k.BetDown.SetEnabled(!playing)
}
