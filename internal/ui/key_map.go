package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	next   key.Binding
	browse key.Binding
	enter  key.Binding
	back   key.Binding
	retry  key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:   key.NewBinding(key.WithKeys("n", "right", "l"), key.WithHelp("n/→", "next")),
		browse: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "browse")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "show")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		retry:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "sync again")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.browse, k.enter},
		{k.back, k.retry, k.quit},
	}
}
