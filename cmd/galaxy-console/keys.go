package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Play       key.Binding
	Back       key.Binding
	Forward    key.Binding
	Start      key.Binding
	End        key.Binding
	Faster     key.Binding
	Slower     key.Binding
	View       key.Binding
	Energy     key.Binding
	EnergyDown key.Binding
	Positive   key.Binding
	Neutral    key.Binding
	Negative   key.Binding
	Sector     key.Binding
	AllSectors key.Binding
	Unpin      key.Binding
	Help       key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Play:       key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
	Back:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "back a day")),
	Forward:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "forward a day")),
	Start:      key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first day")),
	End:        key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "today")),
	Faster:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
	Slower:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
	View:       key.NewBinding(key.WithKeys("tab", "v"), key.WithHelp("tab", "view")),
	Energy:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e/E", "min energy ±10%")),
	EnergyDown: key.NewBinding(key.WithKeys("E")),
	Positive:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "positive")),
	Neutral:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "neutral")),
	Negative:   key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "negative")),
	Sector:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle pinned sector")),
	AllSectors: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all sectors")),
	Unpin:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "unpin")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Back, k.Forward, k.View, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Back, k.Forward, k.Start, k.End, k.Faster, k.Slower},
		{k.View, k.Energy, k.Positive, k.Neutral, k.Negative, k.Sector, k.AllSectors},
		{k.Unpin, k.Help, k.Quit},
	}
}
