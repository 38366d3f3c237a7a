package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every binding; each view shows only the subset it handles.
type keyMap struct {
	tracks  key.Binding
	back    key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		tracks:  key.NewBinding(key.WithKeys("enter", "t"), key.WithHelp("enter", "tracks")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run again")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) forView(v ViewState) []key.Binding {
	switch v {
	case ResultView:
		return []key.Binding{k.tracks, k.restart, k.quit}
	case TrackListView:
		return []key.Binding{k.back, k.quit}
	default:
		return []key.Binding{k.quit}
	}
}
