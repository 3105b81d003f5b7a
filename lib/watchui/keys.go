// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package watchui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the watch view.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Process control.
	Restart key.Binding
	Pause   key.Binding

	// Buffer actions.
	Clear  key.Binding
	Filter key.Binding // Cycle the level filter.
	Search key.Binding
	Save   key.Binding
	Copy   key.Binding // Copy the selected line.

	// Prompt input.
	Confirm key.Binding
	Cancel  key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in binding set: vim-style j/k beside the
// arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "scroll down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("PgUp", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("PgDn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("Home", "oldest line"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("End", "follow new lines"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p", "pause"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear"),
	),
	Filter: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "level filter"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// shortcuts are the bindings listed in the status bar.
func (keys KeyMap) shortcuts() []key.Binding {
	return []key.Binding{keys.Restart, keys.Pause, keys.Search, keys.Save, keys.Copy, keys.Help, keys.Quit}
}

// helpBindings are the bindings listed in the help panel.
func (keys KeyMap) helpBindings() []key.Binding {
	return []key.Binding{
		keys.Up, keys.Down, keys.PageUp, keys.PageDown, keys.Home, keys.End,
		keys.Restart, keys.Pause, keys.Clear, keys.Filter, keys.Search,
		keys.Save, keys.Copy, keys.Help, keys.Quit,
	}
}
