package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the dashboard keybindings.
type KeyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Tab       key.Binding
	Refresh   key.Binding
	Start     key.Binding
	Answer    key.Binding
	Stop      key.Binding
	Goal      key.Binding
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Toggle    key.Binding
	Edit      key.Binding
	Submit    key.Binding
	Dismiss   key.Binding
	Confirm   key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	ScrollEnd key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "execution/builder")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh status")),
		Start:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start workflow")),
		Answer:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "answer question")),
		Stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Goal:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "new AI session")),
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev question")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next question")),
		Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev option")),
		Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next option")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pick option")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "type answer")),
		Submit:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit round")),
		Dismiss:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel/clear")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		PageUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		ScrollEnd: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "follow")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Start, k.Answer, k.Goal, k.Stop, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Refresh, k.Start, k.Answer, k.Stop},
		{k.Goal, k.Up, k.Down, k.Left, k.Right},
		{k.Toggle, k.Edit, k.Submit, k.Dismiss},
		{k.PageUp, k.PageDown, k.ScrollEnd, k.Help, k.Quit},
	}
}
