package visualizer

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	SwitchFocus key.Binding
	Models      key.Binding
	Up          key.Binding
	Down        key.Binding
	Left        key.Binding
	Right       key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	CopyText    key.Binding
	CopyIDs     key.Binding
	Dismiss     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		SwitchFocus: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "input/tokens")),
		Models:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "models")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Home:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		End:         key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		CopyText:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy token")),
		CopyIDs:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "copy ids")),
		Dismiss:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// inputKeys is shown while the text area has focus. Single-letter bindings
// are typed as text there.
type inputKeys struct{ k keyMap }

func (h inputKeys) ShortHelp() []key.Binding {
	return []key.Binding{h.k.SwitchFocus, h.k.Models, h.k.Dismiss, h.k.Quit}
}

func (h inputKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}

// ShortHelp implements help.KeyMap for the token grid.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchFocus, k.Models, k.CopyText, k.CopyIDs, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap for the token grid.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.PageUp, k.PageDown, k.Home, k.End},
		{k.CopyText, k.CopyIDs, k.Dismiss},
		{k.SwitchFocus, k.Models, k.Help, k.Quit},
	}
}
