package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit       key.Binding
	Auth         key.Binding
	Verify       key.Binding
	AttachFile   key.Binding
	DetachFile   key.Binding
	Model        key.Binding
	Copy         key.Binding
	History      key.Binding
	Billing      key.Binding
	Install      key.Binding
	Reload       key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
	Help         key.Binding
	Quit         key.Binding
	Cancel       key.Binding
	PickerUp     key.Binding
	PickerDown   key.Binding
	PickerSelect key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		Auth:         key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "login/logout")),
		Verify:       key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "open login page")),
		AttachFile:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "attach file")),
		DetachFile:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "detach file")),
		Model:        key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "model")),
		Copy:         key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		History:      key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "history")),
		Billing:      key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "usage")),
		Install:      key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "install copilot")),
		Reload:       key.NewBinding(key.WithKeys("f5"), key.WithHelp("f5", "reload")),
		ScrollUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Help:         key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "more keys")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Cancel:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		PickerUp:     key.NewBinding(key.WithKeys("up", "ctrl+k")),
		PickerDown:   key.NewBinding(key.WithKeys("down", "ctrl+j")),
		PickerSelect: key.NewBinding(key.WithKeys("enter")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Auth, k.AttachFile, k.Model, k.Copy, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Auth, k.Verify, k.Model},
		{k.AttachFile, k.DetachFile, k.Copy, k.History},
		{k.Billing, k.Install, k.Reload},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}
