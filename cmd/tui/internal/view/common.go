package view

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommonModel carries the terminal geometry shared by every view.
type CommonModel struct {
	Width  int
	Height int
}

// SetSize records the latest terminal size so views can lay out against it.
func (m *CommonModel) SetSize(msg tea.WindowSizeMsg) {
	m.Width = msg.Width
	m.Height = msg.Height
}

// BackMsg asks the root model to return to the menu.
type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}
