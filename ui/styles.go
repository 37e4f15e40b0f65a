package ui

import (
	"github.com/charmbracelet/lipgloss"

	"node.town/autolingo/model"
	"node.town/autolingo/session"
)

var (
	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Bold(true)

	draftStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0C4FF"))
	targetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
)

func stateDot(s session.State) string {
	color := map[session.State]string{
		session.Connecting:   "#FFAA00",
		session.Connected:    "#25A065",
		session.Disconnected: "#FF5555",
		session.Ended:        "240",
	}[s]
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●") + " " + s.String()
}

// captionStyle sizes caption text. A terminal has one font size, so larger
// settings buy weight and breathing room instead.
func captionStyle(size model.TextSize, width int) lipgloss.Style {
	style := lipgloss.NewStyle().Width(max(10, width-4))
	switch size {
	case model.TextLarge:
		style = style.Bold(true).PaddingLeft(1)
	case model.TextHuge:
		style = style.Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065"))
	}
	return style
}
