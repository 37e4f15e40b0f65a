package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"node.town/autolingo/etc"
	"node.town/autolingo/model"
)

// RenderHistory writes the saved sessions as a table, newest first.
func RenderHistory(w io.Writer, sessions []model.SavedSession, now time.Time) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Agent", "Customer", "Lines", "First line"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, s := range sessions {
		table.Append([]string{
			s.ID,
			etc.SessionDate(s.Date, now),
			speakerLabel(s.Speakers[0]),
			speakerLabel(s.Speakers[1]),
			fmt.Sprintf("%d", len(s.Transcript)),
			preview(s, 40),
		})
	}

	table.Render()
}

func speakerLabel(s model.Speaker) string {
	if s.Name == "" {
		return string(s.Language)
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Language)
}

func preview(s model.SavedSession, n int) string {
	if len(s.Transcript) == 0 {
		return ""
	}
	text := []rune(s.Transcript[0].Text)
	if len(text) > n {
		return string(text[:n-1]) + "…"
	}
	return string(text)
}

// ReviewText is the full transcript of a saved session with timestamps.
func ReviewText(s model.SavedSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ⇄ %s\n\n", speakerLabel(s.Speakers[0]), speakerLabel(s.Speakers[1]))
	for _, e := range s.Transcript {
		stamp := draftStyle.Render(etc.MillisToTime(e.CreatedAt).Format("15:04:05"))
		switch e.Origin {
		case model.Source:
			fmt.Fprintf(&b, "%s %s\n", stamp, sourceStyle.Render(e.Text))
		default:
			fmt.Fprintf(&b, "%s   → %s\n", stamp, targetStyle.Render(e.Text))
		}
	}
	return b.String()
}

// Pager scrolls a saved session's transcript.
type Pager struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

func NewPager(s model.SavedSession) Pager {
	return Pager{
		title:   "Session " + s.ID,
		content: ReviewText(s),
	}
}

func (p Pager) Init() tea.Cmd {
	return nil
}

func (p Pager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return p, tea.Quit
		}

	case tea.WindowSizeMsg:
		header := lipgloss.Height(p.headerView())
		if !p.ready {
			p.viewport = viewport.New(msg.Width, msg.Height-header-1)
			p.viewport.YPosition = header
			p.viewport.SetContent(p.content)
			p.ready = true
		} else {
			p.viewport.Width = msg.Width
			p.viewport.Height = msg.Height - header - 1
		}
	}

	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p Pager) View() string {
	if !p.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", p.headerView(), p.viewport.View(),
		draftStyle.Render(fmt.Sprintf("%3.f%%  q to quit", p.viewport.ScrollPercent()*100)))
}

func (p Pager) headerView() string {
	title := barStyle.Render(p.title)
	line := strings.Repeat("─", max(0, p.viewport.Width-lipgloss.Width(title)))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line)
}
