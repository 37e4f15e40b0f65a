// Package ui holds the terminal screens: the live caption view, the
// speaker setup form and the session history.
package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"node.town/autolingo/model"
	"node.town/autolingo/session"
)

// Controller is the slice of a live session the view drives.
type Controller interface {
	SetMuted(muted bool)
	Muted() bool
	SetTTSEnabled(enabled bool) model.Settings
	SetVolume(volume float64) model.Settings
	SetTextSize(size model.TextSize) model.Settings
	Settings() model.Settings
}

type (
	LevelMsg     float64
	CaptionMsg   struct{ Source, Target string }
	CommittedMsg []model.TranscriptEntry
	StateMsg     session.State
)

// Bridge turns session callbacks into bubbletea messages. It never blocks.
// Levels and live captions are dropped when the view falls behind, since
// the next one replaces them; committed lines and state changes are held
// until the view takes them.
type Bridge struct {
	msgs   chan tea.Msg
	notify chan struct{}

	mu      sync.Mutex
	pending []model.TranscriptEntry
	state   *session.State
}

func NewBridge() *Bridge {
	return &Bridge{
		msgs:   make(chan tea.Msg, 256),
		notify: make(chan struct{}, 1),
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	default:
	}
}

func (b *Bridge) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *Bridge) Level(level float64)           { b.send(LevelMsg(level)) }
func (b *Bridge) Caption(source, target string) { b.send(CaptionMsg{source, target}) }

func (b *Bridge) Committed(entries []model.TranscriptEntry) {
	b.mu.Lock()
	b.pending = append(b.pending, entries...)
	b.mu.Unlock()
	b.wake()
}

func (b *Bridge) StateChanged(state session.State) {
	b.mu.Lock()
	b.state = &state
	b.mu.Unlock()
	b.wake()
}

// held returns committed lines first, then the latest state.
func (b *Bridge) held() (tea.Msg, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) > 0 {
		entries := b.pending
		b.pending = nil
		return CommittedMsg(entries), true
	}
	if b.state != nil {
		state := *b.state
		b.state = nil
		return StateMsg(state), true
	}
	return nil, false
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			if msg, ok := b.held(); ok {
				return msg
			}
			select {
			case msg := <-b.msgs:
				return msg
			case <-b.notify:
			}
		}
	}
}

const volumeStep = 0.1

type LiveModel struct {
	ctl      Controller
	bridge   *Bridge
	speakers [2]model.Speaker

	// OnSettings is called after every settings change, for persistence.
	OnSettings func(model.Settings)

	viewport   viewport.Model
	ready      bool
	width      int
	state      session.State
	level      float64
	transcript []model.TranscriptEntry
	source     string
	target     string
}

func NewLiveModel(ctl Controller, bridge *Bridge, speakers [2]model.Speaker) LiveModel {
	return LiveModel{
		ctl:      ctl,
		bridge:   bridge,
		speakers: speakers,
		state:    session.Connected,
		width:    80,
	}
}

func (m LiveModel) Init() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	return m.bridge.wait()
}

func (m LiveModel) changed(s model.Settings) {
	if m.OnSettings != nil {
		m.OnSettings(s)
	}
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "e", "esc":
			return m, tea.Quit
		case "m":
			m.ctl.SetMuted(!m.ctl.Muted())
		case "t":
			m.changed(m.ctl.SetTTSEnabled(!m.ctl.Settings().TTSEnabled))
		case "+", "=":
			m.changed(m.ctl.SetVolume(m.ctl.Settings().Volume + volumeStep))
		case "-", "_":
			m.changed(m.ctl.SetVolume(m.ctl.Settings().Volume - volumeStep))
		case "s":
			m.changed(m.ctl.SetTextSize(m.ctl.Settings().TextSize.Next()))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.captionsView()) - lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(3, height))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(3, height)
		}
		m.viewport.SetContent(m.transcriptView())

	case LevelMsg:
		m.level = float64(msg)
		cmds = append(cmds, m.bridge.wait())

	case CaptionMsg:
		m.source, m.target = msg.Source, msg.Target
		cmds = append(cmds, m.bridge.wait())

	case CommittedMsg:
		m.transcript = append(m.transcript, msg...)
		m.viewport.SetContent(m.transcriptView())
		m.viewport.GotoBottom()
		cmds = append(cmds, m.bridge.wait())

	case StateMsg:
		m.state = session.State(msg)
		cmds = append(cmds, m.bridge.wait())
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// caption is the live buffer for origin, or the last committed line.
func (m LiveModel) caption(origin model.Origin) string {
	buffer := m.source
	if origin == model.Target {
		buffer = m.target
	}
	return session.DisplayText(buffer, m.transcript, origin)
}

func (m LiveModel) View() string {
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.headerView(),
		m.captionsView(),
		m.viewport.View(),
		m.footerView(),
	)
}

func (m LiveModel) headerView() string {
	settings := m.ctl.Settings()

	tts := "speech off"
	if settings.TTSEnabled {
		tts = fmt.Sprintf("speech %d%%", int(settings.Volume*100+0.5))
	}
	mic := "mic on"
	if m.ctl.Muted() {
		mic = mutedStyle.Render("MUTED")
	}

	title := barStyle.Render(fmt.Sprintf("AutoLingo  %s ⇄ %s",
		m.speakers[0].Language, m.speakers[1].Language))
	status := fmt.Sprintf(" %s  %s  %s  %s", stateDot(m.state), mic, tts, LevelMeter(m.level, 10))

	return lipgloss.JoinHorizontal(lipgloss.Center, title, status)
}

func (m LiveModel) captionsView() string {
	style := captionStyle(m.ctl.Settings().TextSize, m.width)

	render := func(label string, text string, live bool, color lipgloss.Style) string {
		if text == "" {
			text = draftStyle.Render("…")
		} else if live {
			text = color.Render(text)
		} else {
			text = draftStyle.Render(text)
		}
		return labelStyle.Render(label) + "\n" + style.Render(text)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		render("Original", m.caption(model.Source), m.source != "", sourceStyle),
		render("Translation", m.caption(model.Target), m.target != "", targetStyle),
	)
}

func (m LiveModel) footerView() string {
	info := barStyle.Render("m mute · t speech · +/- volume · s text size · e end")
	line := strings.Repeat("─", max(0, m.width-lipgloss.Width(info)))
	return lipgloss.JoinHorizontal(lipgloss.Center, line, info)
}

func (m LiveModel) transcriptView() string {
	return TranscriptText(m.transcript)
}

// TranscriptText renders committed entries one per line, translations
// indented under what was heard.
func TranscriptText(entries []model.TranscriptEntry) string {
	var b strings.Builder
	for _, e := range entries {
		switch e.Origin {
		case model.Source:
			b.WriteString(sourceStyle.Render(e.Text))
		case model.Target:
			b.WriteString("  → ")
			b.WriteString(targetStyle.Render(e.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// LevelMeter draws a 0-100 level as a bar of width cells.
func LevelMeter(level float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	filled := int(level/100*float64(width) + 0.5)
	return "[" + strings.Repeat("▮", filled) + strings.Repeat(" ", width-filled) + "]"
}
