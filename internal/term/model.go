package term

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"quoterm/internal/config"
	"quoterm/internal/log"
)

const (
	maxMessages = 256
	maxLogLines = 100
)

// Messages sent into the update loop by the UI wrapper.
type (
	renderMsg struct {
		kind   Kind
		text   string
		detail error
	}
	captureMsg struct{}
	releaseMsg struct{}
	themeMsg   struct {
		theme config.ThemeConfig
	}
)

type message struct {
	kind   Kind
	text   string
	detail error
}

type keyMap struct {
	Quit      key.Binding
	ToggleLog key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "toggle log overlay"),
		),
	}
}

type model struct {
	ui      *UI
	session SessionInfo
	styles  styles
	keys    keyMap

	width    int
	height   int
	captured bool
	messages []message

	debug       bool
	showLog     bool
	logLines    []string
	logListener *log.Listener
}

func newModel(cfg Config, ui *UI, listener *log.Listener) model {
	return model{
		ui:          ui,
		session:     cfg.Session,
		styles:      newStyles(cfg.Theme),
		keys:        defaultKeyMap(),
		debug:       cfg.Debug,
		logListener: listener,
	}
}

// Init implements tea.Model. It signals readiness to the assembly code
// and starts tailing the log stream when the overlay is enabled.
func (m model) Init() tea.Cmd {
	close(m.ui.ready)
	if m.logListener != nil {
		return m.logListener.Listen()
	}
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.notifyResize(msg.Width, msg.Height)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case renderMsg:
		m.messages = append(m.messages, message{kind: msg.kind, text: msg.text, detail: msg.detail})
		if len(m.messages) > maxMessages {
			m.messages = m.messages[len(m.messages)-maxMessages:]
		}
		return m, nil

	case captureMsg:
		m.captured = true
		log.Debug(log.CatTerm, "input captured")
		return m, nil

	case releaseMsg:
		m.captured = false
		log.Debug(log.CatTerm, "input released")
		return m, tea.Quit

	case themeMsg:
		m.styles = newStyles(msg.theme)
		return m, nil

	case log.LineMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > maxLogLines {
			m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
		}
		return m, m.logListener.Listen()
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Input not captured: the surface is inert.
	if !m.captured {
		return m, nil
	}

	if m.debug && key.Matches(msg, m.keys.ToggleLog) {
		m.showLog = !m.showLog
		return m, nil
	}

	if key.Matches(msg, m.keys.Quit) {
		return m, m.notifyExit("key:" + msg.String())
	}

	return m, m.notifyKey(msg.String(), msg.Runes)
}

// The callbacks publish on the bus, and bus listeners call back into
// Render/ReleaseInput via Program.Send. Send needs this update loop as
// a live receiver, so callbacks must run as commands, never inline in
// Update: a synchronous call would deadlock the quit path.

func (m model) notifyResize(width, height int) tea.Cmd {
	if m.ui.onResize == nil {
		return nil
	}
	return func() tea.Msg {
		m.ui.onResize(width, height)
		return nil
	}
}

func (m model) notifyKey(name string, raw []rune) tea.Cmd {
	if m.ui.onKey == nil {
		return nil
	}
	return func() tea.Msg {
		m.ui.onKey(name, raw)
		return nil
	}
}

func (m model) notifyExit(reason string) tea.Cmd {
	if m.ui.onExit == nil {
		return nil
	}
	return func() tea.Msg {
		m.ui.onExit(reason)
		return nil
	}
}
