// Package term implements the presentation surface of quoterm: a Bubble
// Tea program that renders the message log and forwards key and resize
// events to callbacks wired at assembly time.
//
// The lifecycle orchestrator consumes only the Terminal interface; it
// never constructs UI state itself.
package term

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"quoterm/internal/config"
	"quoterm/internal/log"
)

// Kind selects the visual treatment of a rendered message.
type Kind int

const (
	KindInfo Kind = iota
	KindWarning
	KindError
	KindSuccess
)

// Terminal is the capability the orchestrator consumes.
type Terminal interface {
	// Render appends a styled message to the terminal's message log.
	// detail may be nil.
	Render(kind Kind, text string, detail error)
	// CaptureInput starts forwarding key presses to the key callback.
	CaptureInput()
	// ReleaseInput stops forwarding input and quits the program so the
	// terminal is restored.
	ReleaseInput()
}

// SessionInfo is the read-only session summary shown in the status bar.
type SessionInfo struct {
	ID      string
	Env     string
	Version string
}

// Config holds everything the UI needs at construction.
type Config struct {
	Session SessionInfo
	Theme   config.ThemeConfig
	Debug   bool
}

// UI owns the Bubble Tea program implementing Terminal.
type UI struct {
	p     *tea.Program
	ready chan struct{}

	logCancel context.CancelFunc

	// Wired once during assembly, before Run.
	onKey    func(name string, raw []rune)
	onResize func(width, height int)
	onExit   func(reason string)
}

// New creates the UI and its program. Callbacks must be wired before Run.
// Extra program options override the defaults (tests inject input/output).
func New(cfg Config, opts ...tea.ProgramOption) *UI {
	u := &UI{ready: make(chan struct{})}

	var listener *log.Listener
	if cfg.Debug {
		ctx, cancel := context.WithCancel(context.Background())
		u.logCancel = cancel
		listener = log.NewListener(ctx)
	}

	m := newModel(cfg, u, listener)
	u.p = tea.NewProgram(&m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	return u
}

// Run starts the program and blocks until it quits.
func (u *UI) Run() error {
	_, err := u.p.Run()
	return err
}

// Ready is closed once the program's update loop is accepting messages.
func (u *UI) Ready() <-chan struct{} { return u.ready }

// OnKey sets the callback invoked for key presses while input is captured.
func (u *UI) OnKey(fn func(name string, raw []rune)) { u.onKey = fn }

// OnResize sets the callback invoked when the terminal is resized.
func (u *UI) OnResize(fn func(width, height int)) { u.onResize = fn }

// OnExit sets the callback invoked when a quit key is pressed.
func (u *UI) OnExit(fn func(reason string)) { u.onExit = fn }

// Render implements Terminal.
func (u *UI) Render(kind Kind, text string, detail error) {
	u.p.Send(renderMsg{kind: kind, text: text, detail: detail})
}

// CaptureInput implements Terminal.
func (u *UI) CaptureInput() {
	u.p.Send(captureMsg{})
}

// ReleaseInput implements Terminal.
func (u *UI) ReleaseInput() {
	if u.logCancel != nil {
		u.logCancel()
	}
	u.p.Send(releaseMsg{})
}

// ApplyTheme swaps the color theme at runtime (config reload).
func (u *UI) ApplyTheme(theme config.ThemeConfig) {
	u.p.Send(themeMsg{theme: theme})
}
