// Package bus provides the in-process typed event bus that coordinates
// the terminal surface and the lifecycle orchestrator.
//
// The event set is closed: every occurrence the application reacts to is
// one of the structs below, each with a fixed payload shape. Listeners
// are registered per kind and invoked synchronously, in registration
// order, inside Publish.
package bus

// Kind names one category of event.
type Kind string

const (
	KindAppStart     Kind = "app:start"
	KindAppStop      Kind = "app:stop"
	KindAppError     Kind = "app:error"
	KindTermExit     Kind = "terminal:exit"
	KindTermKey      Kind = "terminal:key"
	KindTermResize   Kind = "terminal:resize"
	KindConfigReload Kind = "config:reload"
)

// Event is the closed set of application events. The unexported marker
// keeps the set sealed to this package, so every subscriber can be
// written against a known payload shape.
type Event interface {
	Kind() Kind
	event()
}

// AppStart signals the transition into the running state.
type AppStart struct{}

// AppStop signals that the shutdown sequence has begun.
type AppStop struct{}

// AppError carries a fault surfaced to the user.
type AppError struct {
	Err error
}

// TermExit requests termination of the interactive session.
type TermExit struct {
	Reason string
}

// TermKey carries one key press from the terminal surface.
type TermKey struct {
	Name string
	Raw  []rune
}

// TermResize carries the new terminal dimensions.
type TermResize struct {
	Width  int
	Height int
}

// ConfigReload signals that the config file changed on disk.
type ConfigReload struct {
	Path string
}

func (AppStart) Kind() Kind     { return KindAppStart }
func (AppStop) Kind() Kind      { return KindAppStop }
func (AppError) Kind() Kind     { return KindAppError }
func (TermExit) Kind() Kind     { return KindTermExit }
func (TermKey) Kind() Kind      { return KindTermKey }
func (TermResize) Kind() Kind   { return KindTermResize }
func (ConfigReload) Kind() Kind { return KindConfigReload }

func (AppStart) event()     {}
func (AppStop) event()      {}
func (AppError) event()     {}
func (TermExit) event()     {}
func (TermKey) event()      {}
func (TermResize) event()   {}
func (ConfigReload) event() {}
