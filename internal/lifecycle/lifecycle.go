// Package lifecycle owns the startup/shutdown state machine of quoterm.
//
// The orchestrator subscribes to a fixed set of bus events, drives the
// presentation surface through them, and guarantees the shutdown
// sequence (publish app:stop, release input, clear the bus, exit) runs
// at most once per process regardless of how termination was triggered.
package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"quoterm/internal/bus"
	"quoterm/internal/log"
	"quoterm/internal/term"
)

// Orchestrator sequences startup and shutdown across the bus and the
// terminal surface. Exactly one instance exists per process.
type Orchestrator struct {
	mu       sync.Mutex
	state    State
	exitCode int

	bus      *bus.Bus
	terminal term.Terminal
	session  Session
	grace    time.Duration
	exit     func(code int)
}

// New wires the orchestrator to the bus. exit is invoked with the final
// status after the shutdown grace delay; production passes os.Exit.
func New(b *bus.Bus, t term.Terminal, session Session, grace time.Duration, exit func(code int)) *Orchestrator {
	o := &Orchestrator{
		state:    StateIdle,
		bus:      b,
		terminal: t,
		session:  session,
		grace:    grace,
		exit:     exit,
	}

	b.Subscribe(bus.KindAppStart, o.handleStart)
	b.Subscribe(bus.KindAppStop, o.handleStop)
	b.Subscribe(bus.KindAppError, o.handleError)
	b.Subscribe(bus.KindTermExit, o.handleExit)
	b.Subscribe(bus.KindTermResize, o.handleResize)

	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the process session descriptor.
func (o *Orchestrator) Session() Session {
	return o.session
}

// Start moves idle → running and publishes app:start. The terminal
// renders the welcome message and begins input capture in response.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("start from state %s", state)
	}
	o.state = StateRunning
	o.mu.Unlock()

	log.Info(log.CatLifecycle, "state transition", "from", StateIdle, "to", StateRunning)
	o.bus.Publish(bus.AppStart{})
	return nil
}

// Fatal renders an unrecoverable fault and escalates to the shutdown
// sequence with a failure exit status. Any unhandled fault anywhere in
// the process lands here; there is no partial-failure or retry policy.
func (o *Orchestrator) Fatal(err error) {
	o.mu.Lock()
	if o.state == StateStopping || o.state == StateStopped {
		o.mu.Unlock()
		log.Info(log.CatLifecycle, "fatal fault during shutdown ignored", "error", err)
		return
	}
	o.exitCode = 1
	o.mu.Unlock()

	log.ErrorErr(log.CatLifecycle, "fatal fault", err)
	o.terminal.Render(term.KindError, "fatal fault, shutting down", err)
	o.Shutdown("fatal fault")
}

// Shutdown runs the shutdown sequence exactly once. A second request
// while stopping or stopped is a recognized no-op.
func (o *Orchestrator) Shutdown(reason string) {
	o.mu.Lock()
	if o.state != StateRunning {
		state := o.state
		o.mu.Unlock()
		log.Info(log.CatLifecycle, "redundant shutdown request ignored", "state", state, "reason", reason)
		return
	}
	o.state = StateStopping
	code := o.exitCode
	o.mu.Unlock()

	log.Info(log.CatLifecycle, "state transition", "from", StateRunning, "to", StateStopping, "reason", reason)

	// 1. Tell listeners shutdown has begun. Listener isolation in the
	//    bus means a panicking app:stop listener cannot stop steps 2-4.
	o.bus.Publish(bus.AppStop{})

	// 2. Release keyboard capture so the terminal is restored.
	o.terminal.ReleaseInput()

	// 3. Clear every registration; nothing fires after this point.
	o.bus.Reset()

	o.mu.Lock()
	o.state = StateStopped
	o.mu.Unlock()
	log.Info(log.CatLifecycle, "state transition", "from", StateStopping, "to", StateStopped, "exit_code", code)

	// 4. Bounded grace delay for buffered output, then exit. Scheduled,
	//    not a busy wait; once shutdown begins it runs to process exit.
	time.AfterFunc(o.grace, func() {
		o.exit(code)
	})
}

func (o *Orchestrator) handleStart(bus.Event) {
	o.terminal.Render(term.KindSuccess,
		fmt.Sprintf("session %s started (%s, %s)", o.session.ID, o.session.Env, o.session.Version), nil)
	o.terminal.Render(term.KindInfo, "press q or ctrl+c to quit", nil)
	o.terminal.CaptureInput()
}

func (o *Orchestrator) handleStop(bus.Event) {
	o.terminal.Render(term.KindInfo, "shutting down", nil)
}

func (o *Orchestrator) handleError(e bus.Event) {
	fault := e.(bus.AppError)
	log.ErrorErr(log.CatLifecycle, "application error", fault.Err)
	o.terminal.Render(term.KindError, "application error", fault.Err)
}

func (o *Orchestrator) handleExit(e bus.Event) {
	exit := e.(bus.TermExit)
	o.Shutdown(exit.Reason)
}

func (o *Orchestrator) handleResize(e bus.Event) {
	resize := e.(bus.TermResize)
	log.Debug(log.CatLifecycle, "terminal resized", "width", resize.Width, "height", resize.Height)
}
