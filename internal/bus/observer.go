package bus

import "quoterm/internal/log"

// Observer hooks into Publish around listener fan-out. Observers run
// synchronously on the publishing goroutine and must not panic.
type Observer interface {
	// BeforeDispatch runs before fan-out with the listener count about
	// to be invoked.
	BeforeDispatch(e Event, listeners int)
	// AfterDispatch runs after every listener has been invoked.
	AfterDispatch(e Event, listeners int)
}

// LogObserver records every dispatch through the logger at debug level.
type LogObserver struct{}

func (LogObserver) BeforeDispatch(e Event, listeners int) {
	log.Debug(log.CatBus, "dispatch", "kind", e.Kind(), "listeners", listeners)
}

func (LogObserver) AfterDispatch(Event, int) {}
