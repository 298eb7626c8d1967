package bus

import (
	"sort"
	"sync"

	"quoterm/internal/log"
)

// DefaultMaxListeners is the per-kind diagnostic ceiling. Exceeding it
// logs a warning but never rejects the registration.
const DefaultMaxListeners = 50

// Listener handles one event. Listeners for a kind only ever receive
// events of that kind.
type Listener func(Event)

// Subscription identifies one registration for Unsubscribe.
type Subscription struct {
	kind Kind
	id   uint64
}

// Kind returns the event kind the subscription is registered for.
func (s Subscription) Kind() Kind { return s.kind }

type registration struct {
	id   uint64
	fn   Listener
	once bool
}

// Bus is the application event bus. It is safe for concurrent use;
// the signal watcher and the terminal input loop publish from their
// own goroutines.
type Bus struct {
	mu           sync.Mutex
	nextID       uint64
	listeners    map[Kind][]registration
	observers    []Observer
	maxListeners int
}

// New creates a bus with the default listener ceiling.
func New() *Bus {
	return NewWithLimit(DefaultMaxListeners)
}

// NewWithLimit creates a bus with a custom per-kind listener ceiling.
// A limit of zero or less disables the warning.
func NewWithLimit(maxListeners int) *Bus {
	return &Bus{
		listeners:    make(map[Kind][]registration),
		maxListeners: maxListeners,
	}
}

// AddObserver appends a dispatch observer. Observers are invoked inside
// Publish, before and after listener fan-out, in the order added.
func (b *Bus) AddObserver(o Observer) {
	if o == nil {
		return
	}
	b.mu.Lock()
	b.observers = append(b.observers, o)
	b.mu.Unlock()
}

// Subscribe appends a listener to the fan-out list for kind.
// Subscribing the same function twice creates two registrations.
func (b *Bus) Subscribe(kind Kind, fn Listener) Subscription {
	return b.add(kind, fn, false)
}

// SubscribeOnce registers a listener that is removed immediately before
// its first invocation for kind.
func (b *Bus) SubscribeOnce(kind Kind, fn Listener) Subscription {
	return b.add(kind, fn, true)
}

func (b *Bus) add(kind Kind, fn Listener, once bool) Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[kind] = append(b.listeners[kind], registration{id: id, fn: fn, once: once})
	count := len(b.listeners[kind])
	limit := b.maxListeners
	b.mu.Unlock()

	log.Debug(log.CatBus, "listener added", "kind", kind, "count", count, "once", once)
	if limit > 0 && count > limit {
		log.Warn(log.CatBus, "listener ceiling exceeded", "kind", kind, "count", count, "limit", limit)
	}
	return Subscription{kind: kind, id: id}
}

// Unsubscribe removes the registration identified by sub.
// Removing an unknown or already-removed subscription is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.listeners[sub.kind]
	// Scan from the end so duplicate callbacks resolve to the most
	// recent registration, matching handle identity.
	for i := len(regs) - 1; i >= 0; i-- {
		if regs[i].id == sub.id {
			b.listeners[sub.kind] = append(regs[:i], regs[i+1:]...)
			if len(b.listeners[sub.kind]) == 0 {
				delete(b.listeners, sub.kind)
			}
			return
		}
	}
}

// Publish invokes every listener registered for the event's kind, in
// registration order, and reports whether at least one listener existed.
// A panicking listener is recovered and logged; delivery continues to
// the remaining listeners and never propagates to the publisher.
func (b *Bus) Publish(e Event) bool {
	kind := e.Kind()

	b.mu.Lock()
	regs := b.listeners[kind]

	// Snapshot before iterating: a listener may subscribe, unsubscribe,
	// or publish the same kind re-entrantly without corrupting this
	// fan-out.
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)

	// Once-registrations are removed before their first invocation.
	remaining := regs[:0]
	for _, reg := range regs {
		if !reg.once {
			remaining = append(remaining, reg)
		}
	}
	if len(remaining) == 0 {
		delete(b.listeners, kind)
	} else {
		b.listeners[kind] = remaining
	}

	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.mu.Unlock()

	for _, o := range observers {
		o.BeforeDispatch(e, len(snapshot))
	}
	for _, reg := range snapshot {
		b.invoke(e, reg)
	}
	for _, o := range observers {
		o.AfterDispatch(e, len(snapshot))
	}

	return len(snapshot) > 0
}

func (b *Bus) invoke(e Event, reg registration) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatBus, "listener panic recovered", "kind", e.Kind(), "panic", r)
		}
	}()
	reg.fn(e)
}

// ListenerCount reports the live registration count for kind.
func (b *Bus) ListenerCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[kind])
}

// RegisteredKinds returns the kinds with at least one live registration,
// sorted for stable diagnostics output.
func (b *Bus) RegisteredKinds() []Kind {
	b.mu.Lock()
	defer b.mu.Unlock()

	kinds := make([]Kind, 0, len(b.listeners))
	for kind := range b.listeners {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Reset clears every registration for every kind. Safe to call multiple
// times; used during shutdown.
func (b *Bus) Reset() {
	b.mu.Lock()
	cleared := len(b.listeners)
	b.listeners = make(map[Kind][]registration)
	b.mu.Unlock()

	log.Debug(log.CatBus, "registrations reset", "kinds", cleared)
}
