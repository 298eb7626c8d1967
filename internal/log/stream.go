package log

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

const streamBufferSize = 64

// stream fans formatted log lines out to overlay subscribers.
// Delivery is best-effort: a slow subscriber drops lines rather than
// blocking the logging path.
type stream struct {
	mu   sync.RWMutex
	subs map[chan string]struct{}
}

func newStream() *stream {
	return &stream{subs: make(map[chan string]struct{})}
}

func (s *stream) subscribe(ctx context.Context) <-chan string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := make(chan string, streamBufferSize)
	s.subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, sub)
		close(sub)
	}()

	return sub
}

func (s *stream) publish(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subs {
		select {
		case sub <- line:
		default:
			// Subscriber is behind - drop rather than block the logger.
		}
	}
}

// LineMsg carries one log line into the Bubble Tea update loop.
type LineMsg string

// Listener tails the log stream for the terminal's debug overlay.
type Listener struct {
	ctx context.Context
	ch  <-chan string
}

// NewListener subscribes to the log stream. Returns nil when the logger
// has not been initialized. The subscription is cleaned up when ctx is
// cancelled.
func NewListener(ctx context.Context) *Listener {
	if defaultLogger == nil || defaultLogger.stream == nil {
		return nil
	}
	return &Listener{
		ctx: ctx,
		ch:  defaultLogger.stream.subscribe(ctx),
	}
}

// Listen returns a tea.Cmd that waits for the next log line.
// Call it again from Update after handling each LineMsg to keep tailing.
func (l *Listener) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-l.ctx.Done():
			return nil
		case line, ok := <-l.ch:
			if !ok {
				return nil
			}
			return LineMsg(line)
		}
	}
}
