package log

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func entryTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", "2026-08-30T10:45:00")
	require.NoError(t, err)
	return ts
}

func TestFormatEntry_Basic(t *testing.T) {
	entry := formatEntry(entryTime(t), LevelInfo, CatBus, "listener added")
	require.Equal(t, "2026-08-30T10:45:00 [INFO] [bus] listener added\n", entry)
}

func TestFormatEntry_Fields(t *testing.T) {
	entry := formatEntry(entryTime(t), LevelWarn, CatLifecycle, "redundant shutdown", "state", "stopped", "reason", "signal")
	require.Equal(t, "2026-08-30T10:45:00 [WARN] [lifecycle] redundant shutdown state=stopped reason=signal\n", entry)
}

func TestFormatEntry_OddFieldCount(t *testing.T) {
	entry := formatEntry(entryTime(t), LevelError, CatTerm, "render failed", "orphan")
	require.Contains(t, entry, "orphan=<missing>")
}

// Swaps the global logger for an in-memory one and restores it.
func withTestLogger(t *testing.T) *Logger {
	t.Helper()
	prev := defaultLogger
	l := &Logger{enabled: true, minLevel: LevelDebug, stream: newStream()}
	defaultLogger = l
	t.Cleanup(func() { defaultLogger = prev })
	return l
}

func TestWrite_RespectsEnabledAndMinLevel(t *testing.T) {
	l := withTestLogger(t)
	var buf lockedBuffer
	l.writer = &buf

	SetMinLevel(LevelWarn)
	Debug(CatBus, "filtered out")
	Warn(CatBus, "kept")

	SetEnabled(false)
	Error(CatBus, "disabled")

	out := buf.String()
	require.NotContains(t, out, "filtered out")
	require.Contains(t, out, "kept")
	require.NotContains(t, out, "disabled")
}

// The setters and write contend for the same fields; the race detector
// covers the interleavings.
func TestWrite_ConcurrentWithSetters(t *testing.T) {
	l := withTestLogger(t)
	var buf lockedBuffer
	l.writer = &buf

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Info(CatBus, "dispatch")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetEnabled(j%2 == 0)
				SetMinLevel(Level(j % 4))
			}
		}()
	}
	wg.Wait()
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLevel_String(t *testing.T) {
	require.Equal(t, "DEBUG", LevelDebug.String())
	require.Equal(t, "INFO", LevelInfo.String())
	require.Equal(t, "WARN", LevelWarn.String())
	require.Equal(t, "ERROR", LevelError.String())
	require.Equal(t, "UNKNOWN", Level(42).String())
}

func TestStream_PublishSubscribe(t *testing.T) {
	s := newStream()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.subscribe(ctx)
	s.publish("line one\n")

	select {
	case line := <-ch:
		require.Equal(t, "line one\n", line)
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for log line")
	}
}

func TestStream_SlowSubscriberDropsLines(t *testing.T) {
	s := newStream()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.subscribe(ctx)

	// Overfill the buffer; publish must never block the logger.
	done := make(chan struct{})
	go func() {
		for i := 0; i < streamBufferSize*2; i++ {
			s.publish("line\n")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "publish blocked on a full subscriber")
	}

	require.Equal(t, "line\n", <-ch)
}

func TestStream_CancelCleansUpSubscription(t *testing.T) {
	s := newStream()

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.subscribe(ctx)

	cancel()

	// The cleanup goroutine closes the channel.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	s.mu.RLock()
	defer s.mu.RUnlock()
	require.Empty(t, s.subs)
}
