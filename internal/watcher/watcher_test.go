package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"quoterm/internal/bus"
)

func TestIsRelevantEvent(t *testing.T) {
	w := &Watcher{path: "/tmp/.quoterm/config.yaml"}

	require.True(t, w.isRelevantEvent(fsnotify.Event{Name: "/tmp/.quoterm/config.yaml", Op: fsnotify.Write}))
	require.True(t, w.isRelevantEvent(fsnotify.Event{Name: "/tmp/.quoterm/config.yaml", Op: fsnotify.Create}))
	require.False(t, w.isRelevantEvent(fsnotify.Event{Name: "/tmp/.quoterm/other.yaml", Op: fsnotify.Write}))
	require.False(t, w.isRelevantEvent(fsnotify.Event{Name: "/tmp/.quoterm/config.yaml", Op: fsnotify.Chmod}))
}

func TestWatcher_PublishesReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: development\n"), 0o600))

	b := bus.New()
	var reloads atomic.Int32
	b.Subscribe(bus.KindConfigReload, func(e bus.Event) {
		require.Equal(t, path, e.(bus.ConfigReload).Path)
		reloads.Add(1)
	})

	cfg := DefaultConfig(path)
	cfg.DebounceDur = 20 * time.Millisecond
	w, err := New(cfg, b)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(path, []byte("env: production\n"), 0o600))

	require.Eventually(t, func() bool {
		return reloads.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	b := bus.New()
	var reloads atomic.Int32
	b.Subscribe(bus.KindConfigReload, func(bus.Event) { reloads.Add(1) })

	cfg := DefaultConfig(path)
	cfg.DebounceDur = 100 * time.Millisecond
	w, err := New(cfg, b)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer func() { _ = w.Stop() }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return reloads.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(1), reloads.Load(), "a burst of writes should coalesce into one reload")
}

func TestWatcher_StopIsClean(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	w, err := New(DefaultConfig(path), bus.New())
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
}
