// Package watcher monitors the config file and publishes a reload event
// on the bus when it changes on disk.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"quoterm/internal/bus"
	"quoterm/internal/log"
)

// Watcher debounces file system events for one file into bus events.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	path      string
	debounce  time.Duration
	bus       *bus.Bus
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Path is the config file to watch.
	Path        string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		DebounceDur: 500 * time.Millisecond,
	}
}

// New creates a config file watcher that publishes to b.
func New(cfg Config, b *bus.Bus) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		path:      cfg.Path,
		debounce:  cfg.DebounceDur,
		bus:       b,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the directory containing the config file.
// Editors replace files on save, so watching the file directly would
// lose the watch after the first write.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	go w.loop()

	log.Debug(log.CatWatcher, "watching config", "path", w.path)
	return nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isRelevantEvent(event) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = true
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
				pending = true
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				log.Info(log.CatWatcher, "config changed", "path", w.path)
				w.bus.Publish(bus.ConfigReload{Path: w.path})
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err)

		case <-w.done:
			return
		}
	}
}

// isRelevantEvent reports whether the event touches the watched file.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if filepath.Base(event.Name) != filepath.Base(w.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
