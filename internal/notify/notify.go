// Package notify wakes mailbox pollers when the store's backing file changes.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long WaitForUpdate sleeps after a change signal to
// coalesce bursts of filesystem events from a single commit.
const DefaultDebounce = 500 * time.Millisecond

// Watcher signals when a SQLite database file is modified. It watches the
// file's parent directory (non-recursive) and filters events down to the
// database file and its -wal sidecar, which is the file WAL commits touch.
//
// The watcher is a wakeup hint, not a delivery guarantee: pollers always
// re-query the store after waking, so a missed event only costs one timeout.
type Watcher struct {
	path     string
	walPath  string
	debounce time.Duration

	fsw    *fsnotify.Watcher
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewWatcher starts watching dbPath's directory. A debounce <= 0 uses
// DefaultDebounce. The parent directory is created if missing so the watch
// can be established before the database file exists.
func NewWatcher(dbPath string, debounce time.Duration) (*Watcher, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("notify: dbPath is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("notify: resolve %s: %w", dbPath, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("notify: create %s: %w", dir, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("notify: create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("notify: watch %s: %w", dir, err)
	}

	w := &Watcher{
		path:     abs,
		walPath:  abs + "-wal",
		debounce: debounce,
		fsw:      fsw,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.matches(ev.Name) {
				continue
			}
			select {
			case w.signal <- struct{}{}:
			default:
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are tolerable; pollers fall back to their timeout.
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) matches(name string) bool {
	p := filepath.Clean(name)
	return p == w.path || p == w.walPath
}

// WaitForUpdate blocks until the database file changes, the timeout elapses,
// or ctx is cancelled. On a change it sleeps the debounce window, clears any
// signal that accumulated meanwhile, and reports true. Timeout and
// cancellation report false.
func (w *Watcher) WaitForUpdate(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.signal:
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	case <-w.done:
		return false
	}

	select {
	case <-time.After(w.debounce):
	case <-ctx.Done():
	}

	// Coalesce events that landed during the debounce window.
	select {
	case <-w.signal:
	default:
	}
	return true
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}
