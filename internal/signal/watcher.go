// Package signal provides cooperative cancellation of an in-flight
// validation run through a control file. Dropping a file named "cancel"
// into the target's .readycheck/signals directory stops the run at the
// next phase boundary.
package signal

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// cancelFile is the control file name the watcher reacts to.
const cancelFile = "cancel"

// Watcher monitors the signals directory for a cancel request.
type Watcher struct {
	signalsDir string

	mu        sync.Mutex
	cancelled bool
	cancelCh  chan struct{}
	done      chan struct{}
	watcher   *fsnotify.Watcher
}

// NewWatcher creates the signals directory and starts watching it.
// If the file watcher cannot be created the Watcher still works through
// explicit Cancelled() polling of the directory.
func NewWatcher(targetPath string) (*Watcher, error) {
	signalsDir := filepath.Join(targetPath, ".readycheck", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}
	// A stale cancel file from a previous run must not kill this one.
	_ = os.Remove(filepath.Join(signalsDir, cancelFile))

	w := &Watcher{
		signalsDir: signalsDir,
		cancelCh:   make(chan struct{}),
		done:       make(chan struct{}),
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return w, nil
	}
	if err := fw.Add(signalsDir); err != nil {
		fw.Close()
		return w, nil
	}
	w.watcher = fw
	go w.watch()
	return w, nil
}

// watch reacts to creates/writes of the cancel file.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != cancelFile {
				continue
			}
			if event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0 {
				w.markCancelled()
			}
		case <-w.watcher.Errors:
			// Keep watching; a watch error downgrades to polling.
		}
	}
}

func (w *Watcher) markCancelled() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return
	}
	w.cancelled = true
	close(w.cancelCh)
}

// Cancelled reports whether a cancel has been requested, checking the
// directory directly as a fallback when the file watcher is absent.
func (w *Watcher) Cancelled() bool {
	w.mu.Lock()
	cancelled := w.cancelled
	w.mu.Unlock()
	if cancelled {
		return true
	}
	if _, err := os.Stat(filepath.Join(w.signalsDir, cancelFile)); err == nil {
		w.markCancelled()
		return true
	}
	return false
}

// C is closed when a cancel is requested.
func (w *Watcher) C() <-chan struct{} {
	return w.cancelCh
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}
