// Package watch reports changes to a single file using fsnotify.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// FileWatcher signals when a file is written, created or replaced.
// The parent directory is watched so that editors saving through a rename
// are still seen.
type FileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	closed   bool
}

// NewFileWatcher creates a watcher for path. The directory containing path
// must exist; the file itself need not.
func NewFileWatcher(path string, debounce time.Duration) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{path: abs, debounce: debounce, watcher: watcher}, nil
}

// Changes returns a channel receiving one value per settled burst of
// changes. It is closed when ctx is done, Close is called or the watcher
// fails; the failure, if any, is sent on errs first.
func (w *FileWatcher) Changes(ctx context.Context) (changes <-chan struct{}, errs <-chan error) {
	out := make(chan struct{}, 1)
	errc := make(chan error, 1)
	go w.loop(ctx, out, errc)
	return out, errc
}

func (w *FileWatcher) loop(ctx context.Context, out chan<- struct{}, errc chan<- error) {
	defer close(out)
	defer close(errc)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case out <- struct{}{}:
			default:
				// A change is already pending.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			errc <- fmt.Errorf("watcher error: %w", err)
			return
		}
	}
}

func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the watcher. It is safe to call more than once.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}
