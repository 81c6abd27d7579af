package profile

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reload debounce. Editors and config writers often touch a file several
// times in quick succession.
const debounceDelay = 500 * time.Millisecond

// Watcher reloads a profile whenever its file changes. A reload that
// fails to parse or validate keeps the previous profile, so a bad edit
// never takes a running cache down.
type Watcher struct {
	path      string
	log       *slog.Logger
	watcher   *fsnotify.Watcher
	current   *Profile
	callbacks []func(*Profile)
	mu        sync.RWMutex
	stop      chan struct{}
	stopOnce  sync.Once
}

// Watch loads the profile at path and starts watching it for changes.
// The initial load must succeed. A nil log discards watcher output.
func Watch(path string, log *slog.Logger) (*Watcher, error) {
	prof, err := Load(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("profile: create watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace files by
	// rename, which drops a watch held on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("profile: watch %q: %w", path, err)
	}

	w := &Watcher{
		path:    filepath.Clean(path),
		log:     log,
		watcher: fsw,
		current: prof,
		stop:    make(chan struct{}),
	}
	go w.loop()

	return w, nil
}

// Profile returns the most recently loaded profile.
func (w *Watcher) Profile() *Profile {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.current
}

// OnChange registers a callback invoked after each successful reload.
// Callbacks run on the watcher goroutine and should return quickly.
func (w *Watcher) OnChange(fn func(*Profile)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.callbacks = append(w.callbacks, fn)
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var debounce *time.Timer

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("profile watcher error",
				slog.String("path", w.path),
				slog.Any("error", err),
			)

		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) reload() {
	prof, err := Load(w.path)
	if err != nil {
		w.log.Error("profile reload failed, keeping previous profile",
			slog.String("path", w.path),
			slog.Any("error", err),
		)
		return
	}

	w.mu.Lock()
	w.current = prof
	callbacks := make([]func(*Profile), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(prof)
	}

	w.log.Info("profile reloaded",
		slog.String("name", prof.Name),
		slog.String("path", w.path),
	)
}
