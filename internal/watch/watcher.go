// Package watch follows exported theme files on disk and reloads the
// owning release when one is edited outside the editor.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the burst of writes editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// ReloadFunc is called after a watched file settles.
type ReloadFunc func(ctx context.Context, releaseID, path string) (bool, error)

// Watcher maps watched files to release ids.
type Watcher struct {
	watcher  *fsnotify.Watcher
	reload   ReloadFunc
	log      *zap.Logger
	debounce time.Duration

	mu       sync.Mutex
	watching map[string]string // abs path -> release id
	dirs     map[string]int
	timers   map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New starts the event loop. Close must be called to release it.
func New(reload ReloadFunc, log *zap.Logger, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		reload:   reload,
		log:      log.Named("watch"),
		debounce: debounce,
		watching: make(map[string]string),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Watch links path to releaseID. The parent directory is watched, since
// editors often replace files by rename.
func (w *Watcher) Watch(releaseID, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watching[abs]; ok {
		w.watching[abs] = releaseID
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch dir %q: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.watching[abs] = releaseID
	return nil
}

// Unwatch stops following every file linked to releaseID.
func (w *Watcher) Unwatch(releaseID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, id := range w.watching {
		if id != releaseID {
			continue
		}
		delete(w.watching, path)
		if t, ok := w.timers[path]; ok {
			t.Stop()
			delete(w.timers, path)
		}
		dir := filepath.Dir(path)
		w.dirs[dir]--
		if w.dirs[dir] <= 0 {
			delete(w.dirs, dir)
			_ = w.watcher.Remove(dir)
		}
	}
}

// Close stops the loop and pending reloads.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	w.mu.Lock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			w.schedule(abs)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	releaseID, ok := w.watching[path]
	if !ok {
		return
	}
	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if w.ctx.Err() != nil {
			return
		}
		changed, err := w.reload(w.ctx, releaseID, path)
		if err != nil {
			w.log.Warn("reload failed", zap.String("release", releaseID), zap.String("path", path), zap.Error(err))
			return
		}
		if changed {
			w.log.Info("reloaded from disk", zap.String("release", releaseID), zap.String("path", path))
		}
	})
}
