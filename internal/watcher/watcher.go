// Package watcher reports debounced changes to the files of a file set.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/mvp-joe/harvester/internal/fileset"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Change is one changed file of the set.
type Change struct {
	// Path is slash-separated and relative to the watched root.
	Path string
	// Removed is set when the file no longer exists.
	Removed bool
}

// Options configures a Watcher.
type Options struct {
	// Set selects the files to report. Excluded directories are not watched.
	Set      *fileset.Discovery
	Debounce time.Duration
	Logger   *zerolog.Logger
}

// Watcher watches a file set recursively and reports batches of changes
// once no event arrived for the debounce period.
type Watcher struct {
	fs       *fsnotify.Watcher
	set      *fileset.Discovery
	debounce time.Duration
	log      zerolog.Logger

	callback func(changes []Change)
	cancel   context.CancelFunc

	pending   map[string]bool // relative paths changed since the last batch
	pendingMu sync.Mutex

	timer   *time.Timer
	timerMu sync.Mutex

	stopOnce sync.Once
	doneCh   chan struct{}
}

// New creates a watcher over the directories of opts.Set.
func New(opts Options) (*Watcher, error) {
	if opts.Set == nil {
		return nil, errors.New("watcher needs a file set")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fs:       fsw,
		set:      opts.Set,
		debounce: opts.Debounce,
		log:      zerolog.Nop(),
		pending:  make(map[string]bool),
		doneCh:   make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if opts.Logger != nil {
		w.log = *opts.Logger
	}

	if err := w.addTree(opts.Set.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins watching. callback receives each batch sorted by path and
// is never called concurrently with itself.
func (w *Watcher) Start(ctx context.Context, callback func(changes []Change)) error {
	if callback == nil {
		return errors.New("watcher needs a callback")
	}
	w.callback = callback
	ctx, w.cancel = context.WithCancel(ctx)

	go w.watch(ctx)
	return nil
}

// Stop ends watching and waits for the event loop to finish. It is safe
// to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event, fire)

		case <-fire:
			w.flush()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, fire chan struct{}) {
	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.set.Excluded(rel) {
				if err := w.addTree(event.Name); err != nil {
					w.log.Warn().Err(err).Str("dir", rel).Msg("failed to watch new directory")
				}
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.set.Matches(rel) {
		return
	}

	w.pendingMu.Lock()
	w.pending[rel] = true
	w.pendingMu.Unlock()

	w.resetTimer(fire)
}

// flush hands the pending changes to the callback.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	sort.Strings(paths)
	changes := make([]Change, 0, len(paths))
	for _, p := range paths {
		_, err := os.Stat(filepath.Join(w.set.Root(), filepath.FromSlash(p)))
		changes = append(changes, Change{Path: p, Removed: errors.Is(err, os.ErrNotExist)})
	}

	w.log.Debug().Int("files", len(changes)).Msg("files changed")
	w.callback(changes)
}

func (w *Watcher) relative(path string) (string, bool) {
	rel, err := filepath.Rel(w.set.Root(), path)
	if err != nil || rel == "." {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// addTree watches root and every directory below it that is not excluded.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.log.Warn().Err(err).Str("path", path).Msg("failed to access path")
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if rel, ok := w.relative(path); ok && w.set.Excluded(rel) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.log.Warn().Err(err).Str("dir", path).Msg("failed to watch directory")
		}
		return nil
	})
}
