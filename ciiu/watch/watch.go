// Package watch rebuilds dataset snapshots when their spreadsheets change on
// disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/indexing"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/manager"
)

const DefaultDebounce = 2 * time.Second

// auxiliaryKey marks the auxiliary corpus among the watched targets.
const auxiliaryKey = ""

// Rebuilder is the part of the index manager driven by file changes.
type Rebuilder interface {
	Rebuild(ctx context.Context, dataset string) (*indexing.Snapshot, error)
	RebuildAll(ctx context.Context) (manager.Summary, error)
}

// Watcher debounces change events per dataset and triggers one rebuild once a
// file has been quiet for the debounce delay. A change to the auxiliary corpus
// rebuilds every dataset, since each snapshot carries the corpus.
type Watcher struct {
	rebuilder Rebuilder
	targets   map[string]string // cleaned path -> dataset
	delay     time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before it is rebuilt.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New watches the dataset files and, when auxPath is set, the auxiliary corpus.
func New(r Rebuilder, files []catalog.DatasetFile, auxPath string, opts ...Option) *Watcher {
	w := &Watcher{
		rebuilder: r,
		targets:   make(map[string]string, len(files)+1),
		delay:     DefaultDebounce,
		logger:    zerolog.Nop(),
		timers:    make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = w.logger.With().Str("component", "catalog-watcher").Logger()
	for _, f := range files {
		w.targets[cleanPath(f.Path)] = f.Name
	}
	if auxPath != "" {
		w.targets[cleanPath(auxPath)] = auxiliaryKey
	}
	return w
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// Run watches until ctx is cancelled and may be called once. Parent
// directories are watched rather than the files themselves so that editors
// replacing a file by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	dirs := make(map[string]bool)
	for path := range w.targets {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			continue
		}
		dirs[dir] = true
	}
	if len(dirs) == 0 {
		return errors.New("no catalog directory could be watched")
	}
	w.logger.Info().Int("dirs", len(dirs)).Int("files", len(w.targets)).Msg("Catalog watcher started")

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
				continue
			}
			dataset, watched := w.targets[cleanPath(ev.Name)]
			if !watched {
				continue
			}
			w.schedule(ctx, dataset)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// schedule (re)starts the debounce timer of dataset.
func (w *Watcher) schedule(ctx context.Context, dataset string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[dataset]; ok {
		t.Stop()
	}
	w.timers[dataset] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.timers, dataset)
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()
		w.fire(ctx, dataset)
	})
}

func (w *Watcher) fire(ctx context.Context, dataset string) {
	if ctx.Err() != nil {
		return
	}
	if dataset == auxiliaryKey {
		w.logger.Info().Msg("Auxiliary corpus changed, rebuilding all datasets")
		sum, err := w.rebuilder.RebuildAll(ctx)
		if err == nil {
			err = sum.Err()
		}
		if err != nil {
			w.logger.Warn().Err(err).Msg("Rebuild after auxiliary change incomplete")
		}
		return
	}

	w.logger.Info().Str("dataset", dataset).Msg("Catalog changed, rebuilding")
	_, err := w.rebuilder.Rebuild(ctx, dataset)
	if errors.Is(err, manager.ErrRebuildInProgress) {
		// the running build may have read the old file
		w.schedule(ctx, dataset)
	}
}

// stop cancels pending timers and waits for rebuilds already started.
func (w *Watcher) stop() {
	w.mu.Lock()
	w.stopped = true
	for k, t := range w.timers {
		t.Stop()
		delete(w.timers, k)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
