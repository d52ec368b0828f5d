// Package docs discovers and loads the documents to evaluate, and watches
// them for changes in watch mode.
package docs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"docjudge/internal/engine"
	"docjudge/internal/logging"
)

// loadConcurrency bounds parallel file reads during discovery.
const loadConcurrency = 16

// Load walks the given roots (files or directories) and returns every
// document whose extension matches, sorted by path. Contents are read
// concurrently; the engine treats them as already materialized.
func Load(ctx context.Context, roots []string, exts []string) ([]engine.Document, error) {
	match := extSet(exts)

	var paths []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			paths = append(paths, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if match[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	sort.Strings(paths)

	documents := make([]engine.Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			documents[i] = engine.Document{Path: path, Content: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Docs("loaded %d documents from %d roots", len(documents), len(roots))
	return documents, nil
}

func extSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = []string{".md"}
	}
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m[strings.ToLower(e)] = true
	}
	return m
}

// Watcher emits a signal when any matching document under the watched
// roots changes. Events are debounced so one save producing several fs
// events triggers one re-run.
type Watcher struct {
	fsw   *fsnotify.Watcher
	match map[string]bool

	closeOnce sync.Once
}

// NewWatcher watches every directory under the given roots.
func NewWatcher(roots []string, exts []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{fsw: fsw, match: extSet(exts)}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if err := fsw.Add(filepath.Dir(root)); err != nil {
				fsw.Close()
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && !(strings.HasPrefix(d.Name(), ".") && path != root) {
				return w.fsw.Add(path)
			}
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		})
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	return w, nil
}

// Run forwards debounced change notifications until ctx is cancelled. The
// returned channel closes when the watcher stops.
func (w *Watcher) Run(ctx context.Context, debounce time.Duration) <-chan struct{} {
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if !w.match[strings.ToLower(filepath.Ext(ev.Name))] {
					continue
				}
				logging.DocsDebug("change detected: %s", ev.Name)
				if timer == nil {
					timer = time.NewTimer(debounce)
					timerC = timer.C
				} else {
					timer.Reset(debounce)
				}
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logging.Get(logging.CategoryDocs).Warnf("watch error: %v", err)
			case <-timerC:
				timer = nil
				timerC = nil
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() { err = w.fsw.Close() })
	return err
}
