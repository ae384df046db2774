// Package watch exports new captures that appear in a folder.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/capshare/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is exported.
const DefaultSettle = 750 * time.Millisecond

// DefaultExtensions are the capture formats picked up when none are configured.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".mp4", ".mov", ".webm"}

// ExportFunc exports one capture file.
type ExportFunc func(ctx context.Context, path string) error

// Options configures a Watcher.
type Options struct {
	// Extensions limits which files are exported (lower-case, with dot).
	Extensions []string
	// Settle is the quiet period after the last write.
	Settle time.Duration
	// OnError is called when an export fails. The watcher keeps running.
	OnError func(path string, err error)
}

// Watcher exports files created in one directory, one at a time, in the
// order they settle. Each path is exported at most once per run.
type Watcher struct {
	dir    string
	export ExportFunc
	opts   Options
}

// New creates a watcher for dir.
func New(dir string, export ExportFunc, opts Options) *Watcher {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	return &Watcher{dir: dir, export: export, opts: opts}
}

// Run watches until ctx is done. An export in progress is allowed to
// finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("watching %s for new captures", w.dir)

	ready := make(chan string, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.exportLoop(ctx, ready)
	}()
	defer wg.Wait()

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.wants(event) {
				continue
			}
			path := event.Name
			if t, ok := timers[path]; ok {
				t.Reset(w.opts.Settle)
				continue
			}
			timers[path] = time.AfterFunc(w.opts.Settle, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch %s: %v", w.dir, err)
		}
	}
}

// exportLoop runs exports sequentially.
func (w *Watcher) exportLoop(ctx context.Context, ready <-chan string) {
	exported := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-ready:
			if exported[path] {
				continue
			}
			exported[path] = true
			logger.Debug("exporting %s", path)
			if err := w.export(ctx, path); err != nil {
				if w.opts.OnError != nil {
					w.opts.OnError(path, err)
				} else {
					logger.Error("export %s: %v", path, err)
				}
			}
		}
	}
}

// wants filters events to created or written capture files. Hidden files
// are skipped: screenshot tools write to a hidden name and rename.
func (w *Watcher) wants(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(name)))
}
