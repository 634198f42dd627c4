// Package watch drives debounced regeneration from filesystem events.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of events settles.
const DefaultDebounce = 300 * time.Millisecond

// Watcher observes a directory tree and fires OnChange once per settled
// burst of events. OnCreate fires immediately for each newly created .go
// file, before the debounced OnChange.
type Watcher struct {
	Root     string
	Debounce time.Duration
	OnChange func()
	OnCreate func(path string)
	// Ignore suppresses events for matching paths, typically the
	// regeneration output living inside Root.
	Ignore func(path string) bool
	Logger *slog.Logger
}

func (w *Watcher) log() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

// Run watches until ctx is canceled. Subdirectories created while running
// are added to the watch set.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addTree(fsw, w.Root); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log().Warn("watch error", "err", err)
		case <-timer.C:
			pending = false
			if w.OnChange != nil {
				w.OnChange()
			}
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if w.Ignore != nil && w.Ignore(ev.Name) {
				continue
			}
			w.log().Debug("fs event", "op", ev.Op.String(), "path", ev.Name)

			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := addTree(fsw, ev.Name); err != nil {
						w.log().Warn("watch subdirectory", "path", ev.Name, "err", err)
					}
				} else if w.OnCreate != nil && strings.HasSuffix(ev.Name, ".go") {
					w.OnCreate(ev.Name)
				}
			}

			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounce)
			pending = true
		}
	}
}

// relevant filters out noise: chmod-only events, test files, editor
// droppings and hidden paths.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if strings.HasSuffix(base, "_test.go") {
		return false
	}
	// Directory events carry no extension; let them through for addTree.
	return strings.HasSuffix(base, ".go") || filepath.Ext(base) == ""
}

// addTree registers dir and every subdirectory with the watcher.
func addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}
