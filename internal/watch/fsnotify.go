package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrNotDir is returned when a rule's base directory is a regular file.
var ErrNotDir = errors.New("not a directory")

// relevantOps are the operations that can change a build's inputs.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// recursiveWatcher keeps one fsnotify watcher on a directory tree, adding
// directories as they are created.
type recursiveWatcher struct {
	fsw *fsnotify.Watcher
}

func newRecursiveWatcher(dir string) (*recursiveWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrNotDir
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &recursiveWatcher{fsw: fsw}
	if err := w.addTree(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it.
func (w *recursiveWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// The root must be watchable; vanished subdirectories are not fatal.
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("adding %s: %w", p, err)
		}
		return nil
	})
}

// follow watches a directory that appeared after startup. It reports whether
// path was a directory.
func (w *recursiveWatcher) follow(ev fsnotify.Event) (bool, error) {
	if !ev.Has(fsnotify.Create) {
		return false, nil
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.IsDir() {
		return false, nil
	}
	return true, w.addTree(ev.Name)
}

func (w *recursiveWatcher) Close() error {
	return w.fsw.Close()
}
