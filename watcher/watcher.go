package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the whole archive root and reports coalesced change
// notifications so the UI can refresh size/usage displays. It is advisory
// and best-effort: it sits entirely off the write path, and bursts are
// collapsed into a single notification.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	stop      chan struct{}
}

// New creates a watcher over root, delivering deduplicated path batches to
// notify after the debounce window of quiet.
func New(root string, debounce time.Duration, notify func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	w := &Watcher{
		root:      root,
		fsw:       fsw,
		debouncer: NewDebouncer(debounce, notify),
		stop:      make(chan struct{}),
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers root and every directory under it. fsnotify does
// not watch trees, so new person directories are added as they appear.
func (w *Watcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run consumes filesystem events until Stop is called. Intended to run on
// its own goroutine.
func (w *Watcher) Run() {
	log.Printf("watcher: observing archive root %s", w.root)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// start watching directories created after startup
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						log.Printf("watcher: failed to watch new directory %s: %v", event.Name, err)
					}
				}
			}
			w.debouncer.Add(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: error: %v", err)

		case <-w.stop:
			return
		}
	}
}

// Stop shuts the watcher down and discards pending notifications.
func (w *Watcher) Stop() {
	close(w.stop)
	w.debouncer.Stop()
	if err := w.fsw.Close(); err != nil {
		log.Printf("watcher: close error: %v", err)
	}
}
