package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of filesystem paths into one flush callback.
// The first Add after an idle period arms a timer; every further Add inside
// the window just joins the pending set. One flush fires per burst with the
// deduplicated paths.
type Debouncer struct {
	window time.Duration
	flush  func(paths []string)

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
}

func NewDebouncer(window time.Duration, flush func(paths []string)) *Debouncer {
	return &Debouncer{
		window:  window,
		flush:   flush,
		pending: make(map[string]bool),
	}
}

// Add records a changed path and (re)arms the flush timer.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[path] = true
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.fire)
	} else {
		d.timer.Reset(d.window)
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]bool)
	d.timer = nil
	d.mu.Unlock()

	if len(paths) > 0 {
		d.flush(paths)
	}
}

// Stop cancels any armed timer; pending paths are discarded.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]bool)
}
