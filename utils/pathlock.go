package utils

import (
	"path/filepath"
	"sync"
)

// pathLocks holds one mutex per logical document, keyed by cleaned absolute
// path. Every read-modify-write of a JSON document must run under its lock;
// rapid UI interaction can otherwise race two whole-document rewrites and
// lose the first one.
var pathLocks sync.Map

// LockPath acquires the mutex for the given file path and returns the
// corresponding unlock function.
func LockPath(path string) func() {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	v, _ := pathLocks.LoadOrStore(abs, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
