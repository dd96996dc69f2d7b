package watcher

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes [][]string
}

func (fr *flushRecorder) record(paths []string) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	sort.Strings(paths)
	fr.flushes = append(fr.flushes, paths)
}

func (fr *flushRecorder) snapshot() [][]string {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	out := make([][]string, len(fr.flushes))
	copy(out, fr.flushes)
	return out
}

func waitForFlushes(t *testing.T, fr *flushRecorder, n int) [][]string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := fr.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d flush(es), got %d", n, len(fr.snapshot()))
	return nil
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	fr := &flushRecorder{}
	d := NewDebouncer(30*time.Millisecond, fr.record)
	defer d.Stop()

	d.Add("a")
	d.Add("b")
	d.Add("a") // duplicate within the burst
	d.Add("c")

	flushes := waitForFlushes(t, fr, 1)
	require.Len(t, flushes, 1)
	assert.Equal(t, []string{"a", "b", "c"}, flushes[0])
}

func TestDebouncerSeparateBurstsFlushSeparately(t *testing.T) {
	fr := &flushRecorder{}
	d := NewDebouncer(20*time.Millisecond, fr.record)
	defer d.Stop()

	d.Add("first")
	waitForFlushes(t, fr, 1)

	d.Add("second")
	flushes := waitForFlushes(t, fr, 2)
	require.Len(t, flushes, 2)
	assert.Equal(t, []string{"first"}, flushes[0])
	assert.Equal(t, []string{"second"}, flushes[1])
}

func TestDebouncerStopDiscardsPending(t *testing.T) {
	fr := &flushRecorder{}
	d := NewDebouncer(50*time.Millisecond, fr.record)

	d.Add("doomed")
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fr.snapshot())
}
