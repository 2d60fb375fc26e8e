// Package prof collects coarse wall-clock timings of named stages.
// Long-running entry points record themselves with a deferred Track;
// commands snapshot the registry after a run and print where the time
// went. Per-prime work is never tracked, only whole stages.
package prof

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Entry is the aggregate of one stage label.
type Entry struct {
	Label string
	Count int
	Total time.Duration
}

var (
	mu  sync.Mutex
	agg = map[string]*Entry{}
)

// Track adds the time elapsed since start under the given label.
// Meant to be deferred at stage entry: defer prof.Track(time.Now(), "fit").
func Track(start time.Time, label string) {
	elapsed := time.Since(start)
	mu.Lock()
	e := agg[label]
	if e == nil {
		e = &Entry{Label: label}
		agg[label] = e
	}
	e.Count++
	e.Total += elapsed
	mu.Unlock()
}

// SnapshotAndReset returns the aggregated entries, slowest first, and
// clears the registry.
func SnapshotAndReset() []Entry {
	mu.Lock()
	out := make([]Entry, 0, len(agg))
	for _, e := range agg {
		out = append(out, *e)
	}
	agg = map[string]*Entry{}
	mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Label < out[j].Label
		}
		return out[i].Total > out[j].Total
	})
	return out
}

// Report writes the current snapshot to w and resets the registry.
// A share column is included when total is positive.
func Report(w io.Writer, total time.Duration) {
	entries := SnapshotAndReset()
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "[timing] stage profile (total %s):\n", total.Round(time.Millisecond))
	for _, e := range entries {
		if total > 0 {
			fmt.Fprintf(w, "  %-28s %3d call(s)  %10s  %5.1f%%\n",
				e.Label, e.Count, e.Total.Round(time.Millisecond),
				100*float64(e.Total)/float64(total))
			continue
		}
		fmt.Fprintf(w, "  %-28s %3d call(s)  %10s\n",
			e.Label, e.Count, e.Total.Round(time.Millisecond))
	}
}
