package cobs

import (
	"fmt"
	"strings"
	"time"
)

// Timer accumulates wall-clock time under named keys. Start/Stop pairs are
// independent intervals; they are not required to nest. A Timer is not safe
// for concurrent use; the query path owns one per Search.
type Timer struct {
	active map[string]time.Time
	totals map[string]time.Duration
	order  []string
}

// NewTimer returns an empty timer.
func NewTimer() *Timer {
	return &Timer{
		active: make(map[string]time.Time),
		totals: make(map[string]time.Duration),
	}
}

// Start begins an interval under name. Starting an already-running name
// restarts its interval.
func (t *Timer) Start(name string) {
	t.active[name] = time.Now()
}

// Stop ends the interval under name and adds it to the accumulated total.
// Stopping a name that was never started is a no-op.
func (t *Timer) Stop(name string) {
	start, ok := t.active[name]
	if !ok {
		return
	}
	delete(t.active, name)
	if _, seen := t.totals[name]; !seen {
		t.order = append(t.order, name)
	}
	t.totals[name] += time.Since(start)
}

// Get returns the accumulated seconds under name.
func (t *Timer) Get(name string) float64 {
	return t.totals[name].Seconds()
}

// Reset clears all keys and any running intervals.
func (t *Timer) Reset() {
	t.active = make(map[string]time.Time)
	t.totals = make(map[string]time.Duration)
	t.order = nil
}

// Add merges the totals of other into t.
func (t *Timer) Add(other *Timer) {
	for _, name := range other.order {
		if _, seen := t.totals[name]; !seen {
			t.order = append(t.order, name)
		}
		t.totals[name] += other.totals[name]
	}
}

// String reports one line per key in first-use order plus a total.
func (t *Timer) String() string {
	var sb strings.Builder
	var total time.Duration
	for _, name := range t.order {
		fmt.Fprintf(&sb, "%-14s %10.6f s\n", name, t.totals[name].Seconds())
		total += t.totals[name]
	}
	fmt.Fprintf(&sb, "%-14s %10.6f s", "total", total.Seconds())
	return sb.String()
}
