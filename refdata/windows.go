package refdata

import (
	"sort"
	"time"
)

// TimeWindow is the stationary interval during which measurements at a
// point are considered valid. Point carries the campaign log identifier,
// including a possible re-run suffix ("202_2").
//
// Start/End are UTC unix millis. The campaign clock ran on local time
// (UTC+2); loaders convert before constructing windows.
type TimeWindow struct {
	Point string `json:"point_id"`
	Start int64  `json:"start_time"`
	End   int64  `json:"end_time"`
}

// Contains reports whether ts (unix millis) falls inside the window.
// Both bounds are inclusive.
func (w TimeWindow) Contains(ts int64) bool {
	return ts >= w.Start && ts <= w.End
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Millisecond
}

// Windows is the time-reference table, sorted by start time.
type Windows struct {
	windows []TimeWindow
}

// NewWindows builds the table. Input order does not matter.
func NewWindows(windows []TimeWindow) *Windows {
	sorted := make([]TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &Windows{windows: sorted}
}

// Locate returns the window containing ts. Windows do not overlap during a
// campaign; if reference data violates that, the earliest match wins.
func (w *Windows) Locate(ts int64) (TimeWindow, bool) {
	// First window with End >= ts; check containment.
	i := sort.Search(len(w.windows), func(i int) bool { return w.windows[i].End >= ts })
	if i < len(w.windows) && w.windows[i].Contains(ts) {
		return w.windows[i], true
	}
	return TimeWindow{}, false
}

// All returns the windows sorted by start time. Read-only.
func (w *Windows) All() []TimeWindow { return w.windows }

// Len returns the number of windows.
func (w *Windows) Len() int { return len(w.windows) }
