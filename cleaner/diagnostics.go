package cleaner

import (
	"fmt"

	"github.com/hupe1980/posisync/model"
)

// Kind classifies a row-level cleaning diagnostic.
type Kind string

// Diagnostic kinds. All are recovered locally (the row is dropped or
// flagged, the run continues); KindPointNotFound additionally surfaces as a
// run-level warning because it indicates inconsistent reference data.
const (
	KindUnknownPoint          Kind = "unknown_point"
	KindNoTimeWindowMatch     Kind = "no_time_window_match"
	KindQualityFilterRejected Kind = "quality_filter_rejected"
	KindDuplicateDropped      Kind = "duplicate_dropped"
	KindPointNotFound         Kind = "point_not_found"
)

// Diagnostic records one row-level issue encountered during cleaning.
type Diagnostic struct {
	Kind  Kind             `json:"kind"`
	Tech  model.Technology `json:"technology"`
	Point string           `json:"point_id,omitempty"`
	TS    int64            `json:"ts"`
	Err   error            `json:"-"`
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s %s ts=%d point=%s: %v", d.Tech, d.Kind, d.TS, d.Point, d.Err)
	}
	return fmt.Sprintf("%s %s ts=%d point=%s", d.Tech, d.Kind, d.TS, d.Point)
}

// Diagnostics aggregates row-level issues of one cleaning pass.
// Not safe for concurrent use; each cleaner task owns its own collector.
type Diagnostics struct {
	items  []Diagnostic
	counts map[Kind]int
}

// NewDiagnostics creates an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{counts: make(map[Kind]int)}
}

func (d *Diagnostics) add(diag Diagnostic) {
	d.items = append(d.items, diag)
	d.counts[diag.Kind]++
}

// Count returns the number of diagnostics of a kind.
func (d *Diagnostics) Count(kind Kind) int { return d.counts[kind] }

// Total returns the number of collected diagnostics.
func (d *Diagnostics) Total() int { return len(d.items) }

// All returns the collected diagnostics in emission order.
func (d *Diagnostics) All() []Diagnostic { return d.items }

// ReferenceGaps returns the point-not-found diagnostics. These require
// operator attention before the merged output can be trusted.
func (d *Diagnostics) ReferenceGaps() []Diagnostic {
	var out []Diagnostic
	for _, diag := range d.items {
		if diag.Kind == KindPointNotFound {
			out = append(out, diag)
		}
	}
	return out
}

// Summary returns per-kind counts.
func (d *Diagnostics) Summary() map[Kind]int {
	out := make(map[Kind]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Merge folds another collector into this one.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	for _, diag := range other.items {
		d.add(diag)
	}
}
