package model

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// NullIdx is the null marker for a per-technology row pointer: the
// technology contributed no row at that instant.
const NullIdx = int64(-1)

// TableRow is one entry of a CleanedTable: the record itself plus the
// cleaning flags attached to it.
type TableRow struct {
	Row Row `json:"-"`

	// RunSuffix is the measurement-run marker ("" for the original run,
	// "_2" for a malfunction re-run).
	RunSuffix string `json:"run_suffix,omitempty"`

	// ExcludedFromMerge marks rows that stay in the per-technology table
	// but must never be referenced by the synchronized index (the
	// pre-correction run of a malfunctioning point).
	ExcludedFromMerge bool `json:"excluded_from_merge,omitempty"`

	// RefMissing marks rows whose ground-truth lookup failed. The row is
	// retained; the gap is surfaced as an end-of-run warning.
	RefMissing bool `json:"ref_missing,omitempty"`
}

// CleanedTable is the immutable output of one per-technology cleaning pass.
//
// Rows are sorted by timestamp ascending and addressed by their position;
// the synchronized index stores these positions as row pointers. A
// CleanedTable is never mutated after the cleaning pass that built it.
type CleanedTable struct {
	Tech Technology
	Rows []TableRow

	excluded *roaring.Bitmap
}

// NewCleanedTable builds a table from already-sorted rows and precomputes
// the exclusion mask.
func NewCleanedTable(tech Technology, rows []TableRow) *CleanedTable {
	t := &CleanedTable{
		Tech:     tech,
		Rows:     rows,
		excluded: roaring.New(),
	}
	for i, r := range rows {
		if r.ExcludedFromMerge {
			t.excluded.Add(uint32(i))
		}
	}
	return t
}

// Len returns the number of rows.
func (t *CleanedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Excluded reports whether row i must not be referenced by the merge.
func (t *CleanedTable) Excluded(i int) bool {
	return t.excluded != nil && t.excluded.Contains(uint32(i))
}

// ExclusionMask returns the row-index bitmap of excluded rows. The caller
// must treat it as read-only.
func (t *CleanedTable) ExclusionMask() *roaring.Bitmap {
	if t.excluded == nil {
		return roaring.New()
	}
	return t.excluded
}

// IndexRow is one row of the cross-technology synchronized index.
//
// Each Idx* field is either a row position in the corresponding
// CleanedTable or NullIdx. At least one pointer is always non-null: a row
// is only emitted for instants with at least one contributor.
type IndexRow struct {
	TS      int64  `json:"ts"`
	PointID string `json:"point_id"`
	IdxBLE  int64  `json:"idx_ble"`
	IdxWiFi int64  `json:"idx_wifi"`
	IdxUWB  int64  `json:"idx_uwb"`
	IdxNR5G int64  `json:"idx_nr5g"`
	IdxGNSS int64  `json:"idx_gnss"`
}

// NewIndexRow returns an IndexRow with all pointers null.
func NewIndexRow(ts int64) IndexRow {
	return IndexRow{
		TS:      ts,
		IdxBLE:  NullIdx,
		IdxWiFi: NullIdx,
		IdxUWB:  NullIdx,
		IdxNR5G: NullIdx,
		IdxGNSS: NullIdx,
	}
}

// Idx returns the row pointer for the given technology.
func (r *IndexRow) Idx(tech Technology) int64 {
	switch tech {
	case TechBLE:
		return r.IdxBLE
	case TechWiFi:
		return r.IdxWiFi
	case TechUWB:
		return r.IdxUWB
	case TechNR5G:
		return r.IdxNR5G
	case TechGNSS:
		return r.IdxGNSS
	}
	return NullIdx
}

// SetIdx sets the row pointer for the given technology.
func (r *IndexRow) SetIdx(tech Technology, idx int64) {
	switch tech {
	case TechBLE:
		r.IdxBLE = idx
	case TechWiFi:
		r.IdxWiFi = idx
	case TechUWB:
		r.IdxUWB = idx
	case TechNR5G:
		r.IdxNR5G = idx
	case TechGNSS:
		r.IdxGNSS = idx
	}
}

// Contributors returns the technologies with a non-null pointer.
func (r *IndexRow) Contributors() []Technology {
	var out []Technology
	for _, tech := range Technologies() {
		if r.Idx(tech) != NullIdx {
			out = append(out, tech)
		}
	}
	return out
}
