package cleaner

// ExcludedRun names one measurement run that must never feed the merged
// index. Point is the campaign log identifier (legacy scheme, without
// suffix); RunSuffix selects the run ("" = original).
type ExcludedRun struct {
	Point     string
	RunSuffix string
}

// Exclusions is the data-driven set of runs excluded from the merge.
// Excluded rows stay in the per-technology tables for auditability.
type Exclusions map[ExcludedRun]struct{}

// DefaultExclusions covers the two points whose first runs were invalidated
// by an anchor malfunction during the campaign; their "_2" re-runs are the
// canonical data.
func DefaultExclusions() Exclusions {
	return Exclusions{
		{Point: "202"}: {},
		{Point: "310"}: {},
	}
}

// Excluded reports whether the given run is on the exclusion list.
func (e Exclusions) Excluded(point, runSuffix string) bool {
	_, ok := e[ExcludedRun{Point: point, RunSuffix: runSuffix}]
	return ok
}
