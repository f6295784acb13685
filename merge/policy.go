package merge

import "sort"

// Policy selects a bucket's representative timestamp. The campaign
// documentation leaves the exact rule open, so it is configuration rather
// than a fixed choice.
type Policy string

const (
	// PolicyMedian uses the median of the bucket's constituent
	// timestamps; for an even count, the lower of the two middle values
	// keeps the result deterministic. This is the default.
	PolicyMedian Policy = "median"

	// PolicyTechPrecedence uses the earliest timestamp of the
	// contributing technology with the lowest alphabetical precedence
	// (ble before gnss before nr5g before uwb before wifi).
	PolicyTechPrecedence Policy = "tech-precedence"
)

func (p Policy) representative(bucket []contribution) int64 {
	switch p {
	case PolicyTechPrecedence:
		lead := bucket[0].tech
		ts := bucket[0].ts
		for _, c := range bucket[1:] {
			if c.tech < lead || (c.tech == lead && c.ts < ts) {
				lead = c.tech
				ts = c.ts
			}
		}
		return ts
	default: // PolicyMedian
		tss := make([]int64, len(bucket))
		for i, c := range bucket {
			tss[i] = c.ts
		}
		sort.Slice(tss, func(i, j int) bool { return tss[i] < tss[j] })
		return tss[(len(tss)-1)/2]
	}
}
