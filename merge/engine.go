// Package merge implements the cross-technology synchronization engine.
//
// The engine consumes fully-materialized, immutable CleanedTables and emits
// the synchronized index: one row per physical instant, holding row
// pointers into the per-technology tables. Each technology's log is written
// by an independent clock, so timestamps are associated by a tolerance
// window rather than exact equality.
//
// The engine is a single-pass, read-only consumer. It requires no locking
// and re-running it on the same inputs yields the identical output.
package merge

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/hupe1980/posisync/model"
)

// DefaultTolerance is the bucket window for nearest-neighbor timestamp
// association.
const DefaultTolerance = 10 * time.Millisecond

// Engine buckets timestamps across technologies and selects at most one
// row per technology per bucket.
type Engine struct {
	tolerance int64 // millis
	policy    Policy
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTolerance sets the bucket window. Values below one millisecond
// degenerate to exact-match bucketing.
func WithTolerance(d time.Duration) Option {
	return func(e *Engine) { e.tolerance = d.Milliseconds() }
}

// WithPolicy sets the representative-timestamp policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger for the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates a merge Engine.
func New(optFns ...Option) *Engine {
	e := &Engine{
		tolerance: DefaultTolerance.Milliseconds(),
		policy:    PolicyMedian,
		logger:    slog.Default(),
	}
	for _, fn := range optFns {
		fn(e)
	}
	return e
}

// contribution is one mergeable row of one technology.
type contribution struct {
	ts    int64
	tech  model.Technology
	idx   int64
	point string
}

// Merge produces the synchronized index from the given tables.
//
// Tables may be missing or empty for any technology; those columns stay
// null. If every table is empty the result is an empty sequence, not an
// error. Rows flagged excluded-from-merge are never referenced.
func (e *Engine) Merge(ctx context.Context, tables map[model.Technology]*model.CleanedTable) ([]model.IndexRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Candidate set: union of all non-excluded row timestamps.
	var contribs []contribution
	for tech, table := range tables {
		if table == nil {
			continue
		}
		for i, row := range table.Rows {
			if table.Excluded(i) {
				continue
			}
			contribs = append(contribs, contribution{
				ts:    row.Row.Ts(),
				tech:  tech,
				idx:   int64(i),
				point: row.Row.Point(),
			})
		}
	}
	if len(contribs) == 0 {
		return []model.IndexRow{}, nil
	}

	// Deterministic processing order: ts, then technology precedence,
	// then row index.
	sort.Slice(contribs, func(i, j int) bool {
		a, b := contribs[i], contribs[j]
		if a.ts != b.ts {
			return a.ts < b.ts
		}
		if a.tech != b.tech {
			return a.tech < b.tech
		}
		return a.idx < b.idx
	})

	var out []model.IndexRow
	for start := 0; start < len(contribs); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Greedy one-pass bucketing: the bucket is anchored at the
		// earliest unconsumed timestamp and absorbs everything within
		// the tolerance window.
		anchor := contribs[start].ts
		end := start + 1
		for end < len(contribs) && contribs[end].ts-anchor <= e.tolerance {
			end++
		}
		bucket := contribs[start:end]
		start = end

		out = append(out, e.emit(bucket))
	}

	e.logger.InfoContext(ctx, "merge completed",
		"contributions", len(contribs),
		"rows", len(out),
		"tolerance_ms", e.tolerance,
		"policy", e.policy,
	)

	return out, nil
}

// emit selects the bucket's representative timestamp and one row per
// contributing technology.
func (e *Engine) emit(bucket []contribution) model.IndexRow {
	rep := e.policy.representative(bucket)
	row := model.NewIndexRow(rep)

	for _, c := range bucket {
		cur := row.Idx(c.tech)
		if cur == model.NullIdx {
			row.SetIdx(c.tech, c.idx)
			continue
		}
		// Keep the row closest to the representative; ties break to the
		// lowest row index, which the sort order already guarantees for
		// equal distances seen earlier.
		if absDiff(c.ts, rep) < absDiff(tsOf(bucket, c.tech, cur), rep) {
			row.SetIdx(c.tech, c.idx)
		}
	}

	// The point label follows the first contributor in precedence order.
	row.PointID = bucket[0].point
	for _, tech := range model.Technologies() {
		if row.Idx(tech) != model.NullIdx {
			for _, c := range bucket {
				if c.tech == tech && c.idx == row.Idx(tech) {
					row.PointID = c.point
				}
			}
			break
		}
	}

	return row
}

func tsOf(bucket []contribution, tech model.Technology, idx int64) int64 {
	for _, c := range bucket {
		if c.tech == tech && c.idx == idx {
			return c.ts
		}
	}
	return 0
}

func absDiff(a, b int64) int64 {
	if a < b {
		return b - a
	}
	return a - b
}
