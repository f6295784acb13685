// Package cleaner turns a raw per-technology measurement stream into an
// immutable, timestamp-sorted CleanedTable.
//
// A cleaning pass performs, in order: time-window assignment, point-scheme
// remapping, quality filtering, exact-duplicate removal, malfunction re-run
// flagging, and ground-truth association. Each technology runs its own
// cleaner instance on an independent input; instances share only the
// read-only reference context.
package cleaner

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/posisync/model"
	"github.com/hupe1980/posisync/pointmap"
	"github.com/hupe1980/posisync/refdata"
)

// Cleaner cleans one technology's raw stream. Safe for reuse across runs;
// it holds only immutable reference state.
type Cleaner struct {
	ref        *refdata.Context
	exclusions Exclusions
	anchorMap  map[string]string
	reorder    bool
	logger     *slog.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithExclusions replaces the default malfunction-run exclusion list.
func WithExclusions(e Exclusions) Option {
	return func(c *Cleaner) { c.exclusions = e }
}

// WithAnchorMapping installs a raw-log → survey anchor ID mapping
// (e.g. UWB hardware short IDs to "UWB_01".."UWB_10"). IDs without a
// mapping pass through unchanged.
func WithAnchorMapping(m map[string]string) Option {
	return func(c *Cleaner) { c.anchorMap = m }
}

// WithAnchorReorder enables canonical anchor ordering: anchor_ids are
// sorted ascending and the range array is permuted along. Raw UWB logs
// report anchors in reception order, which differs row to row.
func WithAnchorReorder() Option {
	return func(c *Cleaner) { c.reorder = true }
}

// WithLogger sets the logger for the cleaner.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cleaner) { c.logger = l }
}

// New creates a Cleaner over the given reference context.
func New(ref *refdata.Context, optFns ...Option) *Cleaner {
	c := &Cleaner{
		ref:        ref,
		exclusions: DefaultExclusions(),
		logger:     slog.Default(),
	}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

// Clean runs one cleaning pass over raw rows of a single technology.
//
// The returned table is sorted by timestamp ascending, contains no two rows
// with the same (point, ts), and every row carries a point identifier in
// the axis scheme. Row-level problems are recorded in Diagnostics and never
// abort the pass; ctx cancellation does.
func (c *Cleaner) Clean(ctx context.Context, tech model.Technology, raw []model.Row) (*model.CleanedTable, *Diagnostics, error) {
	diags := NewDiagnostics()

	type pending struct {
		row     model.TableRow
		sortKey int64
	}
	var rows []pending
	seen := make(map[string]struct{}, len(raw))

	for i, r := range raw {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		// 1. Window assignment. Rows outside every stationary interval
		// were taken while the trolley was moving and carry no point.
		win, ok := c.ref.Windows.Locate(r.Ts())
		if !ok {
			diags.add(Diagnostic{Kind: KindNoTimeWindowMatch, Tech: tech, TS: r.Ts()})
			continue
		}

		// 2. Point remap to the axis scheme.
		id, suffix, err := pointmap.MapRun(win.Point)
		if err != nil {
			diags.add(Diagnostic{Kind: KindUnknownPoint, Tech: tech, Point: win.Point, TS: r.Ts(), Err: err})
			continue
		}
		r.SetPoint(id)

		// 3. Payload normalization before the quality check, so rows whose
		// ranges are all sentinel values are rejected rather than kept.
		if m, isMeas := r.(*model.Measurement); isMeas {
			c.normalize(m)
		}

		// 4. Quality filter.
		if !r.Complete() {
			diags.add(Diagnostic{Kind: KindQualityFilterRejected, Tech: tech, Point: id, TS: r.Ts()})
			continue
		}

		// 5. Exact duplicates: same point, same ts. First occurrence wins.
		key := id + suffix + "\x00" + strconv.FormatInt(r.Ts(), 10)
		if _, dup := seen[key]; dup {
			diags.add(Diagnostic{Kind: KindDuplicateDropped, Tech: tech, Point: id, TS: r.Ts()})
			continue
		}
		seen[key] = struct{}{}

		// 6. Ground-truth association.
		refMissing := false
		if err := c.associate(r, tech, id); err != nil {
			diags.add(Diagnostic{Kind: KindPointNotFound, Tech: tech, Point: id, TS: r.Ts(), Err: err})
			refMissing = true
		}

		base := strings.TrimSuffix(win.Point, pointmap.RunSuffix)
		rows = append(rows, pending{
			row: model.TableRow{
				Row:               r,
				RunSuffix:         suffix,
				ExcludedFromMerge: c.exclusions.Excluded(base, suffix),
				RefMissing:        refMissing,
			},
			sortKey: r.Ts(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].sortKey < rows[j].sortKey })

	out := make([]model.TableRow, len(rows))
	for i, p := range rows {
		out[i] = p.row
	}

	c.logger.InfoContext(ctx, "cleaning pass completed",
		"technology", tech,
		"raw", len(raw),
		"kept", len(out),
		"dropped", len(raw)-len(out),
		"reference_gaps", diags.Count(KindPointNotFound),
	)

	return model.NewCleanedTable(tech, out), diags, nil
}

// normalize scrubs sentinel range values and canonicalizes anchor naming
// and order.
func (c *Cleaner) normalize(m *model.Measurement) {
	for i, r := range m.Ranges {
		// Raw logs report unavailable ranges as 0.0 (BLE) or +Inf (WiFi).
		if r == 0 || math.IsInf(r, 0) {
			m.Ranges[i] = math.NaN()
		}
	}

	if c.anchorMap != nil {
		for i, id := range m.AnchorIDs {
			if mapped, ok := c.anchorMap[id]; ok {
				m.AnchorIDs[i] = mapped
			}
		}
	}

	if c.reorder && len(m.AnchorIDs) == len(m.Ranges) {
		idx := make([]int, len(m.AnchorIDs))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return m.AnchorIDs[idx[a]] < m.AnchorIDs[idx[b]] })

		anchors := make([]string, len(idx))
		ranges := make([]float64, len(idx))
		for i, j := range idx {
			anchors[i] = m.AnchorIDs[j]
			ranges[i] = m.Ranges[j]
		}
		m.AnchorIDs, m.Ranges = anchors, ranges
	}
}

// associate resolves ground truth for a row. GNSS epochs additionally get
// the ECEF antenna reference.
func (c *Cleaner) associate(r model.Row, tech model.Technology, id string) error {
	local, err := c.ref.Points.Resolve(id, tech)
	if err != nil {
		return err
	}

	switch row := r.(type) {
	case *model.Measurement:
		row.Ref = local
	case *model.Epoch:
		row.Ref = local
		ecef, err := c.ref.Points.ResolveECEF(id)
		if err != nil {
			return err
		}
		row.RefECEF = ecef
	}
	return nil
}
