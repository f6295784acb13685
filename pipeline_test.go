package posisync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/manifest"
	"github.com/hupe1980/posisync/merge"
	"github.com/hupe1980/posisync/model"
	"github.com/hupe1980/posisync/refdata"
	"github.com/hupe1980/posisync/tableio"
)

func testRef(t *testing.T) *refdata.Context {
	t.Helper()

	points := refdata.NewPoints([]refdata.PointRecord{
		{ID: "A12B5", Center: model.Vec3{X: 10, Y: 20}}, // legacy 202
		{ID: "A10B5", Center: model.Vec3{X: 12, Y: 20}}, // legacy 204
	})

	windows := refdata.NewWindows([]refdata.TimeWindow{
		{Point: "204", Start: 3000, End: 3999},
		{Point: "202_2", Start: 8000, End: 8999},
	})

	return &refdata.Context{
		Points:  points,
		Anchors: refdata.NewAnchors(nil),
		Windows: windows,
	}
}

func rawRow(ts int64, anchor string, rng float64) model.Row {
	return &model.Measurement{TS: ts, AnchorIDs: []string{anchor}, Ranges: []float64{rng}}
}

func testInputs() []Input {
	return []Input{
		{Tech: model.TechUWB, Rows: []model.Row{
			rawRow(3500, "UWB_01", 1.5),
			rawRow(8500, "UWB_01", 1.8),
		}},
		{Tech: model.TechWiFi, Rows: []model.Row{
			rawRow(3505, "AP1", 4.5),
			rawRow(8497, "AP1", 4.8),
		}},
	}
}

func TestPipelineRunEndToEnd(t *testing.T) {
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}
	p := New(store, testRef(t), WithMetricsCollector(metrics))
	ctx := context.Background()

	result, err := p.Run(ctx, testInputs())
	require.NoError(t, err)

	require.Len(t, result.Tables, 2)
	require.Equal(t, 2, result.Tables[model.TechUWB].Len())
	require.Equal(t, 2, result.Tables[model.TechWiFi].Len())

	// Both instants carry one row per technology, within tolerance.
	require.Len(t, result.Index, 2)
	for _, row := range result.Index {
		require.Equal(t, []model.Technology{model.TechUWB, model.TechWiFi}, row.Contributors())
	}
	require.Equal(t, int64(3500), result.Index[0].TS)
	require.Equal(t, "A10B5", result.Index[0].PointID)
	require.Equal(t, int64(8497), result.Index[1].TS)
	require.Equal(t, "A12B5", result.Index[1].PointID)

	// The committed manifest names all written blobs.
	m, err := manifest.NewStore(store).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, result.Manifest.RunID, m.RunID)
	require.Equal(t, int64(10), m.ToleranceMS)
	require.Equal(t, string(merge.PolicyMedian), m.Policy)
	require.Len(t, m.Tables, 2)
	require.NotNil(t, m.Index)
	require.Equal(t, 2, m.Index.Rows)

	// Written tables read back row-identical.
	r := tableio.NewReader(store)
	table, err := r.ReadTable(ctx, tableio.FormatJSONL, model.TechUWB)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	require.Equal(t, int64(3500), table.Rows[0].Row.Ts())

	index, err := r.ReadIndex(ctx, tableio.FormatJSONL)
	require.NoError(t, err)
	require.Equal(t, result.Index, index)

	stats := metrics.GetStats()
	require.Equal(t, int64(2), stats.CleanCount)
	require.Equal(t, int64(1), stats.MergeCount)
	require.Equal(t, int64(3), stats.WriteCount) // two tables + index
}

func TestPipelineRunWithoutStore(t *testing.T) {
	p := New(nil, testRef(t))

	result, err := p.Run(context.Background(), testInputs())
	require.NoError(t, err)
	require.Len(t, result.Index, 2)
	require.NotEmpty(t, result.Manifest.RunID)
	require.Empty(t, result.Manifest.Tables)
	require.Nil(t, result.Manifest.Index)
}

func TestPipelineExcludedRunsStayOutOfIndex(t *testing.T) {
	ref := testRef(t)
	ref.Windows = refdata.NewWindows([]refdata.TimeWindow{
		{Point: "202", Start: 1000, End: 1999}, // malfunction run
		{Point: "202_2", Start: 8000, End: 8999},
	})
	p := New(nil, ref)

	result, err := p.Run(context.Background(), []Input{
		{Tech: model.TechUWB, Rows: []model.Row{
			rawRow(1500, "UWB_01", 1.5),
			rawRow(8500, "UWB_01", 1.8),
		}},
	})
	require.NoError(t, err)

	// Both rows stay in the table, only the re-run reaches the index.
	require.Equal(t, 2, result.Tables[model.TechUWB].Len())
	require.Len(t, result.Index, 1)
	require.Equal(t, int64(8500), result.Index[0].TS)
	require.Equal(t, int64(1), result.Index[0].Idx(model.TechUWB))
}

func TestPipelineCustomToleranceAndPolicy(t *testing.T) {
	p := New(nil, testRef(t),
		WithTolerance(2*time.Millisecond),
		WithMergePolicy(merge.PolicyTechPrecedence),
	)

	result, err := p.Run(context.Background(), testInputs())
	require.NoError(t, err)

	// 5ms and 3ms gaps exceed a 2ms window; every contribution stands alone.
	require.Len(t, result.Index, 4)
	require.Equal(t, "tech-precedence", result.Manifest.Policy)
	require.Equal(t, int64(2), result.Manifest.ToleranceMS)
}

func TestPipelineEmptyInputs(t *testing.T) {
	store := blobstore.NewMemoryStore()
	p := New(store, testRef(t))
	ctx := context.Background()

	result, err := p.Run(ctx, []Input{{Tech: model.TechUWB}, {Tech: model.TechBLE}})
	require.NoError(t, err)
	require.Empty(t, result.Index)
	require.Zero(t, result.Tables[model.TechUWB].Len())

	m, err := manifest.NewStore(store).Load(ctx)
	require.NoError(t, err)
	require.Zero(t, m.Tables[model.TechUWB].Rows)
	require.Zero(t, m.Index.Rows)
}

func TestPipelineInputValidation(t *testing.T) {
	p := New(nil, testRef(t))
	ctx := context.Background()

	_, err := p.Run(ctx, []Input{{Tech: model.TechUWB}, {Tech: model.TechUWB}})
	require.ErrorIs(t, err, ErrDuplicateInput)

	_, err = p.Run(ctx, []Input{{Tech: model.Technology("lifi")}})
	require.ErrorIs(t, err, ErrUnknownTechnology)
}

func TestPipelineContextCancel(t *testing.T) {
	p := New(nil, testRef(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testInputs())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipelineReferenceGaps(t *testing.T) {
	ref := testRef(t)
	ref.Points = refdata.NewPoints(nil)
	p := New(nil, ref)

	result, err := p.Run(context.Background(), testInputs())
	require.NoError(t, err)
	require.Len(t, result.ReferenceGaps(), 4)
	for _, table := range result.Tables {
		for _, row := range table.Rows {
			require.True(t, row.RefMissing)
		}
	}
}
