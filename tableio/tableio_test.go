package tableio

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/model"
)

func measurementTable() *model.CleanedTable {
	return model.NewCleanedTable(model.TechUWB, []model.TableRow{
		{
			Row: &model.Measurement{
				PointID:   "A12B5",
				TS:        1729684800000,
				AnchorIDs: []string{"UWB_01", "UWB_02", "UWB_03"},
				Ranges:    []float64{1.25, math.NaN(), 3.75},
				Ref:       model.Vec3{X: 10, Y: 20, Z: 0.3},
			},
			ExcludedFromMerge: true,
		},
		{
			Row: &model.Measurement{
				PointID:   "A12B5",
				TS:        1729699200000,
				AnchorIDs: []string{"UWB_01", "UWB_02", "UWB_03"},
				Ranges:    []float64{1.5, 2.5, 3.5},
				Ref:       model.Vec3{X: 10, Y: 20, Z: 0.3},
			},
			RunSuffix: "_2",
		},
	})
}

func epochTable() *model.CleanedTable {
	return model.NewCleanedTable(model.TechGNSS, []model.TableRow{
		{
			Row: &model.Epoch{
				PointID:         "A04B4",
				TS:              1729684801000,
				SvID:            []string{"G01", "G02"},
				ObservationCode: []string{"1C", "1C"},
				RawPrM:          []float64{2.1e7, 2.3e7},
				CorrPrM:         []float64{2.0999e7, 2.2999e7},
				CarrierPhase:    []float64{1.1e8, math.NaN()},
				RawDopplerHz:    []float64{-1200.5, 800.25},
				Cn0DbHz:         []float64{45, 38},
				SvPosition:      []model.Vec3{{X: 1.5e7, Y: 2e7, Z: 1e7}, {X: -1e7, Y: 2.2e7, Z: 0.5e7}},
				SvVelocity:      []model.Vec3{{X: 100, Y: -200, Z: 300}, {X: 150, Y: 250, Z: -350}},
				SvClockBias:     []float64{120000.5, -98000.25},
				SvClockDrift:    []float64{0.001, -0.002},
				Ref:             model.Vec3{X: 14, Y: 22},
				RefECEF:         model.Vec3{X: 3898547.2, Y: 855028.1, Z: 4958163.9},
			},
		},
	})
}

func indexRows() []model.IndexRow {
	a := model.NewIndexRow(1729684800000)
	a.PointID = "A12B5"
	a.SetIdx(model.TechUWB, 0)
	a.SetIdx(model.TechGNSS, 0)

	b := model.NewIndexRow(1729684800250)
	b.PointID = "A12B5"
	b.SetIdx(model.TechWiFi, 4)

	return []model.IndexRow{a, b}
}

func requireTablesEqual(t *testing.T, want, got *model.CleanedTable) {
	t.Helper()
	require.Equal(t, want.Tech, got.Tech)
	require.Equal(t, want.Len(), got.Len())
	for i := range want.Rows {
		w, g := want.Rows[i], got.Rows[i]
		require.Equal(t, w.RunSuffix, g.RunSuffix)
		require.Equal(t, w.ExcludedFromMerge, g.ExcludedFromMerge)
		require.Equal(t, w.RefMissing, g.RefMissing)

		switch wr := w.Row.(type) {
		case *model.Measurement:
			gr := g.Row.(*model.Measurement)
			require.Equal(t, wr.PointID, gr.PointID)
			require.Equal(t, wr.TS, gr.TS)
			require.Equal(t, wr.AnchorIDs, gr.AnchorIDs)
			requireFloatsEqual(t, wr.Ranges, gr.Ranges)
			require.Equal(t, wr.Ref, gr.Ref)
		case *model.Epoch:
			gr := g.Row.(*model.Epoch)
			require.Equal(t, wr.PointID, gr.PointID)
			require.Equal(t, wr.TS, gr.TS)
			require.Equal(t, wr.SvID, gr.SvID)
			require.Equal(t, wr.ObservationCode, gr.ObservationCode)
			requireFloatsEqual(t, wr.RawPrM, gr.RawPrM)
			requireFloatsEqual(t, wr.CarrierPhase, gr.CarrierPhase)
			require.Equal(t, wr.SvPosition, gr.SvPosition)
			require.Equal(t, wr.SvVelocity, gr.SvVelocity)
			requireFloatsEqual(t, wr.SvClockBias, gr.SvClockBias)
			require.Equal(t, wr.RefECEF, gr.RefECEF)
			require.Equal(t, gr.Len(), len(gr.SvID))
			require.True(t, gr.Complete())
		}
	}
	require.Equal(t, want.ExclusionMask().ToArray(), got.ExclusionMask().ToArray())
}

func requireFloatsEqual(t *testing.T, want, got []float64) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		if math.IsNaN(want[i]) {
			require.True(t, math.IsNaN(got[i]), "index %d", i)
		} else {
			require.Equal(t, want[i], got[i], "index %d", i)
		}
	}
}

func TestRoundTripAllFormats(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSONL, FormatNative} {
		t.Run(string(f), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			ctx := context.Background()
			w := NewWriter(store)
			r := NewReader(store)

			_, err := w.WriteTable(ctx, f, measurementTable())
			require.NoError(t, err)
			got, err := r.ReadTable(ctx, f, model.TechUWB)
			require.NoError(t, err)
			requireTablesEqual(t, measurementTable(), got)

			_, err = w.WriteTable(ctx, f, epochTable())
			require.NoError(t, err)
			gotEpoch, err := r.ReadTable(ctx, f, model.TechGNSS)
			require.NoError(t, err)
			requireTablesEqual(t, epochTable(), gotEpoch)

			_, err = w.WriteIndex(ctx, f, indexRows())
			require.NoError(t, err)
			gotIdx, err := r.ReadIndex(ctx, f)
			require.NoError(t, err)
			require.Equal(t, indexRows(), gotIdx)
		})
	}
}

func TestRoundTripCompressed(t *testing.T) {
	for _, comp := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(string(comp), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			ctx := context.Background()
			w := NewWriter(store, WithCompression(comp))
			r := NewReader(store, WithReadCompression(comp))

			name, err := w.WriteTable(ctx, FormatJSONL, measurementTable())
			require.NoError(t, err)
			require.Contains(t, name, comp.suffix())

			got, err := r.ReadTable(ctx, FormatJSONL, model.TechUWB)
			require.NoError(t, err)
			requireTablesEqual(t, measurementTable(), got)
		})
	}
}

func TestRoundTripCodecs(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			ctx := context.Background()
			w := NewWriter(store, WithCodec(c))
			r := NewReader(store, WithReadCodec(c))

			_, err := w.WriteIndex(ctx, FormatJSONL, indexRows())
			require.NoError(t, err)
			got, err := r.ReadIndex(ctx, FormatJSONL)
			require.NoError(t, err)
			require.Equal(t, indexRows(), got)
		})
	}
}

func TestIndexCSVNullMarker(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()
	w := NewWriter(store)

	name, err := w.WriteIndex(ctx, FormatCSV, indexRows())
	require.NoError(t, err)

	raw, err := blobstore.ReadAll(ctx, store, name)
	require.NoError(t, err)

	// Null pointers serialize as empty cells, not "-1".
	require.NotContains(t, string(raw), "-1")
}

func TestReadMissingTable(t *testing.T) {
	r := NewReader(blobstore.NewMemoryStore())
	_, err := r.ReadTable(context.Background(), FormatCSV, model.TechUWB)
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestWriteInvalidFormat(t *testing.T) {
	w := NewWriter(blobstore.NewMemoryStore())
	_, err := w.WriteTable(context.Background(), Format("parquet"), measurementTable())
	require.Error(t, err)
}
