package refdata

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/model"
)

func TestPointsResolve(t *testing.T) {
	points := NewPoints([]PointRecord{
		{
			ID:     "A12B5",
			Center: model.Vec3{X: 10, Y: 20, Z: 1.5},
			Offsets: map[model.Technology]model.Vec3{
				model.TechUWB:  {X: 0.1, Y: -0.2, Z: 0.3},
				model.TechGNSS: {Z: 0.45},
			},
			ECEF: model.Vec3{X: 3898547.2, Y: 855028.1, Z: 4958163.9},
		},
	})

	got, err := points.Resolve("A12B5", model.TechUWB)
	require.NoError(t, err)
	require.InDelta(t, 10.1, got.X, 1e-9)
	require.InDelta(t, 19.8, got.Y, 1e-9)
	require.InDelta(t, 1.8, got.Z, 1e-9)

	// Unknown sensor gets the plate center.
	got, err = points.Resolve("A12B5", model.TechWiFi)
	require.NoError(t, err)
	require.Equal(t, model.Vec3{X: 10, Y: 20, Z: 1.5}, got)

	_, err = points.Resolve("A99B9", model.TechUWB)
	require.ErrorIs(t, err, ErrPointNotFound)

	_, err = points.ResolveECEF("A99B9")
	require.ErrorIs(t, err, ErrPointNotFound)
}

func TestWindowsLocate(t *testing.T) {
	w := NewWindows([]TimeWindow{
		{Point: "204", Start: 2000, End: 2999},
		{Point: "202", Start: 1000, End: 1999},
		{Point: "202_2", Start: 5000, End: 5999},
	})

	win, ok := w.Locate(1500)
	require.True(t, ok)
	require.Equal(t, "202", win.Point)

	win, ok = w.Locate(2000) // inclusive start
	require.True(t, ok)
	require.Equal(t, "204", win.Point)

	win, ok = w.Locate(5999) // inclusive end
	require.True(t, ok)
	require.Equal(t, "202_2", win.Point)

	_, ok = w.Locate(4000)
	require.False(t, ok)
	_, ok = w.Locate(999)
	require.False(t, ok)
}

func TestParseWindowsCSV(t *testing.T) {
	in := strings.Join([]string{
		"point_id,start_time_local,end_time_local",
		"202,2024-10-23 12:00:00,2024-10-23 12:05:00",
		"202_2,2024-10-23 16:00:00,2024-10-23 16:05:00",
	}, "\n")

	windows, err := ParseWindowsCSV(strings.NewReader(in), time.FixedZone("CEST", 2*3600))
	require.NoError(t, err)
	require.Len(t, windows, 2)

	// 12:00 local (UTC+2) == 10:00 UTC.
	wantStart := time.Date(2024, 10, 23, 10, 0, 0, 0, time.UTC).UnixMilli()
	require.Equal(t, wantStart, windows[0].Start)
	require.Equal(t, "202", windows[0].Point)
	require.Equal(t, 5*time.Minute, windows[0].Duration())
}

func TestParseWindowsCSVRejectsInverted(t *testing.T) {
	in := "point_id,start_time_local,end_time_local\n202,2024-10-23 12:05:00,2024-10-23 12:00:00\n"
	_, err := ParseWindowsCSV(strings.NewReader(in), CampaignZone)
	require.Error(t, err)
}

func TestFitRigid(t *testing.T) {
	// 90° rotation plus translation (100, 50).
	src := [][2]float64{{0, 0}, {1, 0}, {0, 2}, {3, 4}}
	dst := make([][2]float64, len(src))
	for i, p := range src {
		dst[i] = [2]float64{-p[1] + 100, p[0] + 50}
	}

	tr, err := FitRigid(src, dst)
	require.NoError(t, err)

	x, y := tr.Apply(3, 4)
	require.InDelta(t, 96, x, 1e-9)
	require.InDelta(t, 53, y, 1e-9)

	inv := tr.Inverse()
	bx, by := inv.Apply(x, y)
	require.InDelta(t, 3, bx, 1e-9)
	require.InDelta(t, 4, by, 1e-9)
}

func TestFitRigidDegenerate(t *testing.T) {
	_, err := FitRigid([][2]float64{{0, 0}}, [][2]float64{{1, 1}})
	require.Error(t, err)
	_, err = FitRigid([][2]float64{{0, 0}, {1, 1}}, [][2]float64{{1, 1}})
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()
	c := codec.JSON{}

	points := []PointRecord{
		{ID: "A12B5", Center: model.Vec3{X: 1, Y: 2}, UTM: model.Vec3{X: 101, Y: 202}},
		{ID: "A10B5", Center: model.Vec3{X: 3, Y: 4}, UTM: model.Vec3{X: 103, Y: 204}},
	}
	data := codec.MustMarshal(c, points)
	require.NoError(t, store.Put(ctx, PointsBlob, data))

	anchors := []AnchorRecord{
		{ID: "UWB_02", Tech: model.TechUWB, Pos: model.Vec3{X: 5}},
		{ID: "UWB_01", Tech: model.TechUWB, Pos: model.Vec3{X: 4}},
	}
	require.NoError(t, store.Put(ctx, AnchorsBlob, codec.MustMarshal(c, anchors)))

	windowsCSV := "point_id,start_time_local,end_time_local\n202,2024-10-23 12:00:00,2024-10-23 12:05:00\n"
	require.NoError(t, store.Put(ctx, WindowsBlob, []byte(windowsCSV)))

	rc, err := Load(ctx, store, c)
	require.NoError(t, err)
	require.Equal(t, 2, rc.Points.Len())
	require.Equal(t, 1, rc.Windows.Len())
	require.NotNil(t, rc.LocalToUTM)

	// Anchors come back sorted per technology.
	uwb := rc.Anchors.ByTechnology(model.TechUWB)
	require.Equal(t, []string{"UWB_01", "UWB_02"}, []string{uwb[0].ID, uwb[1].ID})

	// Translation-only control points fit exactly.
	x, y := rc.LocalToUTM.Apply(1, 2)
	require.InDelta(t, 101, x, 1e-9)
	require.InDelta(t, 202, y, 1e-9)
}

func TestLoadMissingTable(t *testing.T) {
	store := blobstore.NewMemoryStore()
	_, err := Load(context.Background(), store, codec.JSON{})
	require.Error(t, err)
}
