package refdata

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/codec"
)

// Default blob names of the reference tables inside a store.
const (
	PointsBlob  = "reference/point_coordinates.json"
	AnchorsBlob = "reference/anchor_coordinates.json"
	WindowsBlob = "reference/time_reference.csv"
)

// CampaignZone is the campaign's local clock offset. The time-reference
// table was kept in local wall time while all measurement logs carry UTC
// unix millis.
var CampaignZone = time.FixedZone("CEST", 2*60*60)

// Context bundles the immutable reference tables for one pipeline run.
// It is loaded once and shared read-only across all cleaner tasks.
type Context struct {
	Points  *Points
	Anchors *Anchors
	Windows *Windows

	// LocalToUTM is the fitted local → UTM transform, used by GNSS
	// consumers. May be nil when no control points are configured.
	LocalToUTM *RigidTransform
}

// Load reads all reference tables from a blob store.
func Load(ctx context.Context, store blobstore.Store, c codec.Codec) (*Context, error) {
	if c == nil {
		c = codec.Default
	}

	var points []PointRecord
	if err := loadJSON(ctx, store, c, PointsBlob, &points); err != nil {
		return nil, fmt.Errorf("load point coordinates: %w", err)
	}

	var anchors []AnchorRecord
	if err := loadJSON(ctx, store, c, AnchorsBlob, &anchors); err != nil {
		return nil, fmt.Errorf("load anchor coordinates: %w", err)
	}

	data, err := blobstore.ReadAll(ctx, store, WindowsBlob)
	if err != nil {
		return nil, fmt.Errorf("load time reference: %w", err)
	}
	windows, err := ParseWindowsCSV(bytes.NewReader(data), CampaignZone)
	if err != nil {
		return nil, fmt.Errorf("parse time reference: %w", err)
	}

	rc := &Context{
		Points:  NewPoints(points),
		Anchors: NewAnchors(anchors),
		Windows: NewWindows(windows),
	}

	// Fit the local→UTM transform from the surveyed pairs when present.
	var src, dst [][2]float64
	for _, p := range points {
		if p.UTM.X != 0 || p.UTM.Y != 0 {
			src = append(src, [2]float64{p.Center.X, p.Center.Y})
			dst = append(dst, [2]float64{p.UTM.X, p.UTM.Y})
		}
	}
	if len(src) >= 2 {
		t, err := FitRigid(src, dst)
		if err != nil {
			return nil, fmt.Errorf("fit local to UTM transform: %w", err)
		}
		rc.LocalToUTM = t
	}

	return rc, nil
}

func loadJSON(ctx context.Context, store blobstore.Store, c codec.Codec, name string, v any) error {
	data, err := blobstore.ReadAll(ctx, store, name)
	if err != nil {
		return err
	}
	return c.Unmarshal(data, v)
}

// windowTimeLayout is the wall-time format of the campaign's time-keeping
// sheet.
const windowTimeLayout = "2006-01-02 15:04:05"

// ParseWindowsCSV parses the time-reference table. The expected header is
//
//	point_id,start_time_local,end_time_local
//
// with wall times interpreted in loc and converted to UTC unix millis.
func ParseWindowsCSV(r io.Reader, loc *time.Location) ([]TimeWindow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"point_id", "start_time_local", "end_time_local"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("time reference missing column %q", required)
		}
	}

	var windows []TimeWindow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		start, err := time.ParseInLocation(windowTimeLayout, rec[col["start_time_local"]], loc)
		if err != nil {
			return nil, fmt.Errorf("window %q start: %w", rec[col["point_id"]], err)
		}
		end, err := time.ParseInLocation(windowTimeLayout, rec[col["end_time_local"]], loc)
		if err != nil {
			return nil, fmt.Errorf("window %q end: %w", rec[col["point_id"]], err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("window %q ends before it starts", rec[col["point_id"]])
		}

		windows = append(windows, TimeWindow{
			Point: rec[col["point_id"]],
			Start: start.UTC().UnixMilli(),
			End:   end.UTC().UnixMilli(),
		})
	}
	return windows, nil
}
