package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/posisync/model"
)

// WiFiCSVSource reads the WiFi collector's wide CSV: a timestamp column
// followed by one distance column per access point (AP1..AP6). The column
// headers become the anchor IDs. Unreachable access points are logged as
// inf and converted to NaN here, so downstream code never sees the sentinel.
type WiFiCSVSource struct {
	reader  *csv.Reader
	closer  io.Closer
	anchors []string
	tsCol   int
	apCols  []int
	line    int
	closed  bool
}

// NewWiFiCSVSource creates a source over r. The first record must be a
// header with a "timestamp" column; every other column is taken as an
// access point. If r is an io.Closer, Close closes it.
func NewWiFiCSVSource(r io.Reader) (*WiFiCSVSource, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	s := &WiFiCSVSource{
		reader: cr,
		tsCol:  -1,
		line:   1,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}

	for i, name := range header {
		if strings.EqualFold(name, "timestamp") {
			s.tsCol = i
			continue
		}
		s.anchors = append(s.anchors, name)
		s.apCols = append(s.apCols, i)
	}
	if s.tsCol < 0 {
		return nil, fmt.Errorf("header missing timestamp column: %v", header)
	}
	if len(s.apCols) == 0 {
		return nil, fmt.Errorf("header has no access point columns: %v", header)
	}

	return s, nil
}

// Anchors returns the access point IDs from the header, in column order.
func (s *WiFiCSVSource) Anchors() []string {
	return s.anchors
}

// Next implements Source.
func (s *WiFiCSVSource) Next(ctx context.Context) (*model.Measurement, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	s.line++

	ts, err := strconv.ParseInt(rec[s.tsCol], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d: timestamp: %w", s.line, err)
	}

	ranges := make([]float64, len(s.apCols))
	for i, col := range s.apCols {
		ranges[i], err = parseRange(rec[col])
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", s.line, s.anchors[i], err)
		}
	}

	return &model.Measurement{
		TS:        ts,
		AnchorIDs: append([]string(nil), s.anchors...),
		Ranges:    ranges,
	}, nil
}

// Close implements Source.
func (s *WiFiCSVSource) Close() error {
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// parseRange converts one distance cell. Empty cells and infinities mean
// the access point was out of reach.
func parseRange(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return math.NaN(), nil
	}
	return v, nil
}
