package ingest

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/posisync/model"
)

func TestJSONLSource(t *testing.T) {
	input := `{"ts":1500,"anchor_ids":["BLE_01","BLE_02"],"ranges":[1.5,0]}

{"ts":1600,"anchor_ids":["BLE_01"],"ranges":[1.6]}
`
	s := NewJSONLSource(strings.NewReader(input))
	defer s.Close()

	rows, err := ReadAll(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Payload passes through untouched; sentinel scrubbing is the
	// cleaner's job.
	first := rows[0].(*model.Measurement)
	require.Equal(t, int64(1500), first.TS)
	require.Equal(t, []string{"BLE_01", "BLE_02"}, first.AnchorIDs)
	require.Equal(t, []float64{1.5, 0}, first.Ranges)

	_, err = s.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestJSONLSourceBadLine(t *testing.T) {
	s := NewJSONLSource(strings.NewReader("{\"ts\":1500}\nnot json\n"))
	defer s.Close()

	_, err := s.Next(context.Background())
	require.NoError(t, err)

	_, err = s.Next(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestJSONLSourceClosed(t *testing.T) {
	s := NewJSONLSource(strings.NewReader("{}"))
	require.NoError(t, s.Close())

	_, err := s.Next(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestJSONLEpochSource(t *testing.T) {
	input := `{"ts":1500,"gnss_sv_id":["G01"],"raw_pr_m":[2.1e7]}
`
	s := NewJSONLEpochSource(strings.NewReader(input))
	defer s.Close()

	e, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1500), e.TS)
	require.Equal(t, []string{"G01"}, e.SvID)

	_, err = s.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestWiFiCSVSource(t *testing.T) {
	input := `timestamp,AP1,AP2,AP3
1500,4.5,inf,6.25
1600,,+Inf,7.5
`
	s, err := NewWiFiCSVSource(strings.NewReader(input))
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, []string{"AP1", "AP2", "AP3"}, s.Anchors())

	m, err := s.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1500), m.TS)
	require.Equal(t, []string{"AP1", "AP2", "AP3"}, m.AnchorIDs)
	require.Equal(t, 4.5, m.Ranges[0])
	require.True(t, math.IsNaN(m.Ranges[1])) // inf means unreachable
	require.Equal(t, 6.25, m.Ranges[2])

	m, err = s.Next(context.Background())
	require.NoError(t, err)
	require.True(t, math.IsNaN(m.Ranges[0])) // empty cell
	require.True(t, math.IsNaN(m.Ranges[1]))

	_, err = s.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestWiFiCSVSourceHeaderValidation(t *testing.T) {
	_, err := NewWiFiCSVSource(strings.NewReader("AP1,AP2\n1,2\n"))
	require.Error(t, err)

	_, err = NewWiFiCSVSource(strings.NewReader("timestamp\n1500\n"))
	require.Error(t, err)
}

func TestWiFiCSVSourceBadTimestamp(t *testing.T) {
	s, err := NewWiFiCSVSource(strings.NewReader("timestamp,AP1\nnope,4.5\n"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Next(context.Background())
	require.Error(t, err)
}
