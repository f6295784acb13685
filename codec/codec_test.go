package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Point  string    `json:"point_id"`
	Ts     int64     `json:"ts"`
	Ranges []float64 `json:"ranges"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json", "gob"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		require.Equal(t, name, c.Name())
	}
	_, ok := ByName("msgpack")
	require.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	for _, c := range []Codec{JSON{}, GoJSON{}} {
		in := sample{Point: "A12B5", Ts: 1730000000000, Ranges: []float64{1.5, 2.25, 3}}
		data, err := c.Marshal(in)
		require.NoError(t, err)

		var out sample
		require.NoError(t, c.Unmarshal(data, &out))
		require.Equal(t, in, out, c.Name())
	}
}

func TestGobPreservesNaN(t *testing.T) {
	in := sample{Point: "A10B5", Ts: 42, Ranges: []float64{1.5, math.NaN()}}
	data, err := Gob{}.Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Gob{}.Unmarshal(data, &out))
	require.Equal(t, in.Ranges[0], out.Ranges[0])
	require.True(t, math.IsNaN(out.Ranges[1]))
}
