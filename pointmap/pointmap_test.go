package pointmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	tests := []struct {
		legacy string
		want   string
	}{
		{"101", "A13B6"},
		{"202", "A12B5"},
		{"310", "A04B4"},
		{"613", "A01B1"},
		{"T03", "T03"},
	}
	for _, tt := range tests {
		got, err := Map(tt.legacy)
		require.NoError(t, err, tt.legacy)
		require.Equal(t, tt.want, got)
	}
}

func TestMapPassthrough(t *testing.T) {
	// Already-renamed ids map to themselves.
	got, err := Map("A12B5")
	require.NoError(t, err)
	require.Equal(t, "A12B5", got)
}

func TestMapUnknown(t *testing.T) {
	_, err := Map("999")
	require.ErrorIs(t, err, ErrUnknownPoint)
}

func TestMapRun(t *testing.T) {
	id, suffix, err := MapRun("202_2")
	require.NoError(t, err)
	require.Equal(t, "A12B5", id)
	require.Equal(t, "_2", suffix)

	id, suffix, err = MapRun("204")
	require.NoError(t, err)
	require.Equal(t, "A10B5", id)
	require.Empty(t, suffix)
}

func TestIsTransition(t *testing.T) {
	require.True(t, IsTransition("T01"))
	require.False(t, IsTransition("A12B5"))
}
