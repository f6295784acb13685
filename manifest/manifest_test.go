package manifest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ms := NewStore(store)
	ctx := context.Background()

	m := New()
	m.ToleranceMS = 10
	m.Policy = "median"
	m.Codec = "go-json"
	m.Format = "jsonl"
	m.Tables[model.TechUWB] = TableInfo{
		Blob:     "jsonl/uwb.jsonl",
		Rows:     128,
		Excluded: 4,
		Diagnostics: map[string]int{
			"duplicate_dropped": 2,
		},
	}
	m.Index = &IndexInfo{Blob: "jsonl/merged.jsonl", Rows: 96}

	require.NoError(t, ms.Save(ctx, m))

	got, err := ms.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, m.RunID, got.RunID)
	require.Equal(t, CurrentVersion, got.Version)
	require.False(t, got.FinishedAt.IsZero())
	require.Equal(t, m.Tables, got.Tables)
	require.Equal(t, m.Index, got.Index)
	require.Equal(t, m.ToleranceMS, got.ToleranceMS)
}

func TestLoadEmptyStore(t *testing.T) {
	ms := NewStore(blobstore.NewMemoryStore())
	_, err := ms.Load(context.Background())
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCurrentPointerAdvances(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ms := NewStore(store)
	ctx := context.Background()

	first := New()
	require.NoError(t, ms.Save(ctx, first))

	second := New()
	require.NoError(t, ms.Save(ctx, second))
	require.NotEqual(t, first.RunID, second.RunID)

	got, err := ms.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, second.RunID, got.RunID)

	names, err := ms.List(ctx)
	require.NoError(t, err)
	require.Len(t, names, 2)
	require.Contains(t, names, first.Name())
	require.Contains(t, names, second.Name())
}
