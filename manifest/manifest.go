// Package manifest records what a preprocessing run produced: which table
// blobs were written, how many rows each holds, and the cleaning diagnostics.
// The latest committed run is tracked through a CURRENT pointer blob so
// readers always see a complete run.
package manifest

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/model"
)

const (
	// Dir is the blob prefix under which manifests live.
	Dir = "manifests"
	// CurrentName is the pointer blob naming the latest committed manifest.
	CurrentName = "manifests/CURRENT"
	// CurrentVersion is the manifest schema version.
	CurrentVersion = 1
)

// Manifest describes one completed preprocessing run.
type Manifest struct {
	Version     int       `json:"version"`
	RunID       string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	FinishedAt  time.Time `json:"finished_at"`
	ToleranceMS int64     `json:"tolerance_ms"`
	Policy      string    `json:"policy"`
	Codec       string    `json:"codec"`
	Format      string    `json:"format"`
	Compression string    `json:"compression,omitempty"`

	Tables map[model.Technology]TableInfo `json:"tables"`
	Index  *IndexInfo                     `json:"index,omitempty"`
}

// TableInfo describes a single written technology table.
type TableInfo struct {
	Blob        string         `json:"blob"`
	Rows        int            `json:"rows"`
	Excluded    int            `json:"excluded,omitempty"`
	Diagnostics map[string]int `json:"diagnostics,omitempty"`
}

// IndexInfo describes the written synchronized index.
type IndexInfo struct {
	Blob string `json:"blob"`
	Rows int    `json:"rows"`
}

// New creates an empty manifest with a fresh run ID.
func New() *Manifest {
	return &Manifest{
		Version:   CurrentVersion,
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Tables:    make(map[model.Technology]TableInfo),
	}
}

// Name returns the blob name this manifest is committed under.
func (m *Manifest) Name() string {
	return path.Join(Dir, fmt.Sprintf("MANIFEST-%s.json", m.RunID))
}

// Store commits manifests to a blob store and tracks the latest one.
type Store struct {
	store blobstore.Store
	codec codec.Codec
	mu    sync.Mutex
}

// StoreOption configures a manifest store.
type StoreOption func(*Store)

// WithCodec sets the codec used for manifest blobs.
func WithCodec(c codec.Codec) StoreOption {
	return func(s *Store) {
		s.codec = c
	}
}

// NewStore creates a manifest store on top of a blob store.
func NewStore(store blobstore.Store, optFns ...StoreOption) *Store {
	s := &Store{
		store: store,
		codec: codec.Default,
	}

	for _, fn := range optFns {
		fn(s)
	}

	return s
}

// Save writes the manifest blob and then advances the CURRENT pointer.
// The pointer update is last so a crash mid-save never exposes a partial run.
func (s *Store) Save(ctx context.Context, m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.Version = CurrentVersion
	if m.FinishedAt.IsZero() {
		m.FinishedAt = time.Now().UTC()
	}

	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	name := m.Name()
	if err := s.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("write manifest %s: %w", name, err)
	}

	if err := s.store.Put(ctx, CurrentName, []byte(name)); err != nil {
		return fmt.Errorf("update current pointer: %w", err)
	}

	return nil
}

// Load returns the latest committed manifest. A store without any committed
// run returns blobstore.ErrNotFound.
func (s *Store) Load(ctx context.Context) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ptr, err := blobstore.ReadAll(ctx, s.store, CurrentName)
	if err != nil {
		return nil, err
	}

	data, err := blobstore.ReadAll(ctx, s.store, string(ptr))
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", ptr, err)
	}

	var m Manifest
	if err := s.codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported manifest version %d (expected %d)", m.Version, CurrentVersion)
	}

	return &m, nil
}

// List returns the names of all committed manifest blobs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.store.List(ctx, Dir+"/MANIFEST-")
	if err != nil {
		return nil, err
	}
	return names, nil
}
