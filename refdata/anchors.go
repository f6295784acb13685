package refdata

import (
	"sort"

	"github.com/hupe1980/posisync/model"
)

// AnchorRecord is the surveyed position of a fixed transmitter/receiver
// (BLE beacon, WiFi AP, UWB anchor, NR5G RU) in the local frame (E,N,U).
// Immutable reference data.
type AnchorRecord struct {
	ID   string           `json:"anchor_id"`
	Tech model.Technology `json:"technology"`
	Pos  model.Vec3       `json:"local_coords"`
}

// Anchors is the anchor coordinate table.
type Anchors struct {
	byID   map[string]AnchorRecord
	byTech map[model.Technology][]AnchorRecord
}

// NewAnchors builds the anchor tables.
func NewAnchors(records []AnchorRecord) *Anchors {
	a := &Anchors{
		byID:   make(map[string]AnchorRecord, len(records)),
		byTech: make(map[model.Technology][]AnchorRecord),
	}
	for _, r := range records {
		a.byID[r.ID] = r
		a.byTech[r.Tech] = append(a.byTech[r.Tech], r)
	}
	for tech := range a.byTech {
		recs := a.byTech[tech]
		sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	}
	return a
}

// Get returns the record for an anchor ID.
func (a *Anchors) Get(anchorID string) (AnchorRecord, bool) {
	r, ok := a.byID[anchorID]
	return r, ok
}

// ByTechnology returns the anchors of a technology, sorted by ID. This is
// the canonical anchor order the cleaner normalizes range arrays to.
func (a *Anchors) ByTechnology(tech model.Technology) []AnchorRecord {
	return a.byTech[tech]
}
