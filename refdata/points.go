// Package refdata holds the immutable reference tables of a measurement
// campaign: surveyed point coordinates, anchor positions, and the
// time-reference windows. A Context is loaded once per run and shared
// read-only by all concurrent cleaner tasks.
package refdata

import (
	"errors"
	"fmt"

	"github.com/hupe1980/posisync/model"
)

// ErrPointNotFound is returned when a resolved point identifier has no
// reference coordinates. A point that passed the scheme mapper must have
// them, so this indicates reference-data inconsistency the operator has to
// audit before trusting the merged output.
var ErrPointNotFound = errors.New("point not found in reference data")

// PointRecord maps an axis-scheme point identifier to its surveyed ground
// truth. Each technology's sensor sits at a fixed offset on the measurement
// plate, so the reference position differs per technology.
//
// Created once from survey data; immutable thereafter.
type PointRecord struct {
	ID string `json:"point_id"`

	// Center is the surveyed plate center in the local Cartesian frame.
	Center model.Vec3 `json:"center"`

	// Offsets holds the per-technology sensor offset relative to Center,
	// in the local frame.
	Offsets map[model.Technology]model.Vec3 `json:"offsets"`

	// UTM is the plate center in the UTM frame (GNSS consumers).
	UTM model.Vec3 `json:"utm"`

	// ECEF is the GNSS antenna ground truth in the ECEF frame.
	ECEF model.Vec3 `json:"ecef"`
}

// Points is the surveyed point coordinate table.
type Points struct {
	records map[string]PointRecord
}

// NewPoints builds the lookup table from survey records.
func NewPoints(records []PointRecord) *Points {
	m := make(map[string]PointRecord, len(records))
	for _, r := range records {
		m[r.ID] = r
	}
	return &Points{records: m}
}

// Get returns the record for a point.
func (p *Points) Get(pointID string) (PointRecord, error) {
	r, ok := p.records[pointID]
	if !ok {
		return PointRecord{}, fmt.Errorf("%w: %q", ErrPointNotFound, pointID)
	}
	return r, nil
}

// Len returns the number of surveyed points.
func (p *Points) Len() int { return len(p.records) }

// Resolve returns the ground-truth coordinate for the given point and
// technology in the local frame: plate center plus the sensor offset.
func (p *Points) Resolve(pointID string, tech model.Technology) (model.Vec3, error) {
	r, err := p.Get(pointID)
	if err != nil {
		return model.Vec3{}, err
	}
	off := r.Offsets[tech] // zero offset for unknown sensors
	return model.Vec3{
		X: r.Center.X + off.X,
		Y: r.Center.Y + off.Y,
		Z: r.Center.Z + off.Z,
	}, nil
}

// ResolveECEF returns the GNSS antenna ground truth in the ECEF frame.
func (p *Points) ResolveECEF(pointID string) (model.Vec3, error) {
	r, err := p.Get(pointID)
	if err != nil {
		return model.Vec3{}, err
	}
	return r.ECEF, nil
}
