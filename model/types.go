package model

import (
	"fmt"
	"math"
)

// Technology identifies one of the campaign's positioning systems.
//
// The string values sort alphabetically: ble < gnss < nr5g < uwb < wifi.
// This ordering is the fixed technology precedence used by the merge engine
// when a deterministic tie-break between systems is required.
type Technology string

// Campaign technologies.
const (
	TechBLE  Technology = "ble"
	TechGNSS Technology = "gnss"
	TechNR5G Technology = "nr5g"
	TechUWB  Technology = "uwb"
	TechWiFi Technology = "wifi"
)

// Technologies returns all known technologies in precedence (alphabetical) order.
func Technologies() []Technology {
	return []Technology{TechBLE, TechGNSS, TechNR5G, TechUWB, TechWiFi}
}

// Valid reports whether t is one of the known technologies.
func (t Technology) Valid() bool {
	switch t {
	case TechBLE, TechGNSS, TechNR5G, TechUWB, TechWiFi:
		return true
	}
	return false
}

func (t Technology) String() string { return string(t) }

// Vec3 is a coordinate triple. The frame depends on context: local Cartesian
// (E,N,U), UTM, or ECEF.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

// Measurement is one ranging observation of a terrestrial technology.
//
// For BLE/WiFi/UWB, AnchorIDs and Ranges are parallel arrays: Ranges[i] is
// the measured distance to AnchorIDs[i]. Unavailable ranges are NaN, never
// 0 or +Inf. For NR5G, SNR is the parallel array and Pos carries the
// reported 2-D position estimate of the radio unit link.
type Measurement struct {
	PointID   string    `json:"point_id"`
	TS        int64     `json:"ts"` // unix millis
	AnchorIDs []string  `json:"anchor_ids"`
	Ranges    []float64 `json:"ranges,omitempty"`
	SNR       []float64 `json:"snr,omitempty"`
	Pos       []float64 `json:"pos,omitempty"` // NR5G only: (x, y)
	Ref       Vec3      `json:"ref"`           // ground truth, local frame
}

// Ts returns the measurement timestamp in unix milliseconds.
func (m *Measurement) Ts() int64 { return m.TS }

// Point returns the resolved point identifier.
func (m *Measurement) Point() string { return m.PointID }

// SetPoint updates the resolved point identifier.
func (m *Measurement) SetPoint(id string) { m.PointID = id }

// Complete reports whether the measurement satisfies the minimum
// completeness criteria: parallel arrays of equal, non-zero length with at
// least one finite range (or SNR sample for NR5G).
func (m *Measurement) Complete() bool {
	if len(m.AnchorIDs) == 0 {
		return false
	}
	vals := m.Ranges
	if len(vals) == 0 {
		vals = m.SNR
	}
	if len(vals) != len(m.AnchorIDs) {
		return false
	}
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// PayloadKey returns a stable fingerprint of the measurement payload, used
// for exact-duplicate detection within a time window.
func (m *Measurement) PayloadKey() string {
	return fmt.Sprintf("%v|%v|%v|%v", m.AnchorIDs, m.Ranges, m.SNR, m.Pos)
}

// Epoch is one GNSS observation instant.
//
// All per-satellite slices are parallel and indexed consistently by SvID
// position; Len returns their common length.
type Epoch struct {
	PointID         string    `json:"point_id"`
	TS              int64     `json:"ts"` // unix millis
	SvID            []string  `json:"gnss_sv_id"`
	ObservationCode []string  `json:"observation_code"`
	RawPrM          []float64 `json:"raw_pr_m"`
	CorrPrM         []float64 `json:"corr_pr_m"`
	CarrierPhase    []float64 `json:"carrier_phase"`
	RawDopplerHz    []float64 `json:"raw_doppler_hz"`
	Cn0DbHz         []float64 `json:"cn0_dbhz"`
	SvPosition      []Vec3    `json:"sv_position"`
	SvVelocity      []Vec3    `json:"sv_velocity"`
	SvClockBias     []float64 `json:"b_sv_m"`
	SvClockDrift    []float64 `json:"b_dot_sv_mps"`
	Ref             Vec3      `json:"ref"`      // ground truth, local frame
	RefECEF         Vec3      `json:"ref_ecef"` // ground truth, ECEF
}

// Ts returns the epoch timestamp in unix milliseconds.
func (e *Epoch) Ts() int64 { return e.TS }

// Point returns the resolved point identifier.
func (e *Epoch) Point() string { return e.PointID }

// SetPoint updates the resolved point identifier.
func (e *Epoch) SetPoint(id string) { e.PointID = id }

// Len returns the number of satellites in the epoch.
func (e *Epoch) Len() int { return len(e.SvID) }

// Complete reports whether the epoch has at least one visible satellite and
// all per-satellite arrays share the same length.
func (e *Epoch) Complete() bool {
	n := len(e.SvID)
	if n == 0 {
		return false
	}
	for _, l := range []int{
		len(e.ObservationCode), len(e.RawPrM), len(e.CorrPrM),
		len(e.CarrierPhase), len(e.RawDopplerHz), len(e.Cn0DbHz),
		len(e.SvPosition), len(e.SvVelocity),
		len(e.SvClockBias), len(e.SvClockDrift),
	} {
		if l != n {
			return false
		}
	}
	return true
}

// PayloadKey returns a stable fingerprint of the epoch payload, used for
// exact-duplicate detection within a time window.
func (e *Epoch) PayloadKey() string {
	return fmt.Sprintf("%v|%v|%v", e.SvID, e.RawPrM, e.CarrierPhase)
}

// Row is the cleaner- and merge-facing view of a measurement record.
// *Measurement and *Epoch both implement it.
type Row interface {
	// Ts returns the record timestamp in unix milliseconds.
	Ts() int64
	// Point returns the resolved point identifier (axis scheme).
	Point() string
	// SetPoint updates the resolved point identifier.
	SetPoint(id string)
	// Complete reports whether the record passes minimum completeness.
	Complete() bool
	// PayloadKey returns a stable duplicate-detection fingerprint.
	PayloadKey() string
}
