package tableio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/hupe1980/posisync/model"
)

// Floats is a float array whose JSON form maps NaN to null and back, so
// unavailable ranges survive the csv and jsonl formats losslessly. The gob
// format encodes NaN natively.
type Floats []float64

// MarshalJSON encodes NaN as null.
func (f Floats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) {
			buf.WriteString("null")
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes null as NaN.
func (f *Floats) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Floats, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*f = out
	return nil
}

// nullableIdx is a row pointer whose JSON form uses null for "no row".
type nullableIdx int64

func (n nullableIdx) MarshalJSON() ([]byte, error) {
	if int64(n) == model.NullIdx {
		return []byte("null"), nil
	}
	return json.Marshal(int64(n))
}

func (n *nullableIdx) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = nullableIdx(model.NullIdx)
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("row pointer must be non-negative, got %d", v)
	}
	*n = nullableIdx(v)
	return nil
}

// wireMeasurement is the serialized form of a terrestrial table row.
type wireMeasurement struct {
	PointID           string     `json:"point_id"`
	TS                int64      `json:"ts"`
	AnchorIDs         []string   `json:"anchor_ids"`
	Ranges            Floats     `json:"ranges,omitempty"`
	SNR               Floats     `json:"snr,omitempty"`
	Pos               Floats     `json:"pos,omitempty"`
	Ref               model.Vec3 `json:"ref"`
	RunSuffix         string     `json:"run_suffix,omitempty"`
	ExcludedFromMerge bool       `json:"excluded_from_merge,omitempty"`
	RefMissing        bool       `json:"ref_missing,omitempty"`
}

func toWireMeasurement(r model.TableRow) (wireMeasurement, error) {
	m, ok := r.Row.(*model.Measurement)
	if !ok {
		return wireMeasurement{}, fmt.Errorf("expected measurement row, got %T", r.Row)
	}
	return wireMeasurement{
		PointID:           m.PointID,
		TS:                m.TS,
		AnchorIDs:         m.AnchorIDs,
		Ranges:            Floats(m.Ranges),
		SNR:               Floats(m.SNR),
		Pos:               Floats(m.Pos),
		Ref:               m.Ref,
		RunSuffix:         r.RunSuffix,
		ExcludedFromMerge: r.ExcludedFromMerge,
		RefMissing:        r.RefMissing,
	}, nil
}

func (w wireMeasurement) tableRow() model.TableRow {
	return model.TableRow{
		Row: &model.Measurement{
			PointID:   w.PointID,
			TS:        w.TS,
			AnchorIDs: w.AnchorIDs,
			Ranges:    []float64(w.Ranges),
			SNR:       []float64(w.SNR),
			Pos:       []float64(w.Pos),
			Ref:       w.Ref,
		},
		RunSuffix:         w.RunSuffix,
		ExcludedFromMerge: w.ExcludedFromMerge,
		RefMissing:        w.RefMissing,
	}
}

// wireEpoch is the serialized form of a GNSS table row.
type wireEpoch struct {
	PointID           string       `json:"point_id"`
	TS                int64        `json:"ts"`
	SvID              []string     `json:"gnss_sv_id"`
	ObservationCode   []string     `json:"observation_code"`
	RawPrM            Floats       `json:"raw_pr_m"`
	CorrPrM           Floats       `json:"corr_pr_m"`
	CarrierPhase      Floats       `json:"carrier_phase"`
	RawDopplerHz      Floats       `json:"raw_doppler_hz"`
	Cn0DbHz           Floats       `json:"cn0_dbhz"`
	SvPosition        []model.Vec3 `json:"sv_position"`
	SvVelocity        []model.Vec3 `json:"sv_velocity"`
	SvClockBias       Floats       `json:"b_sv_m"`
	SvClockDrift      Floats       `json:"b_dot_sv_mps"`
	Ref               model.Vec3   `json:"ref"`
	RefECEF           model.Vec3   `json:"ref_ecef"`
	RunSuffix         string       `json:"run_suffix,omitempty"`
	ExcludedFromMerge bool         `json:"excluded_from_merge,omitempty"`
	RefMissing        bool         `json:"ref_missing,omitempty"`
}

func toWireEpoch(r model.TableRow) (wireEpoch, error) {
	e, ok := r.Row.(*model.Epoch)
	if !ok {
		return wireEpoch{}, fmt.Errorf("expected epoch row, got %T", r.Row)
	}
	return wireEpoch{
		PointID:           e.PointID,
		TS:                e.TS,
		SvID:              e.SvID,
		ObservationCode:   e.ObservationCode,
		RawPrM:            Floats(e.RawPrM),
		CorrPrM:           Floats(e.CorrPrM),
		CarrierPhase:      Floats(e.CarrierPhase),
		RawDopplerHz:      Floats(e.RawDopplerHz),
		Cn0DbHz:           Floats(e.Cn0DbHz),
		SvPosition:        e.SvPosition,
		SvVelocity:        e.SvVelocity,
		SvClockBias:       Floats(e.SvClockBias),
		SvClockDrift:      Floats(e.SvClockDrift),
		Ref:               e.Ref,
		RefECEF:           e.RefECEF,
		RunSuffix:         r.RunSuffix,
		ExcludedFromMerge: r.ExcludedFromMerge,
		RefMissing:        r.RefMissing,
	}, nil
}

func (w wireEpoch) tableRow() model.TableRow {
	return model.TableRow{
		Row: &model.Epoch{
			PointID:         w.PointID,
			TS:              w.TS,
			SvID:            w.SvID,
			ObservationCode: w.ObservationCode,
			RawPrM:          []float64(w.RawPrM),
			CorrPrM:         []float64(w.CorrPrM),
			CarrierPhase:    []float64(w.CarrierPhase),
			RawDopplerHz:    []float64(w.RawDopplerHz),
			Cn0DbHz:         []float64(w.Cn0DbHz),
			SvPosition:      w.SvPosition,
			SvVelocity:      w.SvVelocity,
			SvClockBias:     []float64(w.SvClockBias),
			SvClockDrift:    []float64(w.SvClockDrift),
			Ref:             w.Ref,
			RefECEF:         w.RefECEF,
		},
		RunSuffix:         w.RunSuffix,
		ExcludedFromMerge: w.ExcludedFromMerge,
		RefMissing:        w.RefMissing,
	}
}

// wireIndexRow is the serialized form of a synchronized index row.
type wireIndexRow struct {
	TS      int64       `json:"ts"`
	PointID string      `json:"point_id"`
	IdxBLE  nullableIdx `json:"idx_ble"`
	IdxWiFi nullableIdx `json:"idx_wifi"`
	IdxUWB  nullableIdx `json:"idx_uwb"`
	IdxNR5G nullableIdx `json:"idx_nr5g"`
	IdxGNSS nullableIdx `json:"idx_gnss"`
}

func toWireIndexRow(r model.IndexRow) wireIndexRow {
	return wireIndexRow{
		TS:      r.TS,
		PointID: r.PointID,
		IdxBLE:  nullableIdx(r.IdxBLE),
		IdxWiFi: nullableIdx(r.IdxWiFi),
		IdxUWB:  nullableIdx(r.IdxUWB),
		IdxNR5G: nullableIdx(r.IdxNR5G),
		IdxGNSS: nullableIdx(r.IdxGNSS),
	}
}

func (w wireIndexRow) indexRow() model.IndexRow {
	return model.IndexRow{
		TS:      w.TS,
		PointID: w.PointID,
		IdxBLE:  int64(w.IdxBLE),
		IdxWiFi: int64(w.IdxWiFi),
		IdxUWB:  int64(w.IdxUWB),
		IdxNR5G: int64(w.IdxNR5G),
		IdxGNSS: int64(w.IdxGNSS),
	}
}
