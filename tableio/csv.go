package tableio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/hupe1980/posisync/model"
)

var measurementColumns = []string{
	"point_id", "ts", "anchor_ids", "ranges", "snr", "pos", "ref",
	"run_suffix", "excluded_from_merge", "ref_missing",
}

var epochColumns = []string{
	"point_id", "ts", "gnss_sv_id", "observation_code", "raw_pr_m",
	"corr_pr_m", "carrier_phase", "raw_doppler_hz", "cn0_dbhz",
	"sv_position", "sv_velocity", "b_sv_m", "b_dot_sv_mps", "ref",
	"ref_ecef", "run_suffix", "excluded_from_merge", "ref_missing",
}

var indexColumns = []string{
	"ts", "point_id", "idx_ble", "idx_wifi", "idx_uwb", "idx_nr5g", "idx_gnss",
}

// jsonCell encodes a list- or struct-valued column into a single CSV cell.
func jsonCell(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseJSONCell(cell string, v any) error {
	return json.Unmarshal([]byte(cell), v)
}

func writeMeasurementCSV(w io.Writer, rows []wireMeasurement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(measurementColumns); err != nil {
		return err
	}
	for _, r := range rows {
		cells := make([]string, 0, len(measurementColumns))
		cells = append(cells, r.PointID, strconv.FormatInt(r.TS, 10))
		for _, v := range []any{r.AnchorIDs, r.Ranges, r.SNR, r.Pos, r.Ref} {
			cell, err := jsonCell(v)
			if err != nil {
				return err
			}
			cells = append(cells, cell)
		}
		cells = append(cells, r.RunSuffix,
			strconv.FormatBool(r.ExcludedFromMerge),
			strconv.FormatBool(r.RefMissing))
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readMeasurementCSV(r io.Reader) ([]wireMeasurement, error) {
	records, err := readCSV(r, measurementColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]wireMeasurement, 0, len(records))
	for _, rec := range records {
		var row wireMeasurement
		row.PointID = rec[0]
		if row.TS, err = strconv.ParseInt(rec[1], 10, 64); err != nil {
			return nil, fmt.Errorf("ts: %w", err)
		}
		for i, v := range []any{&row.AnchorIDs, &row.Ranges, &row.SNR, &row.Pos, &row.Ref} {
			if err := parseJSONCell(rec[2+i], v); err != nil {
				return nil, fmt.Errorf("column %s: %w", measurementColumns[2+i], err)
			}
		}
		row.RunSuffix = rec[7]
		if row.ExcludedFromMerge, err = strconv.ParseBool(rec[8]); err != nil {
			return nil, fmt.Errorf("excluded_from_merge: %w", err)
		}
		if row.RefMissing, err = strconv.ParseBool(rec[9]); err != nil {
			return nil, fmt.Errorf("ref_missing: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeEpochCSV(w io.Writer, rows []wireEpoch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(epochColumns); err != nil {
		return err
	}
	for _, r := range rows {
		cells := make([]string, 0, len(epochColumns))
		cells = append(cells, r.PointID, strconv.FormatInt(r.TS, 10))
		for _, v := range []any{
			r.SvID, r.ObservationCode, r.RawPrM, r.CorrPrM, r.CarrierPhase,
			r.RawDopplerHz, r.Cn0DbHz, r.SvPosition, r.SvVelocity,
			r.SvClockBias, r.SvClockDrift, r.Ref, r.RefECEF,
		} {
			cell, err := jsonCell(v)
			if err != nil {
				return err
			}
			cells = append(cells, cell)
		}
		cells = append(cells, r.RunSuffix,
			strconv.FormatBool(r.ExcludedFromMerge),
			strconv.FormatBool(r.RefMissing))
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readEpochCSV(r io.Reader) ([]wireEpoch, error) {
	records, err := readCSV(r, epochColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]wireEpoch, 0, len(records))
	for _, rec := range records {
		var row wireEpoch
		row.PointID = rec[0]
		if row.TS, err = strconv.ParseInt(rec[1], 10, 64); err != nil {
			return nil, fmt.Errorf("ts: %w", err)
		}
		for i, v := range []any{
			&row.SvID, &row.ObservationCode, &row.RawPrM, &row.CorrPrM,
			&row.CarrierPhase, &row.RawDopplerHz, &row.Cn0DbHz,
			&row.SvPosition, &row.SvVelocity, &row.SvClockBias,
			&row.SvClockDrift, &row.Ref, &row.RefECEF,
		} {
			if err := parseJSONCell(rec[2+i], v); err != nil {
				return nil, fmt.Errorf("column %s: %w", epochColumns[2+i], err)
			}
		}
		row.RunSuffix = rec[15]
		if row.ExcludedFromMerge, err = strconv.ParseBool(rec[16]); err != nil {
			return nil, fmt.Errorf("excluded_from_merge: %w", err)
		}
		if row.RefMissing, err = strconv.ParseBool(rec[17]); err != nil {
			return nil, fmt.Errorf("ref_missing: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeIndexCSV(w io.Writer, rows []wireIndexRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(indexColumns); err != nil {
		return err
	}
	idxCell := func(n nullableIdx) string {
		if int64(n) == model.NullIdx {
			return "" // null marker
		}
		return strconv.FormatInt(int64(n), 10)
	}
	for _, r := range rows {
		cells := []string{
			strconv.FormatInt(r.TS, 10), r.PointID,
			idxCell(r.IdxBLE), idxCell(r.IdxWiFi), idxCell(r.IdxUWB),
			idxCell(r.IdxNR5G), idxCell(r.IdxGNSS),
		}
		if err := cw.Write(cells); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readIndexCSV(r io.Reader) ([]wireIndexRow, error) {
	records, err := readCSV(r, indexColumns)
	if err != nil {
		return nil, err
	}
	parseIdx := func(cell string) (nullableIdx, error) {
		if cell == "" {
			return nullableIdx(model.NullIdx), nil
		}
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("row pointer must be non-negative, got %d", v)
		}
		return nullableIdx(v), nil
	}

	rows := make([]wireIndexRow, 0, len(records))
	for _, rec := range records {
		var row wireIndexRow
		if row.TS, err = strconv.ParseInt(rec[0], 10, 64); err != nil {
			return nil, fmt.Errorf("ts: %w", err)
		}
		row.PointID = rec[1]
		idxs := []*nullableIdx{&row.IdxBLE, &row.IdxWiFi, &row.IdxUWB, &row.IdxNR5G, &row.IdxGNSS}
		for i, p := range idxs {
			if *p, err = parseIdx(rec[2+i]); err != nil {
				return nil, fmt.Errorf("column %s: %w", indexColumns[2+i], err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readCSV reads all records and validates the header.
func readCSV(r io.Reader, columns []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, name := range columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected header column %d: got %q, want %q", i, header[i], name)
		}
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
