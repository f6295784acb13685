package tableio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/model"
)

// Reader deserializes tables from a blob store. It must be configured with
// the same codec and compression the Writer used.
type Reader struct {
	store blobstore.Store
	codec codec.Codec
	comp  Compression
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithReadCodec sets the row codec for the jsonl format.
func WithReadCodec(c codec.Codec) ReaderOption {
	return func(r *Reader) {
		if c != nil {
			r.codec = c
		}
	}
}

// WithReadCompression selects the file compression to expect.
func WithReadCompression(c Compression) ReaderOption {
	return func(r *Reader) { r.comp = c }
}

// NewReader creates a Reader over the given store.
func NewReader(store blobstore.Store, optFns ...ReaderOption) *Reader {
	r := &Reader{
		store: store,
		codec: codec.Default,
		comp:  CompressionNone,
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// ReadTable reads one cleaned technology table.
func (r *Reader) ReadTable(ctx context.Context, f Format, tech model.Technology) (*model.CleanedTable, error) {
	data, err := r.open(ctx, blobName(f, techName(tech), r.comp))
	if err != nil {
		return nil, err
	}

	var rows []model.TableRow
	if tech == model.TechGNSS {
		wireRows, err := decodeRows[wireEpoch](r, f, data, readEpochCSV)
		if err != nil {
			return nil, err
		}
		rows = make([]model.TableRow, len(wireRows))
		for i, wr := range wireRows {
			rows[i] = wr.tableRow()
		}
	} else {
		wireRows, err := decodeRows[wireMeasurement](r, f, data, readMeasurementCSV)
		if err != nil {
			return nil, err
		}
		rows = make([]model.TableRow, len(wireRows))
		for i, wr := range wireRows {
			rows[i] = wr.tableRow()
		}
	}

	return model.NewCleanedTable(tech, rows), nil
}

// ReadIndex reads the synchronized index table.
func (r *Reader) ReadIndex(ctx context.Context, f Format) ([]model.IndexRow, error) {
	data, err := r.open(ctx, blobName(f, IndexName, r.comp))
	if err != nil {
		return nil, err
	}

	wireRows, err := decodeRows[wireIndexRow](r, f, data, readIndexCSV)
	if err != nil {
		return nil, err
	}
	rows := make([]model.IndexRow, len(wireRows))
	for i, wr := range wireRows {
		rows[i] = wr.indexRow()
	}
	return rows, nil
}

func (r *Reader) open(ctx context.Context, name string) ([]byte, error) {
	raw, err := blobstore.ReadAll(ctx, r.store, name)
	if err != nil {
		return nil, err
	}
	cr, err := compressReader(bytes.NewReader(raw), r.comp)
	if err != nil {
		return nil, err
	}
	defer cr.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(cr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRows decodes a full table payload into wire rows.
func decodeRows[T any](r *Reader, f Format, data []byte, readCSV func(io.Reader) ([]T, error)) ([]T, error) {
	switch f {
	case FormatCSV:
		return readCSV(bytes.NewReader(data))
	case FormatJSONL:
		var rows []T
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			var row T
			if err := r.codec.Unmarshal(line, &row); err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return rows, nil
	case FormatNative:
		var rows []T
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rows); err != nil {
			return nil, err
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}
