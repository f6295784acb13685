package tableio

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/model"
)

// Writer serializes tables to a blob store.
type Writer struct {
	store  blobstore.Store
	codec  codec.Codec
	comp   Compression
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCodec sets the row codec for the jsonl format.
func WithCodec(c codec.Codec) WriterOption {
	return func(w *Writer) {
		if c != nil {
			w.codec = c
		}
	}
}

// WithCompression enables file compression.
func WithCompression(c Compression) WriterOption {
	return func(w *Writer) { w.comp = c }
}

// WithLogger sets the logger for the writer.
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = l }
}

// NewWriter creates a Writer over the given store.
func NewWriter(store blobstore.Store, optFns ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		codec:  codec.Default,
		comp:   CompressionNone,
		logger: slog.Default(),
	}
	for _, fn := range optFns {
		fn(w)
	}
	return w
}

// Compression returns the configured compression; a Reader must match it.
func (w *Writer) Compression() Compression { return w.comp }

// WriteTable writes one cleaned technology table and returns the blob name.
func (w *Writer) WriteTable(ctx context.Context, f Format, t *model.CleanedTable) (string, error) {
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format %q", f)
	}
	name := blobName(f, techName(t.Tech), w.comp)

	if t.Tech == model.TechGNSS {
		rows := make([]wireEpoch, len(t.Rows))
		for i, r := range t.Rows {
			var err error
			if rows[i], err = toWireEpoch(r); err != nil {
				return "", err
			}
		}
		if err := w.write(ctx, name, f, rows, func(out *bufio.Writer) error {
			return writeEpochCSV(out, rows)
		}); err != nil {
			return "", err
		}
	} else {
		rows := make([]wireMeasurement, len(t.Rows))
		for i, r := range t.Rows {
			var err error
			if rows[i], err = toWireMeasurement(r); err != nil {
				return "", err
			}
		}
		if err := w.write(ctx, name, f, rows, func(out *bufio.Writer) error {
			return writeMeasurementCSV(out, rows)
		}); err != nil {
			return "", err
		}
	}

	w.logger.InfoContext(ctx, "table written",
		"technology", t.Tech, "format", f, "rows", t.Len(), "blob", name)
	return name, nil
}

// WriteIndex writes the synchronized index table and returns the blob name.
func (w *Writer) WriteIndex(ctx context.Context, f Format, rows []model.IndexRow) (string, error) {
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format %q", f)
	}
	name := blobName(f, IndexName, w.comp)

	wireRows := make([]wireIndexRow, len(rows))
	for i, r := range rows {
		wireRows[i] = toWireIndexRow(r)
	}
	if err := w.write(ctx, name, f, wireRows, func(out *bufio.Writer) error {
		return writeIndexCSV(out, wireRows)
	}); err != nil {
		return "", err
	}

	w.logger.InfoContext(ctx, "index written", "format", f, "rows", len(rows), "blob", name)
	return name, nil
}

// write streams rows into a blob in the requested format. rows must be a
// slice of wire rows; writeCSV handles the csv format for it.
func (w *Writer) write(ctx context.Context, name string, f Format, rows any, writeCSV func(*bufio.Writer) error) error {
	blob, err := w.store.Create(ctx, name)
	if err != nil {
		return err
	}

	cw, err := compressWriter(blob, w.comp)
	if err != nil {
		blob.Abort()
		return err
	}
	out := bufio.NewWriter(cw)

	switch f {
	case FormatCSV:
		err = writeCSV(out)
	case FormatJSONL:
		err = w.writeJSONL(out, rows)
	case FormatNative:
		err = gob.NewEncoder(out).Encode(rows)
	}
	if err == nil {
		err = out.Flush()
	}
	if cerr := cw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		blob.Abort()
		return err
	}
	return blob.Close()
}

func (w *Writer) writeJSONL(out *bufio.Writer, rows any) error {
	encode := func(v any) error {
		line, err := w.codec.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := out.Write(line); err != nil {
			return err
		}
		return out.WriteByte('\n')
	}

	switch rs := rows.(type) {
	case []wireMeasurement:
		for _, r := range rs {
			if err := encode(r); err != nil {
				return err
			}
		}
	case []wireEpoch:
		for _, r := range rs {
			if err := encode(r); err != nil {
				return err
			}
		}
	case []wireIndexRow:
		for _, r := range rs {
			if err := encode(r); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported row slice %T", rows)
	}
	return nil
}
