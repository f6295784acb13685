// Package tableio serializes cleaned per-technology tables and the
// synchronized index to a blob store.
//
// Three row-oriented formats are supported — csv, jsonl, and native (gob) —
// as semantically equivalent views of the same table: all of them
// round-trip list-valued columns (anchor arrays, per-satellite arrays)
// without loss, including NaN range values. Files may additionally be
// compressed with zstd or lz4, selected by suffix.
package tableio

import (
	"fmt"

	"github.com/hupe1980/posisync/model"
)

// Format names a table serialization format.
type Format string

// Supported formats.
const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatNative Format = "native"
)

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatJSONL, FormatNative:
		return true
	}
	return false
}

func (f Format) ext() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSONL:
		return "jsonl"
	default:
		return "gob"
	}
}

// Compression names an optional file compression.
type Compression string

// Supported compressions.
const (
	CompressionNone Compression = ""
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

func (c Compression) suffix() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// IndexName is the base name of the synchronized index table.
const IndexName = "merged"

// blobName returns the store path of a table file, e.g. "csv/uwb.csv.zst".
func blobName(f Format, base string, c Compression) string {
	return fmt.Sprintf("%s/%s.%s%s", f, base, f.ext(), c.suffix())
}

// techName returns the base name of a technology table.
func techName(tech model.Technology) string {
	return tech.String()
}
