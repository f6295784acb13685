// Package ingest adapts raw collector log formats into measurement rows.
//
// Collectors write whatever their hardware SDK emits: BLE and UWB loggers
// produce JSON lines, the WiFi collector a wide CSV with one column pair per
// access point. The adapters here normalize those shapes into model rows;
// everything beyond shape (sentinel scrubbing, anchor naming, windowing) is
// the cleaner's job.
package ingest

import (
	"context"
	"errors"
	"io"

	"github.com/hupe1980/posisync/model"
)

// ErrClosed is returned by Next after a source has been closed.
var ErrClosed = errors.New("source closed")

// Source yields measurement rows one at a time. Next returns io.EOF when
// the stream is exhausted.
type Source interface {
	Next(ctx context.Context) (*model.Measurement, error)
	Close() error
}

// EpochSource yields GNSS epochs one at a time. Next returns io.EOF when
// the stream is exhausted.
type EpochSource interface {
	Next(ctx context.Context) (*model.Epoch, error)
	Close() error
}

// ReadAll drains a source into a row slice.
func ReadAll(ctx context.Context, s Source) ([]model.Row, error) {
	var rows []model.Row
	for {
		m, err := s.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, m)
	}
}

// ReadAllEpochs drains an epoch source into a row slice.
func ReadAllEpochs(ctx context.Context, s EpochSource) ([]model.Row, error) {
	var rows []model.Row
	for {
		e, err := s.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, e)
	}
}
