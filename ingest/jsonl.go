package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/model"
)

// JSONLSource reads one measurement per line, the shape the BLE and UWB
// collectors log. Blank lines are skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	codec   codec.Codec
	line    int
	closed  bool
}

// JSONLOption configures a JSONLSource.
type JSONLOption func(*JSONLSource)

// WithJSONLCodec sets the codec used to decode lines.
func WithJSONLCodec(c codec.Codec) JSONLOption {
	return func(s *JSONLSource) {
		s.codec = c
	}
}

// NewJSONLSource creates a source over r. If r is an io.Closer, Close
// closes it.
func NewJSONLSource(r io.Reader, optFns ...JSONLOption) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	s := &JSONLSource{
		scanner: scanner,
		codec:   codec.Default,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}

	for _, fn := range optFns {
		fn(s)
	}

	return s
}

// Next implements Source.
func (s *JSONLSource) Next(ctx context.Context) (*model.Measurement, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var m model.Measurement
		if err := s.codec.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return &m, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close implements Source.
func (s *JSONLSource) Close() error {
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// JSONLEpochSource reads one GNSS epoch per line.
type JSONLEpochSource struct {
	inner *JSONLSource
}

// NewJSONLEpochSource creates an epoch source over r.
func NewJSONLEpochSource(r io.Reader, optFns ...JSONLOption) *JSONLEpochSource {
	return &JSONLEpochSource{inner: NewJSONLSource(r, optFns...)}
}

// Next implements EpochSource.
func (s *JSONLEpochSource) Next(ctx context.Context) (*model.Epoch, error) {
	if s.inner.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for s.inner.scanner.Scan() {
		s.inner.line++
		line := bytes.TrimSpace(s.inner.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var e model.Epoch
		if err := s.inner.codec.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", s.inner.line, err)
		}
		return &e, nil
	}
	if err := s.inner.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close implements EpochSource.
func (s *JSONLEpochSource) Close() error {
	return s.inner.Close()
}
