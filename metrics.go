package posisync

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/posisync/model"
)

// MetricsCollector defines an interface for collecting run metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordClean is called after each technology's cleaning pass.
	// raw is the input row count, kept the surviving row count.
	RecordClean(tech model.Technology, raw, kept int, duration time.Duration, err error)

	// RecordMerge is called after the synchronization pass.
	RecordMerge(rows int, duration time.Duration, err error)

	// RecordWrite is called after each table or index blob write.
	RecordWrite(rows int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordClean(model.Technology, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordMerge(int, time.Duration, error)                        {}
func (NoopMetricsCollector) RecordWrite(int, time.Duration, error)                        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CleanCount      atomic.Int64
	CleanErrors     atomic.Int64
	CleanRawRows    atomic.Int64
	CleanKeptRows   atomic.Int64
	CleanTotalNanos atomic.Int64
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	MergeRows       atomic.Int64
	MergeTotalNanos atomic.Int64
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteRows       atomic.Int64
	WriteTotalNanos atomic.Int64
}

// RecordClean implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClean(tech model.Technology, raw, kept int, duration time.Duration, err error) {
	b.CleanCount.Add(1)
	b.CleanRawRows.Add(int64(raw))
	b.CleanKeptRows.Add(int64(kept))
	b.CleanTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CleanErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(rows int, duration time.Duration, err error) {
	b.MergeCount.Add(1)
	b.MergeRows.Add(int64(rows))
	b.MergeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(rows int, duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteRows.Add(int64(rows))
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CleanCount:    b.CleanCount.Load(),
		CleanErrors:   b.CleanErrors.Load(),
		CleanRawRows:  b.CleanRawRows.Load(),
		CleanKeptRows: b.CleanKeptRows.Load(),
		CleanAvgNanos: avgNanos(b.CleanTotalNanos.Load(), b.CleanCount.Load()),
		MergeCount:    b.MergeCount.Load(),
		MergeErrors:   b.MergeErrors.Load(),
		MergeRows:     b.MergeRows.Load(),
		MergeAvgNanos: avgNanos(b.MergeTotalNanos.Load(), b.MergeCount.Load()),
		WriteCount:    b.WriteCount.Load(),
		WriteErrors:   b.WriteErrors.Load(),
		WriteRows:     b.WriteRows.Load(),
		WriteAvgNanos: avgNanos(b.WriteTotalNanos.Load(), b.WriteCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CleanCount    int64
	CleanErrors   int64
	CleanRawRows  int64
	CleanKeptRows int64
	CleanAvgNanos int64
	MergeCount    int64
	MergeErrors   int64
	MergeRows     int64
	MergeAvgNanos int64
	WriteCount    int64
	WriteErrors   int64
	WriteRows     int64
	WriteAvgNanos int64
}
