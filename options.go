package posisync

import (
	"log/slog"
	"time"

	"github.com/hupe1980/posisync/cleaner"
	"github.com/hupe1980/posisync/codec"
	"github.com/hupe1980/posisync/merge"
	"github.com/hupe1980/posisync/model"
	"github.com/hupe1980/posisync/tableio"
)

type options struct {
	codec       codec.Codec
	format      tableio.Format
	compression tableio.Compression
	tolerance   time.Duration
	policy      merge.Policy
	exclusions  cleaner.Exclusions
	cleanerOpts map[model.Technology][]cleaner.Option
	metrics     MetricsCollector
	logger      *Logger
}

// Option configures a Pipeline.
type Option func(*options)

// WithCodec configures the codec used for jsonl table blobs and manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithFormat selects the output table format. Default is jsonl.
func WithFormat(f tableio.Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithCompression enables blob compression on written tables.
func WithCompression(c tableio.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithTolerance sets the timestamp association window for the merge.
// Default is merge.DefaultTolerance.
func WithTolerance(d time.Duration) Option {
	return func(o *options) {
		o.tolerance = d
	}
}

// WithMergePolicy sets the representative-timestamp policy for the merge.
func WithMergePolicy(p merge.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithExclusions replaces the default malfunction-run exclusion list used
// by every technology's cleaner.
func WithExclusions(e cleaner.Exclusions) Option {
	return func(o *options) {
		o.exclusions = e
	}
}

// WithCleanerOptions adds per-technology cleaner options, e.g. the UWB
// anchor ID mapping and canonical anchor reordering.
func WithCleanerOptions(tech model.Technology, optFns ...cleaner.Option) Option {
	return func(o *options) {
		if o.cleanerOpts == nil {
			o.cleanerOpts = make(map[model.Technology][]cleaner.Option)
		}
		o.cleanerOpts[tech] = append(o.cleanerOpts[tech], optFns...)
	}
}

// WithMetricsCollector configures a metrics collector for run stages.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithLogger configures structured logging for the run.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:      codec.Default,
		format:     tableio.FormatJSONL,
		tolerance:  merge.DefaultTolerance,
		policy:     merge.PolicyMedian,
		exclusions: cleaner.DefaultExclusions(),
		metrics:    NoopMetricsCollector{},
		logger:     NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
