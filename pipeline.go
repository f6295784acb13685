package posisync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/posisync/blobstore"
	"github.com/hupe1980/posisync/cleaner"
	"github.com/hupe1980/posisync/manifest"
	"github.com/hupe1980/posisync/merge"
	"github.com/hupe1980/posisync/model"
	"github.com/hupe1980/posisync/refdata"
	"github.com/hupe1980/posisync/tableio"
)

// Input is one technology's raw measurement stream.
type Input struct {
	Tech model.Technology
	Rows []model.Row
}

// Result holds everything one run produced. Tables and Diagnostics carry an
// entry per input technology; technologies whose cleaning kept no rows still
// appear, with an empty table.
type Result struct {
	Manifest    *manifest.Manifest
	Tables      map[model.Technology]*model.CleanedTable
	Index       []model.IndexRow
	Diagnostics map[model.Technology]*cleaner.Diagnostics
}

// ReferenceGaps returns all rows across technologies that kept no surveyed
// ground truth, for campaign QA review.
func (r *Result) ReferenceGaps() []cleaner.Diagnostic {
	var gaps []cleaner.Diagnostic
	for _, tech := range model.Technologies() {
		if d, ok := r.Diagnostics[tech]; ok {
			gaps = append(gaps, d.ReferenceGaps()...)
		}
	}
	return gaps
}

// Pipeline runs the full preprocessing pass: concurrent per-technology
// cleaning, cross-technology merge, table and index writes, and the manifest
// commit. A Pipeline is immutable and safe for concurrent runs.
type Pipeline struct {
	store blobstore.Store
	ref   *refdata.Context
	opts  options
}

// New creates a Pipeline writing to the given store. A nil store disables
// persistence; Run then returns the tables and index without writing
// anything, which is how QA notebooks use it.
func New(store blobstore.Store, ref *refdata.Context, optFns ...Option) *Pipeline {
	return &Pipeline{
		store: store,
		ref:   ref,
		opts:  applyOptions(optFns),
	}
}

// Run executes one preprocessing pass over the given inputs.
//
// All inputs being empty is not an error; the result then holds empty tables
// and an empty index. A failure in any technology's cleaning pass cancels
// the others and fails the run.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) (*Result, error) {
	if err := validateInputs(inputs); err != nil {
		return nil, err
	}

	result := &Result{
		Tables:      make(map[model.Technology]*model.CleanedTable, len(inputs)),
		Diagnostics: make(map[model.Technology]*cleaner.Diagnostics, len(inputs)),
	}

	// Stage 1: per-technology cleaning, fanned out. Each stream is
	// independent; they share only the read-only reference context.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, in := range inputs {
		g.Go(func() error {
			c := cleaner.New(p.ref, p.cleanerOptions(in.Tech)...)

			start := time.Now()
			table, diags, err := c.Clean(gctx, in.Tech, in.Rows)
			p.opts.metrics.RecordClean(in.Tech, len(in.Rows), table.Len(), time.Since(start), err)
			p.opts.logger.LogClean(gctx, in.Tech, len(in.Rows), table.Len(), err)
			if err != nil {
				return fmt.Errorf("clean %s: %w", in.Tech, err)
			}

			mu.Lock()
			result.Tables[in.Tech] = table
			result.Diagnostics[in.Tech] = diags
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stage 2: cross-technology merge. Runs only after every table is
	// final; the index holds positional pointers, so tables must not
	// change afterwards.
	eng := merge.New(
		merge.WithTolerance(p.opts.tolerance),
		merge.WithPolicy(p.opts.policy),
		merge.WithLogger(p.opts.logger.Logger),
	)

	start := time.Now()
	index, err := eng.Merge(ctx, result.Tables)
	p.opts.metrics.RecordMerge(len(index), time.Since(start), err)
	p.opts.logger.LogMerge(ctx, len(result.Tables), len(index), err)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	result.Index = index

	// Stage 3: persistence and manifest commit.
	m := manifest.New()
	m.ToleranceMS = p.opts.tolerance.Milliseconds()
	m.Policy = string(p.opts.policy)
	m.Codec = p.opts.codec.Name()
	m.Format = string(p.opts.format)
	m.Compression = string(p.opts.compression)
	result.Manifest = m

	if p.store == nil {
		return result, nil
	}
	if err := p.persist(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (p *Pipeline) cleanerOptions(tech model.Technology) []cleaner.Option {
	opts := []cleaner.Option{
		cleaner.WithExclusions(p.opts.exclusions),
		cleaner.WithLogger(p.opts.logger.Logger),
	}
	return append(opts, p.opts.cleanerOpts[tech]...)
}

// persist writes all table blobs concurrently, then the index, then commits
// the manifest. The pointer update is last so a crashed run stays invisible.
func (p *Pipeline) persist(ctx context.Context, result *Result) error {
	w := tableio.NewWriter(p.store,
		tableio.WithCodec(p.opts.codec),
		tableio.WithCompression(p.opts.compression),
		tableio.WithLogger(p.opts.logger.Logger),
	)
	m := result.Manifest
	log := p.opts.logger.WithRunID(m.RunID)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for tech, table := range result.Tables {
		g.Go(func() error {
			start := time.Now()
			blob, err := w.WriteTable(gctx, p.opts.format, table)
			p.opts.metrics.RecordWrite(table.Len(), time.Since(start), err)
			log.LogWrite(gctx, blob, table.Len(), err)
			if err != nil {
				return fmt.Errorf("write %s table: %w", tech, err)
			}

			mu.Lock()
			m.Tables[tech] = manifest.TableInfo{
				Blob:        blob,
				Rows:        table.Len(),
				Excluded:    int(table.ExclusionMask().GetCardinality()),
				Diagnostics: diagnosticsSummary(result.Diagnostics[tech]),
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	start := time.Now()
	blob, err := w.WriteIndex(ctx, p.opts.format, result.Index)
	p.opts.metrics.RecordWrite(len(result.Index), time.Since(start), err)
	log.LogWrite(ctx, blob, len(result.Index), err)
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	m.Index = &manifest.IndexInfo{Blob: blob, Rows: len(result.Index)}

	start = time.Now()
	err = manifest.NewStore(p.store, manifest.WithCodec(p.opts.codec)).Save(ctx, m)
	log.LogCommit(ctx, m.RunID, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("commit manifest: %w", err)
	}

	return nil
}

func diagnosticsSummary(d *cleaner.Diagnostics) map[string]int {
	if d == nil || d.Total() == 0 {
		return nil
	}
	out := make(map[string]int)
	for kind, n := range d.Summary() {
		out[string(kind)] = n
	}
	return out
}
