// Package posisync turns raw multi-technology positioning logs into
// analysis-ready tables with a cross-technology synchronized index.
//
// A measurement campaign records WiFi, BLE, UWB, NR5G and GNSS observations
// on independent device clocks while a trolley visits surveyed grid points.
// posisync cleans each technology's stream, associates every row with its
// surveyed ground-truth coordinates, and merges the per-technology tables
// into one index that tells, for any physical instant, which row of each
// table belongs to it.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	ref, _ := refdata.Load(ctx, store, nil)
//	p := posisync.New(store, ref,
//	    posisync.WithFormat(tableio.FormatJSONL),
//	    posisync.WithCompression(tableio.CompressionZstd),
//	)
//
//	result, err := p.Run(ctx, []posisync.Input{
//	    {Tech: model.TechUWB, Rows: uwbRows},
//	    {Tech: model.TechGNSS, Rows: gnssRows},
//	})
//
// Each run writes one blob per technology plus the synchronized index, and
// commits a manifest naming them. Readers follow the manifest pointer, so a
// crashed run never becomes visible.
//
// # Key Behaviors
//
//   - Per-technology cleaning runs concurrently; a failed technology fails
//     the run, an empty one just yields a null column in the index.
//   - Timestamps are associated by tolerance window (default 10ms), not
//     exact equality.
//   - Re-runs of malfunctioning points are flagged and kept in the tables
//     but never referenced by the index.
package posisync
