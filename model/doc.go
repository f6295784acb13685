// Package model defines core types used throughout posisync.
//
// # Measurement Types
//
//   - Measurement: one ranging observation of a terrestrial technology
//     (BLE, WiFi, UWB, NR5G) taken at a surveyed point
//   - Epoch: one GNSS observation instant with per-satellite arrays
//   - Technology: enumeration of the five campaign technologies
//
// # Table Types
//
//   - CleanedTable: the immutable, timestamp-sorted output of a
//     per-technology cleaning pass; rows are addressed by index
//   - IndexRow: one row of the cross-technology synchronized index,
//     holding per-technology row pointers into the cleaned tables
//
// Measurement and Epoch both satisfy the Row interface, which is what the
// cleaner and the merge engine operate on. Tables are write-once: after a
// cleaning pass completes, a CleanedTable is never mutated again.
package model
