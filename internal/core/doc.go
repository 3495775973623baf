// Package core provides the table merge pipeline.
//
// This package contains all merge logic independent of any UI or transport
// layer. The HTTP server and the CLI both drive it through [Service.Merge].
//
// # Pipeline
//
// One merge runs sequentially through these stages:
//
//  1. Archive expansion: ZIP sources are extracted into a per-merge [Workspace]
//  2. Reading: each CSV, TSV, TXT, XLSX sheet or JSON file becomes a [ParsedTable]
//  3. Header reconciliation: [ReconcileHeaders] fixes the canonical [HeaderSet]
//  4. Row merging: [MergeTables] re-keys rows by position and applies per-source dedup
//  5. Numeric normalization: one decimal notation and precision for the whole table
//  6. Cleanup: optional trimming, missing-value normalization and empty-column removal
//  7. Writing: [WriteTable] renames a fully written temp file into place
//
// # Decisions
//
// The pipeline suspends only at four points: decimal notation, canonical
// headers, XLSX truncation and output path. Each emits a typed [Request]
// to a [Decider]. [ChannelDecider] hands requests to another goroutine,
// [PresetDecider] answers from values given up front.
//
// # Error Handling
//
// Per-source problems ([InvalidSourceError], unsupported extensions) skip
// that source and are listed in [Result.Skipped]. Everything else aborts the
// merge without writing output. [MapError] converts errors to coded user
// messages:
//
//   - SRC001-SRC003: source errors
//   - HDR001: header mismatch
//   - FMT001: unsupported format
//   - CAP001: capacity exceeded
//   - DEC001: decision required
//   - MRG001-MRG004: merge errors (cancelled, no output, no sources, busy)
//
// # Audit Logging
//
// When a PostgreSQL URL is configured, [PgAuditStore] records one row per
// merge run. Otherwise [NopAuditStore] is used.
package core
