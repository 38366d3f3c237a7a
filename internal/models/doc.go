// Package models defines the domain values shared by the freshlist sync engine.
//
// The package contains three groups of types:
//
//  1. Catalog values: [Artist] and [TrackRecord], the typed records every other layer works with.
//  2. Engine state: [Registry] (read-only tracked artists), [TrackState] (retained tracks with
//     dedup and eviction rules) and [State], the single value loaded at the start of a command,
//     passed by pointer through a pass and saved at checkpoints.
//  3. Bookkeeping: [SyncRun], one row of pass history.
//
// [TrackState] is not safe for concurrent use. The engine only touches it from the goroutine
// that owns the pass, after the fetch workers have joined.
package models
