// Package tasks runs the freshlist reconciliation pass against Spotify with real-time progress reporting.
//
// # Pass
//
// [Engine.Update] moves one [models.State] through a fixed sequence of phases:
//
//  1. [Fetching] : [Fetcher.FetchAll] fans out one unit of work per tracked artist on an errgroup
//     limited to the configured width. Each worker writes only its own result slot. A failed
//     artist is logged and contributes zero tracks.
//  2. [Reconciling] : [Evict] removes orphaned and expired records, then [Merge] inserts fresh
//     candidates whose normalized name and URI are not yet retained.
//  3. [Sorting] : [SortTracks] orders by artist, album, then track number.
//  4. [Syncing] : [SyncPlaylist] issues one replace call and then appends in chunks of
//     [services.MaxPlaylistBatch].
//
// State is saved after eviction, after merge and after sorting, so a failed write-back is retried
// from the same desired list on the next pass.
//
// # Progress Reporting
//
// All operations accept an optional progress channel. Updates use select with default so a slow
// reader never blocks the pass.
//
// # Scheduling
//
// [Scheduler] repeats a pass on a jittered interval until its context is cancelled; a failed pass
// is logged and the loop continues.
package tasks
