// Package repositories implements SQLite persistence for the playlist state and pass history.
//
// Key Implementations:
//   - [StateStore] : the tracked artists, the retained tracks and the managed playlist id
//   - [RunRepository] : one row per update pass with its phase, counters and outcome
//
// [StateStore] rewrites the whole state in a single transaction. Row positions preserve the
// order of the artist registry and of the playlist.
//
// [ImportLegacyJSON] and [ExportLegacyJSON] convert to and from the playlist_state.json format.
package repositories
