package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
)

// SyncStats describes the calls made by [SyncPlaylist].
type SyncStats struct {
	Replaced int // URIs sent with the replace call
	Appends  int // append calls made
	Total    int // URIs written overall
}

func chunk(uris []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(uris); start += size {
		chunks = append(chunks, uris[start:min(start+size, len(uris))])
	}
	return chunks
}

// SyncPlaylist makes the remote playlist hold exactly uris, in order.
//
// The first chunk replaces the playlist and later chunks are appended. An empty list clears it.
// Any failed call stops the write and returns [shared.ErrSyncWrite]; a replace that succeeded
// before a failed append leaves the playlist truncated until the next pass.
func SyncPlaylist(ctx context.Context, w services.PlaylistWriter, playlistID string, uris []string, onChunk func(step, total, sent int)) (SyncStats, error) {
	var stats SyncStats
	if playlistID == "" {
		return stats, fmt.Errorf("%w: no playlist id", shared.ErrSyncWrite)
	}

	chunks := chunk(uris, services.MaxPlaylistBatch)
	if len(chunks) == 0 {
		chunks = [][]string{{}}
	}

	if err := w.ReplacePlaylistItems(ctx, playlistID, chunks[0]); err != nil {
		return stats, fmt.Errorf("%w: replace: %w", shared.ErrSyncWrite, err)
	}
	stats.Replaced = len(chunks[0])
	stats.Total = len(chunks[0])
	if onChunk != nil {
		onChunk(1, len(chunks), stats.Total)
	}

	for i, c := range chunks[1:] {
		if err := w.AddPlaylistItems(ctx, playlistID, c); err != nil {
			return stats, fmt.Errorf("%w: append %d/%d: %w", shared.ErrSyncWrite, i+1, len(chunks)-1, err)
		}
		stats.Appends++
		stats.Total += len(c)
		if onChunk != nil {
			onChunk(i+2, len(chunks), stats.Total)
		}
	}
	return stats, nil
}
