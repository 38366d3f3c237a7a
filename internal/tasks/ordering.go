package tasks

import (
	"cmp"
	"strings"

	"github.com/desertthunder/freshlist/internal/models"
)

// CompareTracks orders by lowercased artist name, lowercased album name, then track number.
func CompareTracks(a, b models.TrackRecord) int {
	return cmp.Or(
		cmp.Compare(strings.ToLower(a.ArtistName), strings.ToLower(b.ArtistName)),
		cmp.Compare(strings.ToLower(a.AlbumName), strings.ToLower(b.AlbumName)),
		cmp.Compare(a.TrackNumber, b.TrackNumber),
	)
}

// SortTracks sorts state in place. Records equal under [CompareTracks] keep their previous order.
func SortTracks(state *models.TrackState) {
	state.SortStable(CompareTracks)
}
