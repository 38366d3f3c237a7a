package repositories

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/shared"
)

type legacyState struct {
	PlaylistID *string        `json:"playlist_id"`
	Artists    []legacyArtist `json:"artists"`
	Tracks     []legacyTrack  `json:"tracks"`
}

type legacyArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type legacyTrack struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	ArtistID    string `json:"artist_id"`
	ArtistName  string `json:"artist_name"`
	AlbumName   string `json:"album_name"`
	TrackNumber int    `json:"track_number"`
	AddedAt     string `json:"added_at"`
}

// Timestamps without an offset are wall-clock times in the local zone.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseLegacyTime(s string) (time.Time, error) {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized added_at %q", shared.ErrStateCorrupt, s)
}

// ImportLegacyJSON reads a playlist_state.json document.
//
// Duplicate artists and tracks are dropped, keeping the first occurrence. A track with an
// unparseable added_at fails the import.
func ImportLegacyJSON(r io.Reader) (*models.State, error) {
	var doc legacyState
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStateCorrupt, err)
	}

	state := models.NewState()
	if doc.PlaylistID != nil {
		state.PlaylistID = *doc.PlaylistID
	}
	for _, a := range doc.Artists {
		state.AddArtist(models.Artist{ID: a.ID, Name: a.Name})
	}

	records := make([]models.TrackRecord, 0, len(doc.Tracks))
	for _, t := range doc.Tracks {
		addedAt, err := parseLegacyTime(t.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", t.URI, err)
		}
		records = append(records, models.TrackRecord{
			URI:         t.URI,
			Name:        t.Name,
			ArtistID:    t.ArtistID,
			ArtistName:  t.ArtistName,
			AlbumName:   t.AlbumName,
			TrackNumber: t.TrackNumber,
			AddedAt:     addedAt,
		})
	}
	state.Tracks = models.NewTrackState(records)
	return state, nil
}

// ExportLegacyJSON writes state as an indented playlist_state.json document.
func ExportLegacyJSON(w io.Writer, state *models.State) error {
	doc := legacyState{
		Artists: make([]legacyArtist, 0, len(state.Artists)),
		Tracks:  make([]legacyTrack, 0, state.Tracks.Len()),
	}
	if state.PlaylistID != "" {
		doc.PlaylistID = &state.PlaylistID
	}
	for _, a := range state.Artists {
		doc.Artists = append(doc.Artists, legacyArtist{Name: a.Name, ID: a.ID})
	}
	for _, r := range state.Tracks.Records() {
		doc.Tracks = append(doc.Tracks, legacyTrack{
			URI:         r.URI,
			Name:        r.Name,
			ArtistID:    r.ArtistID,
			ArtistName:  r.ArtistName,
			AlbumName:   r.AlbumName,
			TrackNumber: r.TrackNumber,
			AddedAt:     r.AddedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}
