package models

import (
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/freshlist/internal/shared"
)

// RetentionWindow is how long a track stays on the playlist after it was added, and how far back
// a release date may lie for the release to count as new.
const RetentionWindow = 7 * 24 * time.Hour

// Artist is a tracked artist. Unique by ID.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TrackRecord is one retained playlist track with its album metadata denormalized onto it.
type TrackRecord struct {
	URI         string    `json:"uri"`
	Name        string    `json:"name"`
	ArtistID    string    `json:"artist_id"`
	ArtistName  string    `json:"artist_name"`
	AlbumName   string    `json:"album_name"`
	TrackNumber int       `json:"track_number"`
	AddedAt     time.Time `json:"added_at"`
}

// NormalizedName is the dedup key for the track.
func (t TrackRecord) NormalizedName() string {
	return shared.NormalizeTrackName(t.Name)
}

// Expired reports whether the record has been retained for the full window as of now.
func (t TrackRecord) Expired(now time.Time) bool {
	return now.Sub(t.AddedAt) >= RetentionWindow
}

// State is the persisted record of one managed playlist.
type State struct {
	PlaylistID string
	Artists    []Artist
	Tracks     *TrackState
}

// NewState returns an empty state with no playlist.
func NewState() *State {
	return &State{Tracks: NewTrackState(nil)}
}

// FindArtistByName looks up a tracked artist by case-insensitive name.
func (s *State) FindArtistByName(name string) (Artist, bool) {
	for _, a := range s.Artists {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Artist{}, false
}

// HasArtist reports whether an artist with the given ID is tracked.
func (s *State) HasArtist(id string) bool {
	for _, a := range s.Artists {
		if a.ID == id {
			return true
		}
	}
	return false
}

// AddArtist appends a to the tracked artists. It returns false when the ID is already tracked.
func (s *State) AddArtist(a Artist) bool {
	if a.ID == "" || s.HasArtist(a.ID) {
		return false
	}
	s.Artists = append(s.Artists, a)
	return true
}

// RemoveArtistByName removes the first artist whose name matches case-insensitively.
//
// The artist's tracks stay in place; the next pass evicts them as orphans.
func (s *State) RemoveArtistByName(name string) (Artist, bool) {
	for i, a := range s.Artists {
		if strings.EqualFold(a.Name, name) {
			s.Artists = slices.Delete(s.Artists, i, i+1)
			return a, true
		}
	}
	return Artist{}, false
}

// Registry snapshots the tracked artists for a pass.
func (s *State) Registry() Registry {
	return NewRegistry(s.Artists)
}

// SyncRun is the history row for one update pass.
type SyncRun struct {
	ID            string     `json:"id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Phase         string     `json:"phase"`
	Status        string     `json:"status"`
	Fetched       int        `json:"fetched"`
	Added         int        `json:"added"`
	Evicted       int        `json:"evicted"`
	FailedArtists int        `json:"failed_artists"`
	Synced        int        `json:"synced"`
	Error         string     `json:"error,omitempty"`
}

// Run statuses.
const (
	RunRunning = "running"
	RunOK      = "ok"
	RunFailed  = "failed"
)

// Duration is the wall time of a finished run, or zero while it is running.
func (r SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
