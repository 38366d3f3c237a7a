// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
)

// PlaylistCall records one replace or add call.
type PlaylistCall struct {
	Method     string // "replace" or "add"
	PlaylistID string
	URIs       []string
}

// MockService is an in-memory test double for [services.Service]. Fields are set up before use;
// methods are safe for concurrent use.
type MockService struct {
	Artists        map[string]services.SpotifyArtist        // by artist ID
	Albums         map[string][]services.SpotifyAlbum       // by artist ID
	AlbumTracks_   map[string][]services.SpotifySimpleTrack // by album ID
	TopTracks      map[string][]services.SpotifyTrack       // by artist ID
	PlaylistTracks map[string][]services.SpotifyPlaylistTrack
	User           services.SpotifyUser

	AlbumErrors map[string]error // ArtistAlbums error by artist ID
	Delay       time.Duration    // ArtistAlbums latency, cut short by ctx
	ReplaceErr  error
	AddErrAt    int // 1-based add call that fails with AddErr; 0 fails every call when AddErr is set
	AddErr      error
	RenameErr   error
	CreateErr   error
	ArtistsErr  error

	mu        sync.Mutex
	remote    map[string][]string
	calls     []PlaylistCall
	adds      int
	created   []services.PlaylistDetails
	renamed   []services.PlaylistDetails
	lookups   [][]string
	inFlight  atomic.Int32
	maxFlight atomic.Int32

	AlbumCalls      atomic.Int32
	AlbumTrackCalls atomic.Int32
}

// NewMockService returns an empty [MockService] with user "user1".
func NewMockService() *MockService {
	return &MockService{
		Artists:        map[string]services.SpotifyArtist{},
		Albums:         map[string][]services.SpotifyAlbum{},
		AlbumTracks_:   map[string][]services.SpotifySimpleTrack{},
		TopTracks:      map[string][]services.SpotifyTrack{},
		PlaylistTracks: map[string][]services.SpotifyPlaylistTrack{},
		AlbumErrors:    map[string]error{},
		User:           services.SpotifyUser{ID: "user1", DisplayName: "Test User"},
		remote:         map[string][]string{},
	}
}

// AddRelease registers an album for artistID with one track per name, numbered from 1.
func (m *MockService) AddRelease(artistID, albumID, albumName, releaseDate, precision string, trackNames ...string) {
	m.Albums[artistID] = append(m.Albums[artistID], services.SpotifyAlbum{
		ID:                   albumID,
		Name:                 albumName,
		ReleaseDate:          releaseDate,
		ReleaseDatePrecision: precision,
		AlbumType:            "single",
		AlbumGroup:           "single",
	})
	for i, name := range trackNames {
		m.AlbumTracks_[albumID] = append(m.AlbumTracks_[albumID], services.SpotifySimpleTrack{
			ID:          fmt.Sprintf("%s-%d", albumID, i+1),
			URI:         fmt.Sprintf("spotify:track:%s-%d", albumID, i+1),
			Name:        name,
			TrackNumber: i + 1,
		})
	}
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) SearchArtist(ctx context.Context, query string) (*services.SpotifyArtist, error) {
	for _, a := range m.Artists {
		if strings.EqualFold(a.Name, query) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrArtistNotFound, query)
}

func (m *MockService) ArtistAlbums(ctx context.Context, artistID string, limit int) (*services.SpotifyAlbumPage, error) {
	m.AlbumCalls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxFlight.Load()
		if n <= peak || m.maxFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := m.AlbumErrors[artistID]; err != nil {
		return nil, err
	}
	albums := m.Albums[artistID]
	if limit > 0 && len(albums) > limit {
		albums = albums[:limit]
	}
	return &services.SpotifyAlbumPage{Items: albums, Total: len(m.Albums[artistID]), Limit: limit}, nil
}

func (m *MockService) AlbumTracks(ctx context.Context, albumID string) ([]services.SpotifySimpleTrack, error) {
	m.AlbumTrackCalls.Add(1)
	tracks, ok := m.AlbumTracks_[albumID]
	if !ok {
		return nil, fmt.Errorf("%w: album %s", shared.ErrNotFound, albumID)
	}
	return tracks, nil
}

func (m *MockService) ArtistTopTracks(ctx context.Context, artistID, market string) ([]services.SpotifyTrack, error) {
	return m.TopTracks[artistID], nil
}

func (m *MockService) SeveralArtists(ctx context.Context, artistIDs []string) ([]services.SpotifyArtist, error) {
	m.mu.Lock()
	m.lookups = append(m.lookups, slices.Clone(artistIDs))
	m.mu.Unlock()

	if m.ArtistsErr != nil {
		return nil, m.ArtistsErr
	}
	var out []services.SpotifyArtist
	for _, id := range artistIDs {
		if a, ok := m.Artists[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockService) ReplacePlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, PlaylistCall{Method: "replace", PlaylistID: playlistID, URIs: slices.Clone(uris)})
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.remote[playlistID] = slices.Clone(uris)
	return nil
}

func (m *MockService) AddPlaylistItems(ctx context.Context, playlistID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.adds++
	m.calls = append(m.calls, PlaylistCall{Method: "add", PlaylistID: playlistID, URIs: slices.Clone(uris)})
	if m.AddErr != nil && (m.AddErrAt == 0 || m.AddErrAt == m.adds) {
		return m.AddErr
	}
	m.remote[playlistID] = append(m.remote[playlistID], uris...)
	return nil
}

func (m *MockService) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	u := m.User
	return &u, nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, userID string, details services.PlaylistDetails) (*services.SpotifyPlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.created = append(m.created, details)
	id := fmt.Sprintf("playlist%d", len(m.created))
	m.remote[id] = []string{}
	return &services.SpotifyPlaylist{ID: id, Name: details.Name, Description: details.Description, Public: details.Public}, nil
}

func (m *MockService) ChangePlaylistDetails(ctx context.Context, playlistID string, details services.PlaylistDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.renamed = append(m.renamed, details)
	return m.RenameErr
}

func (m *MockService) PlaylistItems(ctx context.Context, playlist string) ([]services.SpotifyPlaylistTrack, error) {
	id, err := services.ParsePlaylistID(playlist)
	if err != nil {
		return nil, err
	}
	items, ok := m.PlaylistTracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return items, nil
}

// Remote returns the current contents of a playlist.
func (m *MockService) Remote(playlistID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.remote[playlistID])
}

// Calls returns every replace and add call in order.
func (m *MockService) Calls() []PlaylistCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// ResetCalls forgets recorded playlist calls.
func (m *MockService) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.adds = 0
}

// Created returns the details of every created playlist.
func (m *MockService) Created() []services.PlaylistDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.created)
}

// Renamed returns the details of every rename call.
func (m *MockService) Renamed() []services.PlaylistDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.renamed)
}

// ArtistLookups returns the ID batches passed to SeveralArtists.
func (m *MockService) ArtistLookups() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lookups)
}

// MaxConcurrentAlbumCalls is the highest number of ArtistAlbums calls observed in flight at once.
func (m *MockService) MaxConcurrentAlbumCalls() int {
	return int(m.maxFlight.Load())
}

// MemoryStore is a StateSaver that keeps a snapshot of each save.
type MemoryStore struct {
	Err error

	mu        sync.Mutex
	snapshots [][]models.TrackRecord
	playlist  string
}

func (s *MemoryStore) Save(ctx context.Context, state *models.State) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, state.Tracks.Records())
	s.playlist = state.PlaylistID
	return nil
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Snapshot returns the tracks as of the i-th save.
func (s *MemoryStore) Snapshot(i int) []models.TrackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[i]
}

// PlaylistID returns the playlist id of the last save.
func (s *MemoryStore) PlaylistID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playlist
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
