package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/shared"
)

// StateStore loads and saves [models.State].
type StateStore struct {
	db *sql.DB
}

// NewStateStore creates a new StateStore with the given database connection
func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// Load reads the whole state. An empty database yields an empty state with no playlist.
func (s *StateStore) Load(ctx context.Context) (*models.State, error) {
	state := models.NewState()

	var playlistID string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingPlaylistID).Scan(&playlistID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read playlist id: %w", err)
	default:
		state.PlaylistID = playlistID
	}

	artists, err := s.loadArtists(ctx)
	if err != nil {
		return nil, err
	}
	state.Artists = artists

	records, err := s.loadTracks(ctx)
	if err != nil {
		return nil, err
	}
	state.Tracks = models.NewTrackState(records)
	if state.Tracks.Len() != len(records) {
		return nil, fmt.Errorf("%w: duplicate tracks stored", shared.ErrStateCorrupt)
	}

	return state, nil
}

func (s *StateStore) loadArtists(ctx context.Context) ([]models.Artist, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM artists ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return artists, nil
}

func (s *StateStore) loadTracks(ctx context.Context) ([]models.TrackRecord, error) {
	query := `
		SELECT uri, name, artist_id, artist_name, album_name, track_number, added_at
		FROM tracks
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var records []models.TrackRecord
	for rows.Next() {
		var (
			r       models.TrackRecord
			addedAt time.Time
		)
		if err := rows.Scan(&r.URI, &r.Name, &r.ArtistID, &r.ArtistName, &r.AlbumName, &r.TrackNumber, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		r.AddedAt = addedAt.UTC()
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}

// Save replaces the stored state with state in one transaction.
func (s *StateStore) Save(ctx context.Context, state *models.State) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := savePlaylistID(ctx, tx, state.PlaylistID); err != nil {
			return err
		}
		if err := saveArtists(ctx, tx, state.Artists); err != nil {
			return err
		}
		return saveTracks(ctx, tx, state.Tracks.Records())
	})
}

func savePlaylistID(ctx context.Context, tx *sql.Tx, id string) error {
	if id == "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, settingPlaylistID); err != nil {
			return fmt.Errorf("failed to clear playlist id: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, settingPlaylistID, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save playlist id: %w", err)
	}
	return nil
}

func saveArtists(ctx context.Context, tx *sql.Tx, artists []models.Artist) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM artists`); err != nil {
		return fmt.Errorf("failed to clear artists: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO artists (id, name, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare artist insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range artists {
		if _, err := stmt.ExecContext(ctx, a.ID, a.Name, i); err != nil {
			return fmt.Errorf("failed to insert artist %s: %w", a.Name, err)
		}
	}
	return nil
}

func saveTracks(ctx context.Context, tx *sql.Tx, records []models.TrackRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return fmt.Errorf("failed to clear tracks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tracks (uri, name, norm_name, artist_id, artist_name, album_name, track_number, added_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare track insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.URI,
			r.Name,
			r.NormalizedName(),
			r.ArtistID,
			r.ArtistName,
			r.AlbumName,
			r.TrackNumber,
			r.AddedAt.UTC(),
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track %s: %w", r.URI, err)
		}
	}
	return nil
}
