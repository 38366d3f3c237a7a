package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/shared"
)

// RunRepository persists [models.SyncRun] history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run. A missing ID is generated.
func (r *RunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO sync_runs (
			id, started_at, finished_at, phase, status, fetched,
			added, evicted, failed_artists, synced, error
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC(),
		finishedAt(run),
		run.Phase,
		run.Status,
		run.Fetched,
		run.Added,
		run.Evicted,
		run.FailedArtists,
		run.Synced,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Finish writes the final phase, counters and status of a run.
func (r *RunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET finished_at = ?, phase = ?, status = ?, fetched = ?, added = ?,
			evicted = ?, failed_artists = ?, synced = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		finishedAt(run),
		run.Phase,
		run.Status,
		run.Fetched,
		run.Added,
		run.Evicted,
		run.FailedArtists,
		run.Synced,
		nullString(run.Error),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrNotFound, run.ID)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, phase, status, fetched, added, evicted, failed_artists, synced, error
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: run %s", shared.ErrNotFound, id)
	}
	return run, err
}

// List returns the most recent runs, newest first. A limit below 1 returns every run.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, phase, status, fetched, added, evicted, failed_artists, synced, error
		FROM sync_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.SyncRun]
func scanRun(row scanner) (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		startedAt  time.Time
		finishedAt sql.NullTime
		errMessage sql.NullString
	)

	err := row.Scan(
		&run.ID, &startedAt, &finishedAt, &run.Phase, &run.Status,
		&run.Fetched, &run.Added, &run.Evicted, &run.FailedArtists, &run.Synced, &errMessage,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = startedAt.UTC()
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		run.FinishedAt = &t
	}
	run.Error = errMessage.String
	return &run, nil
}

func finishedAt(run *models.SyncRun) any {
	if run.FinishedAt == nil {
		return nil
	}
	return run.FinishedAt.UTC()
}
