// package tasks implements the freshlist reconciliation pass.
//
// The core abstraction is Engine, which owns one pass from fetch to write-back.
// Passes emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
)

// StateSaver persists the state at pass checkpoints.
type StateSaver interface {
	Save(ctx context.Context, state *models.State) error
}

// RunRecorder keeps pass history.
type RunRecorder interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, run *models.SyncRun) error
}

// MetricsRecorder receives pass outcomes.
type MetricsRecorder interface {
	ObservePass(status string, d time.Duration)
	TracksAdded(n int)
	TracksEvicted(n int)
	ArtistFetchFailed(n int)
	PlaylistSize(n int)
}

// PlaylistRemote is the slice of the Spotify API the engine writes through.
type PlaylistRemote interface {
	services.PlaylistWriter
	services.PlaylistManager
}

// PassResult summarizes a pass.
type PassResult struct {
	RunID         string
	Artists       int
	Fetched       int      // candidate tracks returned by all artists
	FailedArtists []string // names of artists that contributed nothing because of an error
	Reconcile     ReconcileStats
	Sync          SyncStats
	Synced        int // playlist length after write-back
	Duration      time.Duration
}

// Engine runs reconciliation passes.
type Engine struct {
	fetcher *Fetcher
	remote  PlaylistRemote
	store   StateSaver
	runs    RunRecorder
	metrics MetricsRecorder
	details services.PlaylistDetails
	logger  *log.Logger
	now     func() time.Time
}

// EngineOption configures an [Engine].
type EngineOption func(*Engine)

// WithRunRecorder records every pass.
func WithRunRecorder(r RunRecorder) EngineOption {
	return func(e *Engine) { e.runs = r }
}

// WithMetrics reports pass outcomes to m.
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithPlaylistDetails sets the name, description and visibility used to create or rename the playlist.
func WithPlaylistDetails(d services.PlaylistDetails) EngineOption {
	return func(e *Engine) { e.details = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an [Engine]. store may not be nil.
func NewEngine(fetcher *Fetcher, remote PlaylistRemote, store StateSaver, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher: fetcher,
		remote:  remote,
		store:   store,
		logger:  shared.NewLogger(nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// EnsurePlaylist creates the managed playlist when state has none, or renames the existing one.
//
// A failed rename is logged and ignored. A created playlist is saved to state immediately.
func (e *Engine) EnsurePlaylist(ctx context.Context, state *models.State, progress chan<- ProgressUpdate) (created bool, err error) {
	if state.PlaylistID != "" {
		if e.details.Name == "" {
			return false, nil
		}
		if err := e.remote.ChangePlaylistDetails(ctx, state.PlaylistID, e.details); err != nil {
			if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
				return false, err
			}
			e.logger.Warn("failed to update playlist details", "playlist", state.PlaylistID, "error", err)
		}
		return false, nil
	}

	if e.details.Name == "" {
		return false, fmt.Errorf("%w: no playlist recorded and no playlist name configured", shared.ErrPlaylistNotFound)
	}

	e.sendProgress(progress, preparingUpdate("Creating playlist on Spotify..."))
	user, err := e.remote.CurrentUser(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get current user: %w", err)
	}

	playlist, err := e.remote.CreatePlaylist(ctx, user.ID, e.details)
	if err != nil {
		return false, fmt.Errorf("failed to create playlist: %w", err)
	}

	state.PlaylistID = playlist.ID
	if err := e.store.Save(ctx, state); err != nil {
		return true, fmt.Errorf("failed to save new playlist id: %w", err)
	}

	e.logger.Info("created playlist", "id", playlist.ID, "name", playlist.Name)
	e.sendProgress(progress, playlistCreatedUpdate(state, playlist.Name))
	return true, nil
}

// Update runs one full pass over state: fetch, reconcile, sort, then write back.
//
// state is mutated in place and saved after eviction, merge and sort. A write-back failure
// returns an error wrapping [shared.ErrSyncWrite] with the reconciled state already saved.
func (e *Engine) Update(ctx context.Context, state *models.State, progress chan<- ProgressUpdate) (result *PassResult, err error) {
	now := e.now()
	result = &PassResult{RunID: shared.GenerateID()}
	logger := shared.WithLogger(e.logger, "run_id", result.RunID)

	run := &models.SyncRun{
		ID:        result.RunID,
		StartedAt: now,
		Phase:     Preparing.String(),
		Status:    models.RunRunning,
	}
	if e.runs != nil {
		if err := e.runs.Create(ctx, run); err != nil {
			logger.Warn("failed to record run start", "error", err)
		}
	}
	defer func() { e.finish(ctx, logger, run, result, err) }()

	if _, err := e.EnsurePlaylist(ctx, state, progress); err != nil {
		return result, err
	}

	// FETCHING
	run.Phase = Fetching.String()
	registry := state.Registry()
	artists := registry.Artists()
	result.Artists = len(artists)
	e.sendProgress(progress, fetchStartUpdate(len(artists)))

	fetched := e.fetcher.FetchAll(ctx, artists, now, func(done int, res ArtistResult) {
		e.sendProgress(progress, fetchArtistUpdate(done, len(artists), res))
	})
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("pass cancelled while fetching: %w", err)
	}

	candidates := fetched.Candidates()
	result.Fetched = len(candidates)
	for _, failed := range fetched.Failed() {
		result.FailedArtists = append(result.FailedArtists, failed.Artist.Name)
	}
	logger.Info("fetch complete", "artists", len(artists), "failed", len(result.FailedArtists), "candidates", len(candidates))

	// RECONCILING
	run.Phase = Reconciling.String()
	result.Reconcile.Expired, result.Reconcile.Orphaned = Evict(state.Tracks, registry, now)
	e.sendProgress(progress, evictedUpdate(result.Reconcile.Expired, result.Reconcile.Orphaned))
	if err := e.checkpoint(ctx, state, "evict"); err != nil {
		return result, err
	}

	result.Reconcile.Added, result.Reconcile.Skipped = Merge(state.Tracks, candidates, now)
	e.sendProgress(progress, mergedUpdate(result.Reconcile.Added, result.Reconcile.Skipped))
	if err := e.checkpoint(ctx, state, "merge"); err != nil {
		return result, err
	}

	// SORTING
	run.Phase = Sorting.String()
	SortTracks(state.Tracks)
	e.sendProgress(progress, sortedUpdate(state.Tracks.Len()))
	if err := e.checkpoint(ctx, state, "sort"); err != nil {
		return result, err
	}

	// SYNCING
	run.Phase = Syncing.String()
	result.Sync, err = SyncPlaylist(ctx, e.remote, state.PlaylistID, state.Tracks.URIs(), func(step, total, sent int) {
		e.sendProgress(progress, syncChunkUpdate(step, total, sent))
	})
	if err != nil {
		return result, err
	}
	result.Synced = result.Sync.Total

	run.Phase = Idle.String()
	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

func (e *Engine) checkpoint(ctx context.Context, state *models.State, stage string) error {
	if err := e.store.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to save state after %s: %w", stage, err)
	}
	return nil
}

// finish records the run outcome. It runs on every exit path of Update.
func (e *Engine) finish(ctx context.Context, logger *log.Logger, run *models.SyncRun, result *PassResult, err error) {
	finished := e.now()
	result.Duration = finished.Sub(run.StartedAt)

	run.FinishedAt = &finished
	run.Fetched = result.Fetched
	run.Added = result.Reconcile.Added
	run.Evicted = result.Reconcile.Evicted()
	run.FailedArtists = len(result.FailedArtists)
	run.Synced = result.Synced
	run.Status = models.RunOK
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
		logger.Error("pass failed", "phase", run.Phase, "error", err)
	} else {
		logger.Info("pass complete",
			"added", run.Added, "evicted", run.Evicted, "synced", run.Synced, "duration", result.Duration)
	}

	if e.runs != nil {
		// The pass context may already be cancelled; the history row should still land.
		if ferr := e.runs.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			logger.Warn("failed to record run result", "error", ferr)
		}
	}

	if e.metrics != nil {
		e.metrics.ObservePass(run.Status, result.Duration)
		e.metrics.TracksAdded(result.Reconcile.Added)
		e.metrics.TracksEvicted(result.Reconcile.Evicted())
		e.metrics.ArtistFetchFailed(len(result.FailedArtists))
		if err == nil {
			e.metrics.PlaylistSize(result.Synced)
		}
	}
}
