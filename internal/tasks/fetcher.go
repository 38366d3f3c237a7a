package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers    = 10
	defaultAlbumLimit = 20
	defaultCacheTTL   = 6 * time.Hour
	releaseDateLayout = "2006-01-02"
)

// FetcherOpts configures a [Fetcher]. Zero values select the defaults.
type FetcherOpts struct {
	Workers    int           // Concurrent artist fetches (default: 10)
	AlbumLimit int           // Albums and singles requested per artist (default: 20)
	Deadline   time.Duration // Bound on the whole fan-out; zero disables it
	CacheTTL   time.Duration // How long album track lists are memoized (default: 6h)
	Logger     *log.Logger
}

// Fetcher retrieves candidate tracks from each artist's newest releases.
type Fetcher struct {
	catalog    services.Catalog
	workers    int
	albumLimit int
	deadline   time.Duration
	albums     *cache.Cache
	logger     *log.Logger
}

// NewFetcher creates a [Fetcher] reading from catalog.
func NewFetcher(catalog services.Catalog, opts FetcherOpts) *Fetcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.AlbumLimit <= 0 {
		opts.AlbumLimit = defaultAlbumLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Fetcher{
		catalog:    catalog,
		workers:    opts.Workers,
		albumLimit: opts.AlbumLimit,
		deadline:   opts.Deadline,
		albums:     cache.New(opts.CacheTTL, opts.CacheTTL*2),
		logger:     opts.Logger,
	}
}

// ArtistResult is one artist's share of a fan-out. Err is set when the artist was skipped.
type ArtistResult struct {
	Artist models.Artist
	Tracks []models.TrackRecord
	Err    error
}

// FetchResult holds every artist's result in registry order.
type FetchResult struct {
	Results []ArtistResult
}

// Candidates flattens the fetched tracks in registry order.
func (r FetchResult) Candidates() []models.TrackRecord {
	var out []models.TrackRecord
	for _, res := range r.Results {
		out = append(out, res.Tracks...)
	}
	return out
}

// Failed returns the results of artists whose fetch errored.
func (r FetchResult) Failed() []ArtistResult {
	var out []ArtistResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// parseReleaseDate parses a day-precision release date. ok is false for anything else.
func parseReleaseDate(s string) (time.Time, bool) {
	t, err := time.Parse(releaseDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// qualifies reports whether album is a day-precision release inside the retention window ending at now.
func qualifies(album services.SpotifyAlbum, now time.Time) bool {
	if album.ReleaseDatePrecision != "day" {
		return false
	}
	released, ok := parseReleaseDate(album.ReleaseDate)
	if !ok {
		return false
	}
	return !released.Before(now.Add(-models.RetentionWindow))
}

// FetchArtist returns the tracks of every qualifying release on the first page of artist's albums.
func (f *Fetcher) FetchArtist(ctx context.Context, artist models.Artist, now time.Time) ([]models.TrackRecord, error) {
	page, err := f.catalog.ArtistAlbums(ctx, artist.ID, f.albumLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: albums for %s: %w", shared.ErrFetchFailed, artist.Name, err)
	}

	var records []models.TrackRecord
	for _, album := range page.Items {
		if !qualifies(album, now) {
			continue
		}

		tracks, err := f.albumTracks(ctx, album.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: tracks for %s/%s: %w", shared.ErrFetchFailed, artist.Name, album.Name, err)
		}

		for _, t := range tracks {
			records = append(records, models.TrackRecord{
				URI:         t.URI,
				Name:        t.Name,
				ArtistID:    artist.ID,
				ArtistName:  artist.Name,
				AlbumName:   album.Name,
				TrackNumber: t.TrackNumber,
			})
		}
	}
	return records, nil
}

func (f *Fetcher) albumTracks(ctx context.Context, albumID string) ([]services.SpotifySimpleTrack, error) {
	if cached, ok := f.albums.Get(albumID); ok {
		return cached.([]services.SpotifySimpleTrack), nil
	}

	tracks, err := f.catalog.AlbumTracks(ctx, albumID)
	if err != nil {
		return nil, err
	}
	f.albums.SetDefault(albumID, tracks)
	return tracks, nil
}

// FetchAll fetches every artist on a bounded pool and waits for all of them.
//
// A failed artist never aborts the others. When the deadline passes, artists still outstanding
// fail with the context error. onDone, if set, is called from worker goroutines as each artist finishes.
func (f *Fetcher) FetchAll(ctx context.Context, artists []models.Artist, now time.Time, onDone func(done int, res ArtistResult)) FetchResult {
	fetchCtx := ctx
	if f.deadline > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, f.deadline)
		defer cancel()
	}

	results := make([]ArtistResult, len(artists))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(f.workers)

	for i, artist := range artists {
		g.Go(func() error {
			res := ArtistResult{Artist: artist}
			if err := fetchCtx.Err(); err != nil {
				res.Err = fmt.Errorf("%w: %s: %w", shared.ErrFetchFailed, artist.Name, err)
			} else {
				res.Tracks, res.Err = f.FetchArtist(fetchCtx, artist, now)
			}

			if res.Err != nil {
				res.Tracks = nil
				f.logger.Warn("artist fetch failed", "artist", artist.Name, "id", artist.ID, "error", res.Err)
			} else {
				f.logger.Debug("artist fetched", "artist", artist.Name, "tracks", len(res.Tracks))
			}

			results[i] = res
			if onDone != nil {
				onDone(int(done.Add(1)), res)
			}
			return nil
		})
	}

	_ = g.Wait()
	return FetchResult{Results: results}
}
