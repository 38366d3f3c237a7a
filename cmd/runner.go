package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/repositories"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The config, database and Spotify client are resolved lazily so that commands such as setup
// and list work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Service
	db         *sql.DB
	ownsDB     bool
	store      *repositories.StateStore
	runs       *repositories.RunRepository
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
	mu         sync.Mutex
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Service
	DB         *sql.DB // migrated database; opened from config when nil
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
	}
	if opts.DB != nil {
		r.useDB(opts.DB, false)
	}
	return r
}

// SetLogger replaces the runner's logger, e.g. to redirect logs away from the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) useDB(db *sql.DB, owned bool) {
	r.db = db
	r.ownsDB = owned
	r.store = repositories.NewStateStore(db)
	r.runs = repositories.NewRunRepository(db)
}

// prepare is the root Before hook: it applies --verbose and loads the configuration.
func (r *Runner) prepare(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.config != nil {
		return ctx, nil
	}

	if r.configPath == "" {
		r.configPath = cmd.String("config")
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if config, err = shared.LoadConfig(r.configPath); err != nil {
			return ctx, err
		}
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	config.ApplyEnv(os.Getenv)
	if err := config.Validate(); err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// cleanup is the root After hook.
func (r *Runner) cleanup(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close releases the database when the runner opened it.
func (r *Runner) Close() error {
	if !r.ownsDB || r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.store, r.runs = nil, nil, nil
	return err
}

// openStore opens and migrates the configured database once.
func (r *Runner) openStore(ctx context.Context) error {
	if r.store != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Debug("database ready", "path", r.config.Database.Path)
	r.useDB(db, true)
	return nil
}

func (r *Runner) loadState(ctx context.Context) (*models.State, error) {
	if err := r.openStore(ctx); err != nil {
		return nil, err
	}
	return r.store.Load(ctx)
}

// withLock runs fn while holding the single-writer state lock.
func (r *Runner) withLock(fn func() error) error {
	lock, err := shared.AcquireStateLock(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("failed to release state lock", "error", err)
		}
	}()
	return fn()
}

// service returns the authenticated Spotify client, creating it from the stored credentials on first use.
func (r *Runner) service(ctx context.Context) (services.Service, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	creds := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(creds.Map(), r.spotifyOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'freshlist auth' or set SPOTIFY_REFRESH_TOKEN", shared.ErrNotAuthenticated)
	}
	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	svc.SetTokenRefreshCallback(r.persistToken)

	r.spotify = svc
	return svc, nil
}

func (r *Runner) spotifyOptions() []services.Option {
	api := r.config.Spotify
	var opts []services.Option
	if api.RateLimit > 0 {
		opts = append(opts, services.WithRateLimit(api.RateLimit))
	}
	if api.RequestTimeout.Duration > 0 {
		opts = append(opts, services.WithRequestTimeout(api.RequestTimeout.Duration))
	}
	if api.MaxRetries > 0 {
		opts = append(opts, services.WithMaxRetries(api.MaxRetries))
	}
	return opts
}

// persistToken is the token refresh callback. Failures are logged; the refreshed token still serves this run.
func (r *Runner) persistToken(token *oauth2.Token) {
	if err := r.saveTokens(token); err != nil {
		r.logger.Warn("failed to persist refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

// saveTokens stores token in the config and writes it to configPath when one is set.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config == nil {
		return errors.New("config is nil")
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// newEngine wires a pass engine to the runner's store, history and configuration.
func (r *Runner) newEngine(svc services.Service, opts ...tasks.EngineOption) *tasks.Engine {
	update := r.config.Update
	fetcher := tasks.NewFetcher(svc, tasks.FetcherOpts{
		Workers:    update.Workers,
		AlbumLimit: update.AlbumLimit,
		Deadline:   update.FetchDeadline.Duration,
		Logger:     r.logger,
	})

	base := []tasks.EngineOption{
		tasks.WithRunRecorder(r.runs),
		tasks.WithPlaylistDetails(services.PlaylistDetails{
			Name:        r.config.Playlist.Name,
			Description: r.config.Playlist.Description,
			Public:      r.config.Playlist.Public,
		}),
		tasks.WithLogger(r.logger),
		tasks.WithClock(r.now),
	}
	return tasks.NewEngine(fetcher, svc, r.store, append(base, opts...)...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
