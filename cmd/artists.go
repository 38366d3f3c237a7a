package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/services"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/urfave/cli/v3"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// AddArtist resolves name on Spotify and appends the artist to the registry.
//
// The local name check runs first so known artists cost no API call. The resolved ID is checked
// again because a search can return an already tracked artist under a different spelling.
func (r *Runner) AddArtist(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	return r.withLock(func() error {
		state, err := r.loadState(ctx)
		if err != nil {
			return err
		}
		if _, ok := state.FindArtistByName(name); ok {
			return r.writePlain("%s\n", ui.Warning(fmt.Sprintf("Artist '%s' is already in the list.", name)))
		}

		svc, err := r.service(ctx)
		if err != nil {
			return err
		}

		var found *services.SpotifyArtist
		err = r.withReauth(ctx, func() error {
			found, err = svc.SearchArtist(ctx, name)
			return err
		})
		if errors.Is(err, shared.ErrArtistNotFound) {
			return r.writePlain("%s\n", ui.Warning(fmt.Sprintf("Artist '%s' not found on Spotify.", name)))
		}
		if err != nil {
			return fmt.Errorf("failed to search for %q: %w", name, err)
		}

		if !state.AddArtist(models.Artist{ID: found.ID, Name: found.Name}) {
			return r.writePlain("%s\n", ui.Warning(fmt.Sprintf("Artist '%s' is already in the list.", found.Name)))
		}
		if err := r.store.Save(ctx, state); err != nil {
			return err
		}

		r.logger.Info("artist added", "id", found.ID, "name", found.Name)
		return r.writePlain("%s\n", ui.Success("✓ Added artist: "+found.Name))
	})
}

// RemoveArtist drops an artist by case-insensitive name.
func (r *Runner) RemoveArtist(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	return r.withLock(func() error {
		state, err := r.loadState(ctx)
		if err != nil {
			return err
		}

		removed, ok := state.RemoveArtistByName(name)
		if !ok {
			return r.writePlain("%s\n", ui.Warning(fmt.Sprintf("Artist '%s' not found.", name)))
		}
		if err := r.store.Save(ctx, state); err != nil {
			return err
		}

		r.logger.Info("artist removed", "id", removed.ID, "name", removed.Name)
		return r.writePlain("%s\n", ui.Success("✓ Removed artist: "+removed.Name))
	})
}

// ListArtists prints the registry in insertion order.
func (r *Runner) ListArtists(ctx context.Context, cmd *cli.Command) error {
	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		artists := state.Artists
		if artists == nil {
			artists = []models.Artist{}
		}
		return r.writeJSON(artists, true)
	}

	if len(state.Artists) == 0 {
		return r.writePlain("No artists in the list.\n")
	}

	r.writePlain("%s\n", ui.Title(fmt.Sprintf("Tracked Artists (%d):", len(state.Artists))))
	for _, a := range state.Artists {
		r.writePlain("- %s\n", a.Name)
	}
	return nil
}

// ImportPlaylist tracks the primary artist of every playlist item. Removed and local items are skipped.
func (r *Runner) ImportPlaylist(ctx context.Context, cmd *cli.Command) error {
	playlist, err := requireArg(cmd, "playlist")
	if err != nil {
		return err
	}

	return r.withLock(func() error {
		state, err := r.loadState(ctx)
		if err != nil {
			return err
		}

		svc, err := r.service(ctx)
		if err != nil {
			return err
		}

		r.writePlain("Fetching tracks from playlist: %s...\n", playlist)
		var items []services.SpotifyPlaylistTrack
		err = r.withReauth(ctx, func() error {
			items, err = svc.PlaylistItems(ctx, playlist)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to import playlist: %w", err)
		}
		r.writePlain("Found %d tracks. Extracting artists...\n", len(items))

		added := 0
		for _, item := range items {
			if item.Track == nil {
				continue
			}
			primary, ok := item.Track.PrimaryArtist()
			if !ok || primary.ID == "" {
				continue
			}
			if state.AddArtist(models.Artist{ID: primary.ID, Name: primary.Name}) {
				added++
				r.writePlain("  + %s\n", primary.Name)
			}
		}

		if added > 0 {
			if err := r.store.Save(ctx, state); err != nil {
				return err
			}
		}

		r.logger.Info("playlist imported", "playlist", playlist, "items", len(items), "added", added)
		return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Import complete! Added %d new artists.", added)))
	})
}

// TopTracks prints a tracked artist's most popular tracks in the configured market.
func (r *Runner) TopTracks(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	artist, ok := state.FindArtistByName(name)
	if !ok {
		return fmt.Errorf("%w: %q is not tracked", shared.ErrArtistNotFound, name)
	}

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}

	var tracks []services.SpotifyTrack
	err = r.withReauth(ctx, func() error {
		tracks, err = svc.ArtistTopTracks(ctx, artist.ID, r.config.Spotify.Market)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get top tracks for %s: %w", artist.Name, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlain("%s\n", ui.Title(fmt.Sprintf("Top tracks for %s:", artist.Name)))
	for i, t := range tracks {
		r.writePlain("%d. %s", i+1, t.Name)
		if t.Album.Name != "" {
			r.writePlain(" (%s)", t.Album.Name)
		}
		r.writePlain("\n")
	}
	return nil
}
