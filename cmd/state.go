package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/freshlist/internal/repositories"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// StateImportJSON replaces the stored state with a playlist_state.json file.
//
// A non-empty store is only overwritten with --force.
func (r *Runner) StateImportJSON(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()

	imported, err := repositories.ImportLegacyJSON(f)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	return r.withLock(func() error {
		current, err := r.loadState(ctx)
		if err != nil {
			return err
		}
		if !cmd.Bool("force") && (len(current.Artists) > 0 || current.Tracks.Len() > 0 || current.PlaylistID != "") {
			return fmt.Errorf("%w: state already holds %d artists and %d tracks; use --force to overwrite",
				shared.ErrInvalidArgument, len(current.Artists), current.Tracks.Len())
		}

		if err := r.store.Save(ctx, imported); err != nil {
			return err
		}

		r.logger.Info("state imported", "path", path, "artists", len(imported.Artists), "tracks", imported.Tracks.Len())
		return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Imported %d artists and %d tracks from %s",
			len(imported.Artists), imported.Tracks.Len(), path)))
	})
}

// StateExportJSON writes the stored state as playlist_state.json. A path of "-" writes to stdout.
func (r *Runner) StateExportJSON(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}

	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}

	if path == "-" {
		return repositories.ExportLegacyJSON(r.output, state)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	if err := repositories.ExportLegacyJSON(f, state); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Exported %d artists and %d tracks to %s",
		len(state.Artists), state.Tracks.Len(), path)))
}
