package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/freshlist/internal/formatter"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Tracks prints the retained tracks with the time each has left on the playlist.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}

	export := formatter.NewTrackExport(state, r.config.Playlist.Name, r.now())
	format := cmd.String("format")

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(export, format, path); err != nil {
			return err
		}
		r.logger.Info("tracks exported", "path", path, "format", format, "tracks", len(export.Tracks))
		return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ %d tracks written to %s", len(export.Tracks), path)))
	}

	data, err := formatter.Format(export, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Runs prints the most recent passes, newest first.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(ctx); err != nil {
		return err
	}

	runs, err := r.runs.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if runs == nil {
			runs = []*models.SyncRun{}
		}
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No passes recorded yet.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Recent passes (%d)", len(runs)))
	for _, run := range runs {
		status := ui.Success(run.Status)
		switch run.Status {
		case models.RunFailed:
			status = ui.Failure(run.Status)
		case models.RunRunning:
			status = ui.Warning(run.Status)
		}

		r.writePlain("%s  %s  %s\n", run.StartedAt.Local().Format(time.DateTime), status, ui.Muted(run.ID))
		r.writePlain("  added %d, evicted %d, synced %d", run.Added, run.Evicted, run.Synced)
		if run.FailedArtists > 0 {
			r.writePlain(", %d artists failed", run.FailedArtists)
		}
		if d := run.Duration(); d > 0 {
			r.writePlain(" in %s", d.Round(time.Millisecond))
		}
		r.writePlain("\n")
		if run.Error != "" {
			r.writePlain("  %s\n", ui.Failure(fmt.Sprintf("%s: %s", run.Phase, run.Error)))
		}
	}
	return nil
}
