package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/freshlist/internal/genres"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// CheckGenres flags tracked artists whose Spotify genres match none of the configured keywords.
func (r *Runner) CheckGenres(ctx context.Context, cmd *cli.Command) error {
	state, err := r.loadState(ctx)
	if err != nil {
		return err
	}
	if len(state.Artists) == 0 {
		return r.writePlain("No artists in the list.\n")
	}

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	if !useJSON {
		r.writePlain("Checking genres for %d artists...\n", len(state.Artists))
	}

	classifier := genres.NewKeywordClassifier(r.config.Genres.Keywords)
	report, err := genres.Check(ctx, svc, state.Artists, classifier, r.logger)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(report, true)
	}

	if len(report.Skipped) > 0 {
		r.writePlain("%s\n", ui.Warning(fmt.Sprintf("Could not check %d artists.", len(report.Skipped))))
	}
	if len(report.Findings) == 0 {
		return r.writePlainln("%s", ui.Success("All artists seem to fit the configured genres."))
	}

	r.writePlainln("%s", ui.Title("Possible off-genre artists found:"))
	for _, f := range report.Findings {
		r.writePlain("- %s %s\n", f.Artist.Name, ui.Muted("("+f.Reason+")"))
	}
	return nil
}
