package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/freshlist/internal/models"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/tasks"
	"github.com/desertthunder/freshlist/internal/ui"
)

const tuiLogPath = "./tmp/freshlist-tui.log"

// UpdateTUI runs a pass inside the interactive progress view. The view can start further passes.
func (r *Runner) UpdateTUI(ctx context.Context) error {
	svc, err := r.service(ctx)
	if err != nil {
		return err
	}
	if err := r.openStore(ctx); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	return r.withLock(func() error {
		// Quitting mid-pass stops the pass before the lock is released.
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		engine := r.newEngine(svc)

		var state *models.State
		run := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.PassResult, error) {
			loaded, err := r.store.Load(ctx)
			if err != nil {
				return nil, err
			}
			state = loaded
			return engine.Update(ctx, loaded, progress)
		}
		tracks := func() []models.TrackRecord {
			if state == nil {
				return nil
			}
			return state.Tracks.Records()
		}

		model := ui.NewModel(ctx, run, tracks)
		final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
		if err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}

		if m, ok := final.(*ui.Model); ok {
			if _, passErr := m.Result(); passErr != nil {
				return passErr
			}
		}
		return nil
	})
}
