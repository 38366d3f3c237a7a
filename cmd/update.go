package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/freshlist/internal/server"
	"github.com/desertthunder/freshlist/internal/shared"
	"github.com/desertthunder/freshlist/internal/tasks"
	"github.com/desertthunder/freshlist/internal/telemetry"
	"github.com/desertthunder/freshlist/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Update runs one pass and prints each stage as it happens.
func (r *Runner) Update(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		return r.UpdateTUI(ctx)
	}

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}

	return r.withLock(func() error {
		var result *tasks.PassResult
		err := r.withReauth(ctx, func() error {
			state, err := r.loadState(ctx)
			if err != nil {
				return err
			}
			r.writePlain("Managing playlist: %s\n", orNone(state.PlaylistID))

			progress := make(chan tasks.ProgressUpdate, 64)
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				for u := range progress {
					r.writePlain("%s\n", u.Message)
				}
			}()

			result, err = r.newEngine(svc).Update(ctx, state, progress)
			close(progress)
			<-printed
			return err
		})
		if err != nil {
			return err
		}
		return r.printPassResult(result)
	})
}

func orNone(s string) string {
	if s == "" {
		return "(none yet)"
	}
	return s
}

func (r *Runner) printPassResult(result *tasks.PassResult) error {
	r.writePlainln("%s", ui.Success("✓ Update complete."))
	r.writePlain("  Artists:  %d (%d failed)\n", result.Artists, len(result.FailedArtists))
	r.writePlain("  Added:    %d (%d duplicates skipped)\n", result.Reconcile.Added, result.Reconcile.Skipped)
	r.writePlain("  Evicted:  %d expired, %d orphaned\n", result.Reconcile.Expired, result.Reconcile.Orphaned)
	r.writePlain("  Playlist: %d tracks\n", result.Synced)
	for _, name := range result.FailedArtists {
		r.writePlain("  %s\n", ui.Warning("! no results for "+name))
	}
	return nil
}

// Watch runs a pass immediately and then every interval until SIGINT or SIGTERM.
//
// The state lock is held for the whole run. With a metrics address, /metrics and /healthz are
// served alongside the scheduler and a listen failure stops both.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	interval := r.config.Watch.Interval.Duration
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}
	if interval <= 0 {
		return fmt.Errorf("%w: watch interval must be positive", shared.ErrInvalidArgument)
	}
	addr := r.config.Watch.MetricsAddr
	if cmd.IsSet("metrics-addr") {
		addr = cmd.String("metrics-addr")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := r.service(ctx)
	if err != nil {
		return err
	}
	if err := r.openStore(ctx); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	status := &server.PassStatus{}
	engine := r.newEngine(svc, tasks.WithMetrics(metrics))

	pass := func(ctx context.Context) error {
		state, err := r.store.Load(ctx)
		if err != nil {
			status.Record("", r.now(), err)
			return err
		}
		result, err := engine.Update(ctx, state, nil)
		status.Record(result.RunID, r.now(), err)
		if err != nil {
			return err
		}
		return r.printPassResult(result)
	}

	return r.withLock(func() error {
		g, gctx := errgroup.WithContext(ctx)
		if addr != "" {
			router := server.NewBasicRouter()
			router.Use(server.RequestLogger(r.logger))
			router.Handler(server.NewMonitorHandler(metrics.Handler(), status))

			r.logger.Info("serving metrics", "addr", addr)
			g.Go(func() error { return server.Serve(gctx, addr, router) })
		}

		scheduler := tasks.NewScheduler(interval, interval/10, pass, r.logger)
		g.Go(func() error { return scheduler.Run(gctx) })

		r.writePlain("Watching: one pass every %s. Press Ctrl+C to stop.\n", interval.Round(time.Second))
		return g.Wait()
	})
}
