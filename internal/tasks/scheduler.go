package tasks

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/freshlist/internal/shared"
)

// PassFunc runs one scheduled pass.
type PassFunc func(ctx context.Context) error

// Scheduler repeats a pass on an interval with random jitter.
type Scheduler struct {
	interval time.Duration
	jitter   time.Duration
	pass     PassFunc
	logger   *log.Logger
}

// NewScheduler creates a [Scheduler]. jitter is the maximum offset applied either side of interval.
func NewScheduler(interval, jitter time.Duration, pass PassFunc, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	// A jitter of half the interval or more could produce a non-positive wait.
	jitter = min(jitter, interval/2)
	return &Scheduler{interval: interval, jitter: max(jitter, 0), pass: pass, logger: logger}
}

// nextInterval returns the base interval with a random offset in [-jitter, +jitter).
func (s *Scheduler) nextInterval() time.Duration {
	if s.jitter <= 0 {
		return s.interval
	}
	//nolint:gosec // G404: jitter does not need a cryptographic source
	offset := time.Duration(rand.Int64N(int64(2*s.jitter))) - s.jitter
	return s.interval + offset
}

// Run executes a pass immediately and then on every tick until ctx is cancelled.
//
// Pass errors are logged and do not stop the loop. Run returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runPass(ctx)

	wait := s.nextInterval()
	s.logger.Info("scheduled passes", "interval", s.interval, "next_in", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.runPass(ctx)
			wait = s.nextInterval()
			s.logger.Debug("next pass scheduled", "in", wait)
			timer.Reset(wait)
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return nil
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.pass(ctx); err != nil {
		s.logger.Error("scheduled pass failed", "error", err)
	}
}
