// Package scheduler drives periodic scans. Context cancellation is the only
// stop mechanism; the scheduler never serializes runs against manual triggers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trendpulse/internal/logger"
	"trendpulse/internal/pipeline"
)

// defaultInterval is the time between scheduled scans.
const defaultInterval = 4 * time.Hour

// runner is the slice of the pipeline the scheduler invokes.
type runner interface {
	Scan(ctx context.Context, opts pipeline.Options) (*pipeline.ScanResult, error)
}

// Scheduler fires a scan at a fixed interval, aligned to the hour in UTC.
// Scheduled runs do not exclude concurrent manual runs; the store's last
// write wins on overlap.
type Scheduler struct {
	scanner  runner
	interval time.Duration
	runOnce  bool // fire an immediate scan on Start before the first tick
	wg       sync.WaitGroup
	log      zerolog.Logger
}

// New creates a scheduler over the given scanner. A non-positive interval
// falls back to the default cadence.
func New(scanner runner, interval time.Duration, runOnStart bool) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		runOnce:  runOnStart,
		log:      logger.With("scheduler"),
	}
}

// Interval returns the configured cadence.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Start launches the background loop. Call with a cancellable context, then
// Wait after cancelling.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.runOnce {
			s.run(ctx)
		}

		// align the first tick to the next hour boundary so scans land at
		// predictable wall-clock times
		select {
		case <-ctx.Done():
			return
		case <-time.After(untilNextAligned(time.Now().UTC(), s.interval)):
		}
		s.run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx)
			}
		}
	}()
}

// Wait blocks until the background loop exits. Call after cancelling the
// context passed to Start.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// run executes one scheduled scan. Failures are logged, never fatal to the
// loop.
func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	result, err := s.scanner.Scan(ctx, pipeline.Options{ForceRefresh: true})
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled scan failed")
		return
	}
	s.log.Info().
		Int("items", result.ItemCount).
		Dur("took", time.Since(started)).
		Msg("scheduled scan completed")
}

// untilNextAligned computes the wait until the next interval boundary after
// now, measured from midnight UTC. Intervals above an hour snap to hour
// multiples, so a 4h cadence fires at 00:00, 04:00, 08:00 and so on.
func untilNextAligned(now time.Time, interval time.Duration) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	elapsed := now.Sub(midnight)
	next := (elapsed/interval + 1) * interval
	return midnight.Add(next).Sub(now)
}
