package reasoning

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"trendpulse/internal/core"
	"trendpulse/internal/logger"
)

// FallbackEngine chains a primary engine with the heuristic summarizer.
// Primary failure, timeout, or quota exhaustion never propagates: the
// heuristic path always answers, and the Result records which path ran.
type FallbackEngine struct {
	primary   Engine // nil disables the external call entirely
	heuristic Engine
	timeout   time.Duration
	maxCalls  int64
	calls     atomic.Int64
	log       zerolog.Logger
}

// NewFallbackEngine wraps primary (which may be nil) with heuristic fallback.
// maxCalls bounds external calls per engine lifetime; <=0 means unlimited.
func NewFallbackEngine(primary Engine, timeout time.Duration, maxCalls int) *FallbackEngine {
	return &FallbackEngine{
		primary:   primary,
		heuristic: NewHeuristicEngine(),
		timeout:   timeout,
		maxCalls:  int64(maxCalls),
		log:       logger.With("reasoning"),
	}
}

// Calls reports how many external calls have been attempted.
func (e *FallbackEngine) Calls() int { return int(e.calls.Load()) }

// QuotaExceeded reports whether the external call budget has been used up.
func (e *FallbackEngine) QuotaExceeded() bool {
	return e.maxCalls > 0 && e.calls.Load() >= e.maxCalls
}

// Analyze tries the primary engine within its timeout, falling back to the
// heuristic on any error. The returned Result is always usable.
func (e *FallbackEngine) Analyze(ctx context.Context, groups []core.ThemeGroup) (Result, error) {
	if e.primary == nil {
		return e.heuristic.Analyze(ctx, groups)
	}
	if e.QuotaExceeded() {
		e.log.Warn().Int64("max_calls", e.maxCalls).Msg("reasoning call budget exhausted, using heuristic")
		return e.heuristic.Analyze(ctx, groups)
	}

	e.calls.Add(1)

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.primary.Analyze(callCtx, groups)
	if err != nil {
		e.log.Warn().Err(err).Msg("external reasoning failed, using heuristic")
		return e.heuristic.Analyze(ctx, groups)
	}
	return result, nil
}
