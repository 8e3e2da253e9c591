// Package pipeline orchestrates one scan: fetch, normalize, cluster, reason,
// assemble, persist. Every run is an independent, stateless invocation; the
// store is the only shared mutable resource.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trendpulse/internal/cluster"
	"trendpulse/internal/core"
	"trendpulse/internal/logger"
	"trendpulse/internal/reasoning"
	"trendpulse/internal/report"
	"trendpulse/internal/sources"
	"trendpulse/internal/tags"
)

// Fetcher aggregates raw items across all configured sources.
type Fetcher interface {
	FetchAll(ctx context.Context, opts sources.FetchOptions) sources.FetchResult
}

// Reasoner is the degradation-aware reasoning engine with call accounting.
type Reasoner interface {
	reasoning.Engine
	Calls() int
	QuotaExceeded() bool
}

// Persister is the slice of the report store the pipeline depends on.
type Persister interface {
	PutReport(ctx context.Context, report *core.TrendsReport) error
	GetLatestReport(ctx context.Context) (*core.TrendsReport, error)
	GetAliases(ctx context.Context) ([]core.AliasRule, error)
}

// Options control a single scan invocation.
type Options struct {
	ForceRefresh    bool   // rebuild even when today's report already exists
	EnableReasoning *bool  // nil means the configured default
	Keyword         string // optional keyword filter passed to the sources
}

// ScanResult is the report plus scan counters returned to triggers.
type ScanResult struct {
	RunID         string
	Report        *core.TrendsReport
	ItemCount     int
	LLMCalls      int
	QuotaExceeded bool
	Cached        bool
}

// Scanner runs the full pipeline. It holds collaborators, not state.
type Scanner struct {
	fetcher          Fetcher
	reasoner         Reasoner
	store            Persister
	reasoningDefault bool
	fetchOpts        sources.FetchOptions
	now              func() time.Time
	log              zerolog.Logger
}

// NewScanner wires the pipeline stages together.
func NewScanner(fetcher Fetcher, reasoner Reasoner, store Persister, reasoningDefault bool, fetchOpts sources.FetchOptions) *Scanner {
	return &Scanner{
		fetcher:          fetcher,
		reasoner:         reasoner,
		store:            store,
		reasoningDefault: reasoningDefault,
		fetchOpts:        fetchOpts,
		now:              time.Now,
		log:              logger.With("pipeline"),
	}
}

// Scan executes one pipeline run. Source and reasoning failures degrade; only
// persistence errors (and an unreadable latest pointer on the cached path)
// propagate to the caller.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*ScanResult, error) {
	runID := uuid.NewString()
	started := s.now()
	dayKey := core.DayKey(started)
	log := s.log.With().Str("run_id", runID).Logger()

	if !opts.ForceRefresh {
		latest, err := s.store.GetLatestReport(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read latest report: %w", err)
		}
		if latest != nil && latest.Meta.DayKey == dayKey {
			log.Info().Str("day_key", dayKey).Msg("reusing existing report for today")
			return &ScanResult{RunID: runID, Report: latest, ItemCount: len(latest.Feed), Cached: true}, nil
		}
	}

	var logs []string
	addLog := func(format string, args ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, args...))
	}

	// fetch
	fetchOpts := s.fetchOpts
	fetchOpts.Keyword = opts.Keyword
	fetched := s.fetcher.FetchAll(ctx, fetchOpts)
	addLog("fetched %d items (%d after filters)", fetched.Scanned, len(fetched.Items))
	if len(fetched.SourcesFailed) > 0 {
		addLog("%d sources contributed no items: %v", len(fetched.SourcesFailed), fetched.SourcesFailed)
	}
	if fetched.FilterFallback {
		addLog("keyword %q matched nothing, full dataset retained", opts.Keyword)
	}

	// normalize tags; items whose tags all drop still flow into the
	// residual bucket
	normalizer := s.buildNormalizer(ctx, &logs)
	items := make([]cluster.Item, 0, len(fetched.Items))
	for _, raw := range fetched.Items {
		items = append(items, cluster.Item{Raw: raw, Tags: normalizer.NormalizeAll(raw.Tags)})
	}

	// cluster and dedup
	clustered := cluster.Cluster(items)
	addLog("clustered into %d theme groups, %d duplicates dropped", len(clustered.Groups), clustered.Duplicates)

	// reasoning, with degradation
	reasoningResult := s.reason(ctx, opts, clustered.Groups)
	addLog("reasoning path: %s", reasoningResult.Source)

	// assemble
	feed := flattenFeed(clustered.Groups)
	filtered := fetched.Scanned - len(fetched.Items) + clustered.Duplicates
	built := report.Build(report.BuildInput{
		DayKey:          dayKey,
		ExecutionTimeMS: s.now().Sub(started).Milliseconds(),
		ItemsScanned:    fetched.Scanned,
		ItemsFiltered:   filtered,
		UsedDatasource:  fetched.UsedDatasource,
		UsedReasoning:   reasoningResult.Source,
		Logs:            logs,
		Insight:         reasoningResult.Insight,
		Trends:          reasoningResult.Trends,
		Feed:            feed,
		Themes:          clustered.Groups,
	})

	// persist
	if err := s.store.PutReport(ctx, &built); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	log.Info().
		Str("day_key", dayKey).
		Int("items", len(built.Feed)).
		Msg("scan completed")

	return &ScanResult{
		RunID:         runID,
		Report:        &built,
		ItemCount:     len(built.Feed),
		LLMCalls:      s.reasoner.Calls(),
		QuotaExceeded: s.reasoner.QuotaExceeded(),
	}, nil
}

// buildNormalizer loads user alias rules, degrading to packaged defaults
// when the table cannot be read.
func (s *Scanner) buildNormalizer(ctx context.Context, logs *[]string) *tags.Normalizer {
	rules, err := s.store.GetAliases(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load alias table, using defaults")
		*logs = append(*logs, "alias table unavailable, default aliases in effect")
		return tags.NewNormalizer(nil)
	}
	return tags.NewNormalizer(rules)
}

// reason runs the reasoning stage, or the heuristic directly when the stage
// is disabled for this invocation.
func (s *Scanner) reason(ctx context.Context, opts Options, groups []core.ThemeGroup) reasoning.Result {
	enabled := s.reasoningDefault
	if opts.EnableReasoning != nil {
		enabled = *opts.EnableReasoning
	}

	if !enabled {
		result, _ := reasoning.NewHeuristicEngine().Analyze(ctx, groups)
		return result
	}

	result, err := s.reasoner.Analyze(ctx, groups)
	if err != nil {
		// the fallback engine never errors, but keep the belt with the braces
		heuristic, _ := reasoning.NewHeuristicEngine().Analyze(ctx, groups)
		return heuristic
	}
	return result
}

// flattenFeed concatenates ranked cards across groups, theme order first,
// residual bucket last.
func flattenFeed(groups []core.ThemeGroup) []core.Card {
	var feed []core.Card
	for _, group := range groups {
		if group.Theme == core.ThemeOther {
			continue
		}
		feed = append(feed, group.Cards...)
	}
	for _, group := range groups {
		if group.Theme == core.ThemeOther {
			feed = append(feed, group.Cards...)
		}
	}
	return feed
}
