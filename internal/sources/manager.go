package sources

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trendpulse/internal/core"
	"trendpulse/internal/logger"
)

// FetchOptions configures a scan over all registered sources.
type FetchOptions struct {
	Keyword        string        // optional keyword filter over title/content/tags
	Since          time.Time     // drop items published before this instant
	Timeout        time.Duration // budget for the whole fan-out
	PolitenessWait time.Duration // delay between launches, to stay polite with upstreams
}

// FetchResult carries the aggregated items plus tagged degradation outcomes,
// so fallback paths stay visible to callers instead of blending into success.
type FetchResult struct {
	Items          []core.RawItem
	Scanned        int // items pulled before any filtering
	SourcesFailed  []string
	FilterFallback bool   // keyword filter matched nothing; full set returned
	UsedDatasource string // "live" or "mock"
}

// Manager fans a scan out across all registered adapters. A failing source
// contributes zero items and never aborts the scan.
type Manager struct {
	adapters       []Adapter
	maxConcurrency int
	filterFallback bool
	datasource     string
	log            zerolog.Logger
}

// NewManager creates a source manager over the given adapters.
// filterFallback keeps the original return-everything-on-empty-filter policy.
func NewManager(adapters []Adapter, maxConcurrency int, filterFallback bool, datasource string) *Manager {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if datasource == "" {
		datasource = core.DatasourceLive
	}
	return &Manager{
		adapters:       adapters,
		maxConcurrency: maxConcurrency,
		filterFallback: filterFallback,
		datasource:     datasource,
		log:            logger.With("sources"),
	}
}

// FetchAll runs every adapter, isolating per-source failures. It never
// returns an error: a malformed or unreachable source yields zero items.
func (m *Manager) FetchAll(ctx context.Context, opts FetchOptions) FetchResult {
	result := FetchResult{UsedDatasource: m.datasource}
	if len(m.adapters) == 0 {
		m.log.Warn().Msg("no sources registered")
		return result
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	m.log.Info().Int("source_count", len(m.adapters)).Int("max_concurrency", m.maxConcurrency).Msg("starting scan")

	sem := make(chan struct{}, m.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, adapter := range m.adapters {
		if opts.PolitenessWait > 0 && i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.PolitenessWait):
			}
		}
		select {
		case <-ctx.Done():
			m.log.Warn().Err(ctx.Err()).Msg("scan cancelled before all sources launched")
		default:
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(a Adapter) {
			defer wg.Done()
			defer func() { <-sem }()

			items := m.fetchOne(ctx, a)

			mu.Lock()
			if items == nil {
				result.SourcesFailed = append(result.SourcesFailed, a.Name())
			} else {
				result.Items = append(result.Items, items...)
			}
			mu.Unlock()
		}(adapter)
	}

	wg.Wait()

	result.Scanned = len(result.Items)
	result.Items = filterSince(result.Items, opts.Since)
	if opts.Keyword != "" {
		filtered := filterKeyword(result.Items, opts.Keyword)
		switch {
		case len(filtered) > 0:
			result.Items = filtered
		case m.filterFallback:
			// Keyword matched nothing: hand back the full set instead of an
			// empty one, and tag the outcome so callers can tell.
			result.FilterFallback = true
			m.log.Warn().Str("keyword", opts.Keyword).Msg("keyword filter matched nothing, returning full set")
		default:
			result.Items = nil
		}
	}

	m.log.Info().
		Int("items", len(result.Items)).
		Int("sources_failed", len(result.SourcesFailed)).
		Bool("filter_fallback", result.FilterFallback).
		Msg("scan completed")

	return result
}

// fetchOne wraps a single adapter call; a nil return marks the source failed.
func (m *Manager) fetchOne(ctx context.Context, a Adapter) []core.RawItem {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("source", a.Name()).Interface("panic", r).Msg("source adapter panicked")
		}
	}()

	items, err := a.Fetch(ctx)
	if err != nil {
		m.log.Error().Str("source", a.Name()).Err(err).Msg("source fetch failed")
		return nil
	}
	if items == nil {
		items = []core.RawItem{}
	}
	m.log.Debug().Str("source", a.Name()).Int("count", len(items)).Msg("source fetched")
	return items
}

func filterSince(items []core.RawItem, since time.Time) []core.RawItem {
	if since.IsZero() {
		return items
	}
	var out []core.RawItem
	for _, item := range items {
		if item.PublishedAt.IsZero() || !item.PublishedAt.Before(since) {
			out = append(out, item)
		}
	}
	return out
}

func filterKeyword(items []core.RawItem, keyword string) []core.RawItem {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return items
	}
	var out []core.RawItem
	for _, item := range items {
		if matchesKeyword(item, keyword) {
			out = append(out, item)
		}
	}
	return out
}

func matchesKeyword(item core.RawItem, keyword string) bool {
	if strings.Contains(strings.ToLower(item.Title), keyword) {
		return true
	}
	if strings.Contains(strings.ToLower(item.Content), keyword) {
		return true
	}
	for _, tag := range item.Tags {
		if strings.Contains(strings.ToLower(tag), keyword) {
			return true
		}
	}
	return false
}
