package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"trendpulse/internal/core"
	"trendpulse/internal/logger"
)

// Persisted record keys. The store exclusively owns this key space.
const (
	keyReportPrefix = "report:"
	keyLatest       = "report:latest"
	keyIndex        = "report:index"
	keyAliases      = "tag:aliases"
	keyKeywords     = "keywords:news"
)

// Retention bounds for the rolling window.
const (
	recordTTL  = 14 * 24 * time.Hour
	maxIndex   = 14
	maxHistory = 14
)

// Default keyword lists guarantee the downstream bundle is never empty
// per theme, even when a report carries no matching theme group.
var (
	defaultFinanceKeywords = []string{"股市", "美股", "A股", "降息", "美联储"}
	defaultEconomyKeywords = []string{"经济", "通胀", "GDP", "就业", "楼市"}
	defaultAIKeywords      = []string{"AI", "人工智能", "大模型", "芯片", "机器人"}
)

// ReportStore owns every persisted record of the pipeline: day-keyed
// reports, the latest pointer, the rolling index, the alias table, and the
// keyword-bundle projection.
type ReportStore struct {
	kv  KV
	log zerolog.Logger
}

// NewReportStore creates a store over the given KV backend.
func NewReportStore(kv KV) *ReportStore {
	return &ReportStore{kv: kv, log: logger.With("store")}
}

func reportKey(dayKey string) string { return keyReportPrefix + dayKey }

// PutReport persists a report: the day-keyed record, the latest pointer, the
// rolling index, and the derived keyword bundle.
//
// The index update is a non-atomic read-modify-write. Two overlapping runs
// can read the same index snapshot and the later write silently discards the
// earlier run's entry; the day records and latest pointer of both runs are
// still written. Known limitation, accepted over distributed coordination.
func (s *ReportStore) PutReport(ctx context.Context, report *core.TrendsReport) error {
	if report == nil || report.Meta.DayKey == "" {
		return core.NewValidationError("meta.day_key", "must be non-empty")
	}
	dayKey := report.Meta.DayKey

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := s.kv.Put(ctx, reportKey(dayKey), payload, recordTTL); err != nil {
		return fmt.Errorf("failed to write day report: %w", err)
	}
	if err := s.kv.Put(ctx, keyLatest, payload, recordTTL); err != nil {
		return fmt.Errorf("failed to write latest pointer: %w", err)
	}
	if err := s.updateIndex(ctx, dayKey); err != nil {
		return fmt.Errorf("failed to update day index: %w", err)
	}
	if err := s.putKeywordBundle(ctx, report); err != nil {
		return fmt.Errorf("failed to write keyword bundle: %w", err)
	}

	s.log.Info().Str("day_key", dayKey).Msg("report persisted")
	return nil
}

// updateIndex prepends dayKey to the rolling index, dropping duplicates and
// truncating to the retention window.
func (s *ReportStore) updateIndex(ctx context.Context, dayKey string) error {
	index, err := s.getIndex(ctx)
	if err != nil {
		return err
	}

	next := make([]string, 0, len(index)+1)
	next = append(next, dayKey)
	for _, key := range index {
		if key == dayKey {
			continue
		}
		next = append(next, key)
	}
	if len(next) > maxIndex {
		next = next[:maxIndex]
	}

	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return s.kv.Put(ctx, keyIndex, payload, recordTTL)
}

func (s *ReportStore) getIndex(ctx context.Context) ([]string, error) {
	raw, err := s.kv.Get(ctx, keyIndex)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	var index []string
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal index: %w", err)
	}
	return index, nil
}

// GetLatestReport returns the latest-pointer record, or nil if absent.
func (s *ReportStore) GetLatestReport(ctx context.Context) (*core.TrendsReport, error) {
	raw, err := s.kv.Get(ctx, keyLatest)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest report: %w", err)
	}
	var report core.TrendsReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest report: %w", err)
	}
	return &report, nil
}

// GetHistory reads up to limit recent reports in index order, skipping days
// whose records have expired. limit is clamped into [1,14].
func (s *ReportStore) GetHistory(ctx context.Context, limit int) ([]core.TrendsReport, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistory {
		limit = maxHistory
	}

	index, err := s.getIndex(ctx)
	if err != nil {
		return nil, err
	}
	if len(index) > limit {
		index = index[:limit]
	}
	if len(index) == 0 {
		return []core.TrendsReport{}, nil
	}

	reports := make([]*core.TrendsReport, len(index))
	g, gctx := errgroup.WithContext(ctx)
	for i, dayKey := range index {
		g.Go(func() error {
			raw, err := s.kv.Get(gctx, reportKey(dayKey))
			if errors.Is(err, ErrNotFound) {
				return nil // expired or missing day records are dropped
			}
			if err != nil {
				return fmt.Errorf("failed to read report %s: %w", dayKey, err)
			}
			var report core.TrendsReport
			if err := json.Unmarshal(raw, &report); err != nil {
				return fmt.Errorf("failed to unmarshal report %s: %w", dayKey, err)
			}
			reports[i] = &report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.TrendsReport, 0, len(reports))
	for _, report := range reports {
		if report != nil {
			out = append(out, *report)
		}
	}
	return out, nil
}

// GetIndex returns the rolling day index, newest first.
func (s *ReportStore) GetIndex(ctx context.Context) ([]string, error) {
	return s.getIndex(ctx)
}

// GetAliases reads the alias table. An absent table yields an empty set.
func (s *ReportStore) GetAliases(ctx context.Context) ([]core.AliasRule, error) {
	raw, err := s.kv.Get(ctx, keyAliases)
	if errors.Is(err, ErrNotFound) {
		return []core.AliasRule{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases: %w", err)
	}
	var rules []core.AliasRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aliases: %w", err)
	}
	return rules, nil
}

// PutAliases replaces the whole alias table. No expiry.
func (s *ReportStore) PutAliases(ctx context.Context, rules []core.AliasRule) error {
	if rules == nil {
		rules = []core.AliasRule{}
	}
	payload, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal aliases: %w", err)
	}
	if err := s.kv.Put(ctx, keyAliases, payload, 0); err != nil {
		return fmt.Errorf("failed to write aliases: %w", err)
	}
	return nil
}

// GetKeywordBundle reads the current keyword projection, or nil if absent.
func (s *ReportStore) GetKeywordBundle(ctx context.Context) (*core.KeywordBundle, error) {
	raw, err := s.kv.Get(ctx, keyKeywords)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword bundle: %w", err)
	}
	var bundle core.KeywordBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keyword bundle: %w", err)
	}
	return &bundle, nil
}

// putKeywordBundle derives and unconditionally overwrites the projection.
func (s *ReportStore) putKeywordBundle(ctx context.Context, report *core.TrendsReport) error {
	bundle := ExtractKeywordsForNews(report)
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal keyword bundle: %w", err)
	}
	return s.kv.Put(ctx, keyKeywords, payload, recordTTL)
}

// ExtractKeywordsForNews projects a report into per-theme keyword lists for
// the downstream news-ranking consumer. Every list is non-empty: themes with
// no extracted keywords fall back to the fixed defaults.
func ExtractKeywordsForNews(report *core.TrendsReport) core.KeywordBundle {
	bundle := core.KeywordBundle{
		Finance:   append([]string(nil), defaultFinanceKeywords...),
		Economy:   append([]string(nil), defaultEconomyKeywords...),
		AI:        append([]string(nil), defaultAIKeywords...),
		UpdatedAt: time.Now().UTC(),
	}
	if report == nil {
		return bundle
	}
	bundle.SourceDay = report.Meta.DayKey

	for _, group := range report.Themes {
		if len(group.Keywords) == 0 {
			continue
		}
		keywords := append([]string(nil), group.Keywords...)
		switch group.Theme {
		case core.ThemeFinance:
			bundle.Finance = keywords
		case core.ThemeEconomy:
			bundle.Economy = keywords
		case core.ThemeAI:
			bundle.AI = keywords
		}
		// ThemeOther is intentionally excluded from the projection.
	}
	return bundle
}
