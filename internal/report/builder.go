// Package report assembles the final trends report with strict shape
// guarantees. Build is pure: no I/O, deterministic given its inputs.
package report

import (
	"strings"

	"trendpulse/internal/core"
)

// maxTrends bounds the trends field of a report.
const maxTrends = 3

// BuildInput collects the upstream stage outputs for assembly.
type BuildInput struct {
	DayKey          string
	ExecutionTimeMS int64
	ItemsScanned    int
	ItemsFiltered   int
	UsedDatasource  string
	UsedReasoning   string
	Logs            []string
	Insight         string
	Trends          []string
	Feed            []core.Card
	Themes          []core.ThemeGroup
}

// Build assembles a TrendsReport, clamping counters to non-negative values,
// sanitizing the trends list, and defaulting a missing feed to empty.
func Build(in BuildInput) core.TrendsReport {
	feed := in.Feed
	if feed == nil {
		feed = []core.Card{}
	}
	logs := in.Logs
	if logs == nil {
		logs = []string{}
	}

	return core.TrendsReport{
		Meta: core.ReportMeta{
			DayKey:          strings.TrimSpace(in.DayKey),
			ExecutionTimeMS: clampInt64(in.ExecutionTimeMS),
			ItemsScanned:    clampInt(in.ItemsScanned),
			ItemsFiltered:   clampInt(in.ItemsFiltered),
			UsedDatasource:  datasource(in.UsedDatasource),
			UsedReasoning:   reasoning(in.UsedReasoning),
		},
		Logs:    logs,
		Insight: strings.TrimSpace(in.Insight),
		Trends:  sanitizeTrends(in.Trends),
		Feed:    feed,
		Themes:  in.Themes,
	}
}

// sanitizeTrends trims entries, drops blanks and duplicates, and truncates
// the list to the trend budget.
func sanitizeTrends(raw []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(raw))
	for _, trend := range raw {
		trend = strings.TrimSpace(trend)
		if trend == "" {
			continue
		}
		if _, dup := seen[trend]; dup {
			continue
		}
		seen[trend] = struct{}{}
		out = append(out, trend)
		if len(out) == maxTrends {
			break
		}
	}
	return out
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func clampInt64(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func datasource(v string) string {
	if v == core.DatasourceMock {
		return core.DatasourceMock
	}
	return core.DatasourceLive
}

func reasoning(v string) string {
	if v == core.ReasoningLLM {
		return core.ReasoningLLM
	}
	return core.ReasoningMock
}
