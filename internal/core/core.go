package core

import "time"

// Datasource and reasoning markers recorded in report metadata.
const (
	DatasourceLive = "live"
	DatasourceMock = "mock"

	ReasoningLLM  = "llm"
	ReasoningMock = "mock"
)

// Theme names used throughout the pipeline. ThemeOther collects residual
// items and is excluded from the keyword projection.
const (
	ThemeFinance = "finance"
	ThemeEconomy = "economy"
	ThemeAI      = "ai"
	ThemeOther   = "other"
)

// RawItem is a single unit fetched from an intelligence source. RawItems are
// produced per scan and never persisted standalone.
type RawItem struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	Likes       int       `json:"likes"`
	Collects    int       `json:"collects"`
	Comments    int       `json:"comments"`
	PublishedAt time.Time `json:"published_at"`
	Tags        []string  `json:"tags"`        // free text, pre-normalization
	ExternalID  string    `json:"external_id"` // source-unique identifier (usually the link)
	URL         string    `json:"url"`
	Source      string    `json:"source"`
}

// Card is a ranked, deduplicated item embedded in a report feed.
type Card struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
	Tags        []string  `json:"tags"` // canonical tags only
	Heat        int       `json:"heat"`
	PublishedAt time.Time `json:"published_at"`
}

// ThemeGroup is a bucket of cards sharing a topical category.
// Keywords have set semantics; insertion order carries no meaning.
type ThemeGroup struct {
	Theme    string   `json:"theme"`
	Cards    []Card   `json:"cards"`
	Keywords []string `json:"keywords"`
	Weight   int      `json:"weight"`
}

// ReportMeta carries scan bookkeeping for a report.
type ReportMeta struct {
	DayKey          string `json:"day_key"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	ItemsScanned    int    `json:"items_scanned"`
	ItemsFiltered   int    `json:"items_filtered"`
	UsedDatasource  string `json:"used_datasource"` // "mock" or "live"
	UsedReasoning   string `json:"used_reasoning"`  // "llm" or "mock"
}

// TrendsReport is the versioned daily report assembled by each scan.
// Exactly one report is "latest" at a time; DayKey is unique per calendar day.
type TrendsReport struct {
	Meta    ReportMeta   `json:"meta"`
	Logs    []string     `json:"logs"`
	Insight string       `json:"insight"`
	Trends  []string     `json:"trends"` // at most 3 non-empty trimmed strings
	Feed    []Card       `json:"feed"`
	Themes  []ThemeGroup `json:"themes"`
}

// KeywordBundle is the per-theme keyword projection read by the downstream
// news-ranking consumer. Every list is guaranteed non-empty.
type KeywordBundle struct {
	Finance   []string  `json:"finance"`
	Economy   []string  `json:"economy"`
	AI        []string  `json:"ai"`
	UpdatedAt time.Time `json:"updated_at"`
	SourceDay string    `json:"source_day"`
}

// AliasRule maps a raw token to a canonical tag. The alias table is
// user-editable and replaced as a whole set on write.
type AliasRule struct {
	Alias     string `json:"alias"`
	Canonical string `json:"canonical"`
}

// DayKey formats t as the calendar-day partition key, in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
