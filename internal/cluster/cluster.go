// Package cluster buckets normalized items into theme groups, deduplicates
// them, and ranks the survivors into cards.
package cluster

import (
	"sort"
	"strings"

	"trendpulse/internal/core"
)

// maxKeywordsPerTheme bounds the keyword set fed to downstream projections.
const maxKeywordsPerTheme = 10

// themeOrder fixes bucket assignment priority and output ordering.
var themeOrder = []string{core.ThemeFinance, core.ThemeEconomy, core.ThemeAI}

// themeTags maps each theme to the canonical tags that pull items into it.
var themeTags = map[string]map[string]struct{}{
	core.ThemeFinance: tagSet("股市", "美股", "A股", "港股", "降息", "加息", "黄金", "原油", "比特币", "汇率", "美联储"),
	core.ThemeEconomy: tagSet("经济", "通胀", "GDP", "就业", "消费", "楼市", "出口", "关税"),
	core.ThemeAI:      tagSet("AI", "人工智能", "大模型", "芯片", "机器人", "算法", "自动驾驶", "科技"),
}

func tagSet(tags ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// Item is a RawItem whose tags have already been normalized.
type Item struct {
	Raw  core.RawItem
	Tags []string // canonical tags
}

// Result holds the theme groups produced by one clustering pass.
// Groups follows themeOrder, with the residual "other" bucket last.
type Result struct {
	Groups     []core.ThemeGroup
	Duplicates int
}

// Heat computes the engagement weight for ranking: comments and collects are
// stronger signals of traction than likes.
func Heat(item core.RawItem) int {
	return item.Likes + 2*item.Collects + 3*item.Comments
}

// Cluster buckets items into themes, drops duplicates, and ranks each bucket.
func Cluster(items []Item) Result {
	buckets := make(map[string][]Item)
	for _, item := range items {
		theme := themeFor(item.Tags)
		buckets[theme] = append(buckets[theme], item)
	}

	result := Result{}
	for _, theme := range append(append([]string{}, themeOrder...), core.ThemeOther) {
		bucket := buckets[theme]
		if len(bucket) == 0 {
			continue
		}
		deduped, dropped := dedupe(bucket)
		result.Duplicates += dropped
		result.Groups = append(result.Groups, buildGroup(theme, deduped))
	}
	return result
}

// themeFor picks the first theme (in fixed order) whose tag set intersects
// the item's canonical tags; everything else lands in the residual bucket.
func themeFor(tags []string) string {
	for _, theme := range themeOrder {
		set := themeTags[theme]
		for _, tag := range tags {
			if _, ok := set[tag]; ok {
				return theme
			}
		}
	}
	return core.ThemeOther
}

// dedupe drops repeated items within a bucket, keyed by external identifier
// and by normalized title. The first occurrence survives; its engagement
// counters absorb the maximum seen across duplicates.
func dedupe(items []Item) ([]Item, int) {
	byKey := make(map[string]int)
	var out []Item
	dropped := 0

	for _, item := range items {
		key := item.Raw.ExternalID
		if key == "" {
			key = normalizeTitle(item.Raw.Title)
		}
		titleKey := normalizeTitle(item.Raw.Title)

		idx, seen := byKey[key]
		if !seen {
			idx, seen = byKey[titleKey]
		}
		if seen {
			dropped++
			kept := &out[idx].Raw
			kept.Likes = max(kept.Likes, item.Raw.Likes)
			kept.Collects = max(kept.Collects, item.Raw.Collects)
			kept.Comments = max(kept.Comments, item.Raw.Comments)
			continue
		}

		out = append(out, item)
		byKey[key] = len(out) - 1
		byKey[titleKey] = len(out) - 1
	}
	return out, dropped
}

// buildGroup ranks a deduplicated bucket into cards and derives its keyword set.
func buildGroup(theme string, items []Item) core.ThemeGroup {
	cards := make([]core.Card, 0, len(items))
	weight := 0
	seen := make(map[string]struct{})
	var keywords []string

	for _, item := range items {
		heat := Heat(item.Raw)
		weight += heat
		cards = append(cards, core.Card{
			Title:       item.Raw.Title,
			Author:      item.Raw.Author,
			URL:         item.Raw.URL,
			Tags:        item.Tags,
			Heat:        heat,
			PublishedAt: item.Raw.PublishedAt,
		})
		for _, tag := range item.Tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			keywords = append(keywords, tag)
		}
	}

	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Heat != cards[j].Heat {
			return cards[i].Heat > cards[j].Heat
		}
		return cards[i].PublishedAt.After(cards[j].PublishedAt)
	})

	if len(keywords) > maxKeywordsPerTheme {
		keywords = keywords[:maxKeywordsPerTheme]
	}

	return core.ThemeGroup{
		Theme:    theme,
		Cards:    cards,
		Keywords: keywords,
		Weight:   weight,
	}
}

var titleSpace = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// normalizeTitle lowercases and collapses whitespace for dedup keying.
func normalizeTitle(title string) string {
	fields := strings.Fields(titleSpace.Replace(strings.ToLower(title)))
	return strings.Join(fields, " ")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
