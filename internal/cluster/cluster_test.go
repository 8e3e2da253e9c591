package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendpulse/internal/core"
)

func item(title, externalID string, tags []string, likes, collects, comments int) Item {
	return Item{
		Raw: core.RawItem{
			Title:      title,
			ExternalID: externalID,
			Likes:      likes,
			Collects:   collects,
			Comments:   comments,
		},
		Tags: tags,
	}
}

func TestClusterBucketsByTheme(t *testing.T) {
	result := Cluster([]Item{
		item("降息预期", "f1", []string{"降息", "美联储"}, 10, 0, 0),
		item("GDP数据", "e1", []string{"GDP"}, 5, 0, 0),
		item("大模型发布", "a1", []string{"大模型"}, 8, 0, 0),
		item("娱乐新闻", "o1", []string{"特朗普"}, 3, 0, 0), // entity only, no theme tag
	})

	require.Len(t, result.Groups, 4)
	assert.Equal(t, core.ThemeFinance, result.Groups[0].Theme)
	assert.Equal(t, core.ThemeEconomy, result.Groups[1].Theme)
	assert.Equal(t, core.ThemeAI, result.Groups[2].Theme)
	assert.Equal(t, core.ThemeOther, result.Groups[3].Theme)
}

func TestClusterOmitsEmptyThemes(t *testing.T) {
	result := Cluster([]Item{
		item("只有金融", "f1", []string{"股市"}, 1, 0, 0),
	})
	require.Len(t, result.Groups, 1)
	assert.Equal(t, core.ThemeFinance, result.Groups[0].Theme)
}

func TestClusterDedupByExternalID(t *testing.T) {
	result := Cluster([]Item{
		item("原始标题", "same-id", []string{"股市"}, 10, 1, 1),
		item("转发标题", "same-id", []string{"股市"}, 50, 0, 0),
	})

	require.Len(t, result.Groups, 1)
	require.Len(t, result.Groups[0].Cards, 1)
	assert.Equal(t, 1, result.Duplicates)
	// first occurrence survives with merged engagement maxima
	card := result.Groups[0].Cards[0]
	assert.Equal(t, "原始标题", card.Title)
	assert.Equal(t, 50+2*1+3*1, card.Heat)
}

func TestClusterDedupByNormalizedTitle(t *testing.T) {
	result := Cluster([]Item{
		item("A股  大涨", "id-1", []string{"A股"}, 1, 0, 0),
		item("a股 大涨", "id-2", []string{"A股"}, 2, 0, 0),
	})

	require.Len(t, result.Groups, 1)
	assert.Len(t, result.Groups[0].Cards, 1)
	assert.Equal(t, 1, result.Duplicates)
}

func TestClusterRanksByHeat(t *testing.T) {
	now := time.Now().UTC()
	older := Item{Raw: core.RawItem{Title: "低热度", ExternalID: "1", Likes: 1, PublishedAt: now.Add(-time.Hour)}, Tags: []string{"股市"}}
	hot := Item{Raw: core.RawItem{Title: "高热度", ExternalID: "2", Comments: 100, PublishedAt: now.Add(-2 * time.Hour)}, Tags: []string{"股市"}}
	tiedNewer := Item{Raw: core.RawItem{Title: "同热度更新", ExternalID: "3", Likes: 1, PublishedAt: now}, Tags: []string{"股市"}}

	result := Cluster([]Item{older, hot, tiedNewer})
	require.Len(t, result.Groups, 1)
	cards := result.Groups[0].Cards
	require.Len(t, cards, 3)
	assert.Equal(t, "高热度", cards[0].Title)
	assert.Equal(t, "同热度更新", cards[1].Title) // heat tie broken by recency
	assert.Equal(t, "低热度", cards[2].Title)
}

func TestClusterKeywordSetSemantics(t *testing.T) {
	result := Cluster([]Item{
		item("一", "1", []string{"股市", "美股"}, 1, 0, 0),
		item("二", "2", []string{"美股", "降息"}, 1, 0, 0),
	})

	require.Len(t, result.Groups, 1)
	assert.ElementsMatch(t, []string{"股市", "美股", "降息"}, result.Groups[0].Keywords)
}

func TestClusterKeywordCap(t *testing.T) {
	tags := []string{"股市", "美股", "A股", "港股", "降息", "加息", "黄金", "原油", "比特币", "汇率", "美联储"}
	items := make([]Item, 0, len(tags))
	for i, tag := range tags {
		items = append(items, item("标题"+string(rune('a'+i)), "", []string{tag}, 1, 0, 0))
	}

	result := Cluster(items)
	require.Len(t, result.Groups, 1)
	assert.Len(t, result.Groups[0].Keywords, maxKeywordsPerTheme)
}

func TestHeat(t *testing.T) {
	assert.Equal(t, 0, Heat(core.RawItem{}))
	assert.Equal(t, 1+2*2+3*3, Heat(core.RawItem{Likes: 1, Collects: 2, Comments: 3}))
}

func TestGroupWeightIsHeatSum(t *testing.T) {
	result := Cluster([]Item{
		item("一", "1", []string{"股市"}, 10, 0, 0),
		item("二", "2", []string{"股市"}, 0, 5, 0),
	})
	require.Len(t, result.Groups, 1)
	assert.Equal(t, 10+2*5, result.Groups[0].Weight)
}
