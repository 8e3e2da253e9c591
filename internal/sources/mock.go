package sources

import (
	"context"
	"time"

	"trendpulse/internal/core"
)

// MockAdapter serves a fixed in-memory dataset spanning every theme. It backs
// development runs and the degradation path when live sources are disabled.
type MockAdapter struct {
	name  string
	items []core.RawItem
}

// NewMockAdapter creates a mock adapter with the packaged dataset.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{name: name, items: mockItems(name)}
}

// NewMockAdapterWithItems creates a mock adapter serving the given items.
func NewMockAdapterWithItems(name string, items []core.RawItem) *MockAdapter {
	return &MockAdapter{name: name, items: items}
}

// Name returns the configured source name.
func (a *MockAdapter) Name() string { return a.name }

// Fetch returns a copy of the fixed dataset.
func (a *MockAdapter) Fetch(ctx context.Context) ([]core.RawItem, error) {
	items := make([]core.RawItem, len(a.items))
	copy(items, a.items)
	return items, nil
}

func mockItems(source string) []core.RawItem {
	base := time.Now().UTC().Add(-2 * time.Hour)
	return []core.RawItem{
		{
			Title:       "美联储官员暗示年内可能降息",
			Content:     "多位美联储官员表示，若通胀继续回落，年内降息窗口将打开。",
			Author:      "市场观察",
			Likes:       320, Collects: 120, Comments: 45,
			PublishedAt: base,
			Tags:        []string{"美联储", "降息", "美股"},
			ExternalID:  "mock-fin-001",
			URL:         "https://example.com/mock/fin-001",
			Source:      source,
		},
		{
			Title:       "A股三大指数集体收涨",
			Content:     "A股午后放量拉升，科技与金融板块领涨。",
			Author:      "财经快讯",
			Likes:       210, Collects: 80, Comments: 30,
			PublishedAt: base.Add(10 * time.Minute),
			Tags:        []string{"A股", "股市"},
			ExternalID:  "mock-fin-002",
			URL:         "https://example.com/mock/fin-002",
			Source:      source,
		},
		{
			Title:       "上半年GDP同比增长超预期",
			Content:     "统计局公布数据显示，上半年经济增长好于市场预期，消费回暖明显。",
			Author:      "宏观组",
			Likes:       150, Collects: 60, Comments: 22,
			PublishedAt: base.Add(20 * time.Minute),
			Tags:        []string{"GDP", "经济", "消费"},
			ExternalID:  "mock-eco-001",
			URL:         "https://example.com/mock/eco-001",
			Source:      source,
		},
		{
			Title:       "通胀数据回落 市场押注政策转向",
			Content:     "最新CPI数据低于预期，分析认为政策空间正在打开。",
			Author:      "宏观组",
			Likes:       95, Collects: 40, Comments: 18,
			PublishedAt: base.Add(30 * time.Minute),
			Tags:        []string{"cpi", "经济"},
			ExternalID:  "mock-eco-002",
			URL:         "https://example.com/mock/eco-002",
			Source:      source,
		},
		{
			Title:       "国产大模型发布新版本 推理能力大幅提升",
			Content:     "新版本在代码与数学推理基准上刷新纪录，API价格同步下调。",
			Author:      "科技前线",
			Likes:       480, Collects: 200, Comments: 88,
			PublishedAt: base.Add(40 * time.Minute),
			Tags:        []string{"大模型", "AI"},
			ExternalID:  "mock-ai-001",
			URL:         "https://example.com/mock/ai-001",
			Source:      source,
		},
		{
			Title:       "芯片厂商公布下一代制程路线图",
			Content:     "2纳米制程进入风险量产阶段，AI芯片需求持续旺盛。",
			Author:      "科技前线",
			Likes:       260, Collects: 110, Comments: 40,
			PublishedAt: base.Add(50 * time.Minute),
			Tags:        []string{"芯片", "半导体", "AI"},
			ExternalID:  "mock-ai-002",
			URL:         "https://example.com/mock/ai-002",
			Source:      source,
		},
		{
			Title:       "周末观影指南",
			Content:     "本周新片上映一览。",
			Author:      "生活组",
			Likes:       12, Collects: 3, Comments: 1,
			PublishedAt: base.Add(time.Hour),
			Tags:        []string{"电影"},
			ExternalID:  "mock-other-001",
			URL:         "https://example.com/mock/other-001",
			Source:      source,
		},
	}
}
