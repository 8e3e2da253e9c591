package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trendpulse/internal/core"
)

func TestBuildClampsCounters(t *testing.T) {
	got := Build(BuildInput{
		DayKey:          " 2026-08-29 ",
		ExecutionTimeMS: -50,
		ItemsScanned:    -1,
		ItemsFiltered:   -7,
	})

	assert.Equal(t, "2026-08-29", got.Meta.DayKey)
	assert.EqualValues(t, 0, got.Meta.ExecutionTimeMS)
	assert.Equal(t, 0, got.Meta.ItemsScanned)
	assert.Equal(t, 0, got.Meta.ItemsFiltered)
}

func TestBuildTrendsSanitized(t *testing.T) {
	got := Build(BuildInput{
		DayKey: "2026-08-29",
		Trends: []string{"  降息  ", "", "   ", "降息", "大模型", "芯片", "第四条"},
	})

	assert.Equal(t, []string{"降息", "大模型", "芯片"}, got.Trends)
	for _, trend := range got.Trends {
		assert.NotEmpty(t, trend)
	}
}

func TestBuildTrendsAlwaysAtMostThree(t *testing.T) {
	inputs := [][]string{
		nil,
		{},
		{" ", "", "\t"},
		{"一", "二", "三", "四", "五"},
	}
	for _, trends := range inputs {
		got := Build(BuildInput{DayKey: "d", Trends: trends})
		assert.LessOrEqual(t, len(got.Trends), 3)
		for _, trend := range got.Trends {
			assert.NotEmpty(t, trend)
		}
	}
}

func TestBuildDefaultsFeedAndLogs(t *testing.T) {
	got := Build(BuildInput{DayKey: "2026-08-29"})
	assert.NotNil(t, got.Feed)
	assert.Empty(t, got.Feed)
	assert.NotNil(t, got.Logs)
}

func TestBuildNormalizesEnums(t *testing.T) {
	got := Build(BuildInput{DayKey: "d", UsedDatasource: "whatever", UsedReasoning: "whatever"})
	assert.Equal(t, core.DatasourceLive, got.Meta.UsedDatasource)
	assert.Equal(t, core.ReasoningMock, got.Meta.UsedReasoning)

	got = Build(BuildInput{DayKey: "d", UsedDatasource: core.DatasourceMock, UsedReasoning: core.ReasoningLLM})
	assert.Equal(t, core.DatasourceMock, got.Meta.UsedDatasource)
	assert.Equal(t, core.ReasoningLLM, got.Meta.UsedReasoning)
}

func TestBuildIsDeterministic(t *testing.T) {
	in := BuildInput{
		DayKey:  "2026-08-29",
		Insight: " 今日综述 ",
		Trends:  []string{"a", "b"},
		Feed:    []core.Card{{Title: "一"}},
	}
	assert.Equal(t, Build(in), Build(in))
	assert.Equal(t, "今日综述", Build(in).Insight)
}
