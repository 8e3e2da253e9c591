package reasoning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendpulse/internal/core"
)

func sampleGroups() []core.ThemeGroup {
	return []core.ThemeGroup{
		{
			Theme:    core.ThemeFinance,
			Cards:    []core.Card{{Title: "美联储暗示降息", Heat: 55}},
			Keywords: []string{"美联储", "降息"},
			Weight:   55,
		},
		{
			Theme:    core.ThemeAI,
			Cards:    []core.Card{{Title: "大模型新版本发布", Heat: 80}},
			Keywords: []string{"大模型", "AI"},
			Weight:   80,
		},
		{
			Theme:  core.ThemeOther,
			Cards:  []core.Card{{Title: "周末观影指南", Heat: 2}},
			Weight: 2,
		},
	}
}

func TestHeuristicEngine(t *testing.T) {
	result, err := NewHeuristicEngine().Analyze(context.Background(), sampleGroups())
	require.NoError(t, err)

	assert.Equal(t, core.ReasoningMock, result.Source)
	assert.NotEmpty(t, result.Insight)
	// highest-weight theme leads the summary
	assert.Contains(t, result.Insight, "大模型新版本发布")
	assert.LessOrEqual(t, len(result.Trends), 3)
	assert.NotContains(t, result.Insight, "周末观影指南") // residual theme excluded
}

func TestHeuristicEngineEmptyInput(t *testing.T) {
	result, err := NewHeuristicEngine().Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, core.ReasoningMock, result.Source)
	assert.NotEmpty(t, result.Insight)
	assert.Empty(t, result.Trends)
}

func TestParseReply(t *testing.T) {
	insight, trends := parseReply("今日市场情绪偏暖，AI与降息预期共振。\n- 降息预期\n- 大模型竞赛\n- 芯片产能\n- 多余的第四条")
	assert.Equal(t, "今日市场情绪偏暖，AI与降息预期共振。", insight)
	assert.Equal(t, []string{"降息预期", "大模型竞赛", "芯片产能"}, trends)

	insight, trends = parseReply("只有总结没有趋势")
	assert.Equal(t, "只有总结没有趋势", insight)
	assert.Empty(t, trends)
}

func TestRenderGroupsDefensiveStringify(t *testing.T) {
	out := renderGroups([]core.ThemeGroup{
		{Theme: "  ", Cards: []core.Card{{Title: "  带空白的标题  "}}},
	})
	assert.Contains(t, out, core.ThemeOther)
	assert.Contains(t, out, "带空白的标题")
	assert.NotContains(t, out, "  带空白的标题  ")

	assert.Contains(t, renderGroups(nil), "无聚类条目")
}

type stubEngine struct {
	result Result
	err    error
	calls  int
	delay  time.Duration
}

func (s *stubEngine) Analyze(ctx context.Context, groups []core.ThemeGroup) (Result, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.result, s.err
}

func TestFallbackUsesPrimary(t *testing.T) {
	primary := &stubEngine{result: Result{Insight: "模型总结", Trends: []string{"趋势"}, Source: core.ReasoningLLM}}
	engine := NewFallbackEngine(primary, time.Second, 0)

	result, err := engine.Analyze(context.Background(), sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, core.ReasoningLLM, result.Source)
	assert.Equal(t, "模型总结", result.Insight)
	assert.Equal(t, 1, engine.Calls())
}

func TestFallbackOnPrimaryError(t *testing.T) {
	primary := &stubEngine{err: errors.New("rate limited")}
	engine := NewFallbackEngine(primary, time.Second, 0)

	result, err := engine.Analyze(context.Background(), sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, core.ReasoningMock, result.Source)
	assert.NotEmpty(t, result.Insight)
}

func TestFallbackOnTimeout(t *testing.T) {
	primary := &stubEngine{delay: 200 * time.Millisecond, result: Result{Source: core.ReasoningLLM}}
	engine := NewFallbackEngine(primary, 10*time.Millisecond, 0)

	result, err := engine.Analyze(context.Background(), sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, core.ReasoningMock, result.Source)
}

func TestFallbackQuota(t *testing.T) {
	primary := &stubEngine{result: Result{Insight: "x", Source: core.ReasoningLLM}}
	engine := NewFallbackEngine(primary, time.Second, 2)

	for i := 0; i < 2; i++ {
		result, err := engine.Analyze(context.Background(), sampleGroups())
		require.NoError(t, err)
		assert.Equal(t, core.ReasoningLLM, result.Source)
	}
	assert.True(t, engine.QuotaExceeded())

	result, err := engine.Analyze(context.Background(), sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, core.ReasoningMock, result.Source)
	assert.Equal(t, 2, primary.calls) // budget stops further external calls
}

func TestFallbackNilPrimary(t *testing.T) {
	engine := NewFallbackEngine(nil, time.Second, 0)
	result, err := engine.Analyze(context.Background(), sampleGroups())
	require.NoError(t, err)
	assert.Equal(t, core.ReasoningMock, result.Source)
	assert.Equal(t, 0, engine.Calls())
}
