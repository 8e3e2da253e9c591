// Package reasoning produces the insight text and trend labels for a scan,
// degrading from the external model to a heuristic summarizer on any failure.
package reasoning

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"trendpulse/internal/core"
)

// maxContentRunes clamps per-item body text carried into the prompt.
const maxContentRunes = 1000

// maxTrends bounds the trend labels a result may carry.
const maxTrends = 3

// AnalyzePromptTemplate is the template for the trend analysis prompt.
const AnalyzePromptTemplate = `你是一名财经科技情报编辑。以下是今日按主题聚类的热点条目。
请先用一段不超过120字的中文总结今日整体态势，然后另起一行，以 "- " 开头列出最多3个今日最重要的趋势关键词或短语。
不要输出任何其他前缀或解释。

%s`

// Result carries the reasoning output plus the tagged path that produced it.
type Result struct {
	Insight string
	Trends  []string
	Source  string // core.ReasoningLLM or core.ReasoningMock
}

// Engine analyzes clustered theme groups into an insight and trend labels.
type Engine interface {
	Analyze(ctx context.Context, groups []core.ThemeGroup) (Result, error)
}

// GeminiEngine calls a chat-completion-style model via the genai SDK.
type GeminiEngine struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewGeminiEngine creates the live reasoning engine.
func NewGeminiEngine(ctx context.Context, apiKey, modelName string, temperature float32) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("reasoning API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiEngine{client: client, modelName: modelName, temperature: temperature}, nil
}

// Analyze sends the clustered items to the model and parses its reply.
// The caller controls the timeout through ctx.
func (e *GeminiEngine) Analyze(ctx context.Context, groups []core.ThemeGroup) (Result, error) {
	prompt := fmt.Sprintf(AnalyzePromptTemplate, renderGroups(groups))

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(e.temperature)}

	resp, err := e.client.Models.GenerateContent(ctx, e.modelName, contents, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, fmt.Errorf("empty response from model")
	}

	insight, trends := parseReply(text)
	if insight == "" {
		return Result{}, fmt.Errorf("model reply carried no insight text")
	}
	return Result{Insight: insight, Trends: trends, Source: core.ReasoningLLM}, nil
}

// renderGroups serializes theme groups into compact prompt lines. Every field
// is defensively stringified and trimmed before inclusion.
func renderGroups(groups []core.ThemeGroup) string {
	var b strings.Builder
	for _, group := range groups {
		theme := strings.TrimSpace(group.Theme)
		if theme == "" {
			theme = core.ThemeOther
		}
		fmt.Fprintf(&b, "[%s] 权重 %d，关键词: %s\n", theme, group.Weight, strings.Join(group.Keywords, "、"))
		for i, card := range group.Cards {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "  - %s (热度 %d)\n", clampRunes(strings.TrimSpace(card.Title), maxContentRunes), card.Heat)
		}
	}
	if b.Len() == 0 {
		return "（今日无聚类条目）"
	}
	return b.String()
}

// parseReply splits the model reply into the insight paragraph and the
// "- " prefixed trend lines.
func parseReply(text string) (string, []string) {
	var insight []string
	var trends []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") {
			trend := strings.TrimSpace(strings.TrimPrefix(line, "-"))
			if trend != "" && len(trends) < maxTrends {
				trends = append(trends, trend)
			}
			continue
		}
		insight = append(insight, line)
	}
	return strings.Join(insight, " "), trends
}

func clampRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// HeuristicEngine produces a deterministic summary without any network call.
// It backs development runs and every degradation path.
type HeuristicEngine struct{}

// NewHeuristicEngine creates the fallback summarizer.
func NewHeuristicEngine() *HeuristicEngine { return &HeuristicEngine{} }

// Analyze summarizes the top cards and keywords heuristically. It never fails.
func (e *HeuristicEngine) Analyze(ctx context.Context, groups []core.ThemeGroup) (Result, error) {
	if len(groups) == 0 {
		return Result{
			Insight: "今日未捕获到热点条目。",
			Source:  core.ReasoningMock,
		}, nil
	}

	ranked := make([]core.ThemeGroup, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Weight > ranked[j].Weight })

	var parts []string
	var trends []string
	for _, group := range ranked {
		if group.Theme == core.ThemeOther || len(group.Cards) == 0 {
			continue
		}
		top := group.Cards[0]
		parts = append(parts, fmt.Sprintf("%s主题热度最高的是「%s」", themeLabel(group.Theme), top.Title))
		for _, kw := range group.Keywords {
			if len(trends) >= maxTrends {
				break
			}
			trends = append(trends, kw)
		}
	}

	insight := "今日热点主要来自其他类别。"
	if len(parts) > 0 {
		insight = strings.Join(parts, "；") + "。"
	}
	return Result{Insight: insight, Trends: trends, Source: core.ReasoningMock}, nil
}

func themeLabel(theme string) string {
	switch theme {
	case core.ThemeFinance:
		return "金融"
	case core.ThemeEconomy:
		return "经济"
	case core.ThemeAI:
		return "AI"
	default:
		return "其他"
	}
}
