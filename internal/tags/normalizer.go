// Package tags normalizes free-text tags into the fixed taxonomy.
package tags

import (
	"strings"
	"unicode"

	"trendpulse/internal/core"
)

// ValidTags is the fixed whitelist of canonical tags. Tags outside this set
// are dropped by the normalizer, never passed through verbatim.
var ValidTags = []string{
	// entities and regions
	"中国", "美国", "欧盟", "日本", "特朗普", "美联储", "央行",
	// finance
	"股市", "美股", "A股", "港股", "降息", "加息", "黄金", "原油", "比特币", "汇率",
	// economy
	"经济", "通胀", "GDP", "就业", "消费", "楼市", "出口", "关税",
	// ai / tech
	"AI", "人工智能", "大模型", "芯片", "机器人", "算法", "自动驾驶", "科技",
}

// defaultAliases maps raw tokens to canonical tags. Latin keys are stored
// lowercased and matched case-insensitively; non-Latin keys match exactly.
var defaultAliases = map[string]string{
	"中":      "中国",
	"美":      "美国",
	"cn":     "中国",
	"us":     "美国",
	"usa":    "美国",
	"eu":     "欧盟",
	"fed":    "美联储",
	"联储":     "美联储",
	"btc":    "比特币",
	"加密货币":   "比特币",
	"gold":   "黄金",
	"stocks": "股市",
	"沪深":     "A股",
	"纳斯达克":   "美股",
	"ai":     "AI",
	"ml":     "人工智能",
	"llm":    "大模型",
	"大语言模型":  "大模型",
	"gpt":    "大模型",
	"chip":   "芯片",
	"半导体":    "芯片",
	"cpi":    "通胀",
	"物价":     "通胀",
	"gdp":    "GDP",
	"房地产":    "楼市",
	"贸易战":    "关税",
}

// Normalizer maps raw tags to canonical tags using an alias table layered
// over the fixed whitelist.
type Normalizer struct {
	valid   map[string]struct{}
	aliases map[string]string
}

// NewNormalizer builds a normalizer from the packaged defaults plus any
// user-defined alias rules. User rules override defaults on key collision;
// rules pointing outside the whitelist are ignored.
func NewNormalizer(rules []core.AliasRule) *Normalizer {
	n := &Normalizer{
		valid:   make(map[string]struct{}, len(ValidTags)),
		aliases: make(map[string]string, len(defaultAliases)+len(rules)),
	}
	for _, tag := range ValidTags {
		n.valid[tag] = struct{}{}
	}
	for alias, canonical := range defaultAliases {
		n.aliases[aliasKey(alias)] = canonical
	}
	for _, rule := range rules {
		alias := strings.TrimSpace(rule.Alias)
		canonical := strings.TrimSpace(rule.Canonical)
		if alias == "" || canonical == "" {
			continue
		}
		if _, ok := n.valid[canonical]; !ok {
			continue
		}
		n.aliases[aliasKey(alias)] = canonical
	}
	return n
}

// Normalize maps a raw tag to its canonical form. The boolean is false when
// the tag is unknown and must be dropped. Normalize is idempotent: feeding an
// accepted result back in returns it unchanged.
func (n *Normalizer) Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if canonical, ok := n.aliases[aliasKey(trimmed)]; ok {
		return canonical, true
	}
	if _, ok := n.valid[trimmed]; ok {
		return trimmed, true
	}
	return "", false
}

// NormalizeAll maps a tag slice through Normalize, dropping rejects and
// duplicates while preserving first-seen order.
func (n *Normalizer) NormalizeAll(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		canonical, ok := n.Normalize(tag)
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// aliasKey lowercases pure-Latin tokens so alias lookup is case-insensitive
// for them, while non-Latin scripts stay case-preserving.
func aliasKey(s string) string {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return s
		}
	}
	return strings.ToLower(s)
}
