package analyzer

import (
	"math"
	"strings"
	"unicode/utf8"

	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
)

const (
	maxKeywords        = 10
	complexTokenCount  = 20
	moderateTokenCount = 10
	sizeFactor         = 1.3
)

// Analyzer 基于关键词表对提示词做结构化分类，纯计算，可并发调用
type Analyzer struct {
	src catalog.Source
}

func New(src catalog.Source) *Analyzer {
	return &Analyzer{src: src}
}

func (a *Analyzer) Analyze(prompt string, hints wfmodel.AnalysisHints) wfmodel.PromptAnalysis {
	return Analyze(a.src.Tables(), prompt, hints)
}

// Analyze 使用给定版本的规则表分析提示词，空输入返回默认画像
func Analyze(t *catalog.Tables, prompt string, hints wfmodel.AnalysisHints) wfmodel.PromptAnalysis {
	out := wfmodel.PromptAnalysis{
		Complexity:       wfmodel.ComplexitySimple,
		ColorRequirement: wfmodel.ColorAny,
		DetailLevel:      wfmodel.DetailModerate,
		Keywords:         []string{},
		Style:            catalog.Normalize(hints.Style),
		Technique:        catalog.Normalize(hints.Technique),
		Subject:          strings.TrimSpace(hints.Subject),
	}

	tokens := strings.Fields(prompt)
	if len(tokens) == 0 {
		return out
	}

	out.Complexity = complexity(t, prompt, len(tokens))
	out.ColorRequirement = colorRequirement(t, prompt, hints.ColorPalette)
	out.DetailLevel = detailLevel(t, prompt)
	out.Keywords = keywords(t, tokens)
	out.EstimatedSize = int(math.Ceil(float64(len(tokens)) * sizeFactor))
	out.PromptChars = utf8.RuneCountInString(strings.TrimSpace(prompt))
	return out
}

func complexity(t *catalog.Tables, prompt string, tokenCount int) wfmodel.Complexity {
	if tokenCount > complexTokenCount {
		return wfmodel.ComplexityComplex
	}
	if _, ok := wfnode.ContainsAnyTerm(prompt, t.Analyzer.Complexity); ok {
		return wfmodel.ComplexityComplex
	}
	if tokenCount > moderateTokenCount {
		return wfmodel.ComplexityModerate
	}
	return wfmodel.ComplexitySimple
}

// colorRequirement 黑灰关键词优先于彩色关键词；都未命中时参考调用方的色板提示
func colorRequirement(t *catalog.Tables, prompt, palette string) wfmodel.ColorRequirement {
	if _, ok := wfnode.ContainsAnyTerm(prompt, t.Analyzer.BlackAndGray); ok {
		return wfmodel.ColorBlackAndGray
	}
	if _, ok := wfnode.ContainsAnyTerm(prompt, t.Analyzer.Color); ok {
		return wfmodel.ColorFull
	}
	switch wfmodel.ColorRequirement(catalog.Normalize(palette)) {
	case wfmodel.ColorBlackAndGray:
		return wfmodel.ColorBlackAndGray
	case wfmodel.ColorFull:
		return wfmodel.ColorFull
	case wfmodel.ColorMixed:
		return wfmodel.ColorMixed
	}
	return wfmodel.ColorAny
}

func detailLevel(t *catalog.Tables, prompt string) wfmodel.DetailLevel {
	for _, group := range t.Analyzer.DetailLevels {
		if _, ok := wfnode.ContainsAnyTerm(prompt, group.Keywords); ok {
			return wfmodel.DetailLevel(group.Level)
		}
	}
	return wfmodel.DetailModerate
}

func keywords(t *catalog.Tables, tokens []string) []string {
	out := make([]string, 0, maxKeywords)
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		w := strings.ToLower(strings.Trim(tok, `.,;:!?"'()[]{}`))
		if utf8.RuneCountInString(w) <= 3 || t.Analyzer.IsStopword(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
