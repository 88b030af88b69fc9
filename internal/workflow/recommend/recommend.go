package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
)

const (
	maxAlternatives   = 3
	minConfidence     = 60
	maxConfidence     = 95
	qualityBaseWeight = 0.3
	preferenceWeight  = 0.2

	// charsPerToken 只有 token 估算时换算字符数
	charsPerToken = 4
)

// Engine 按提示词画像与用户偏好为生成后端打分，纯计算，可并发调用
type Engine struct {
	src catalog.Source
}

func New(src catalog.Source) *Engine {
	return &Engine{src: src}
}

type candidate struct {
	backend *catalog.Backend
	score   float64
	reasons []string
}

// Recommend 不会失败；所有后端都被排除时返回表中第一个后端，置信度 60
func (e *Engine) Recommend(analysis wfmodel.PromptAnalysis, prefs *wfmodel.ModelPreferences) *wfmodel.ModelRecommendation {
	t := e.src.Tables()
	if prefs == nil {
		prefs = &wfmodel.ModelPreferences{}
	}
	avoid := toSet(prefs.AvoidModels)
	preferred := toSet(prefs.PreferredModels)
	subjects := subjectSignals(t, analysis)

	candidates := make([]candidate, 0, len(t.Backends))
	for i := range t.Backends {
		b := &t.Backends[i]
		if _, skip := avoid[b.ID]; skip {
			continue
		}
		candidates = append(candidates, score(b, analysis, prefs, preferred, subjects))
	}

	if len(candidates) == 0 {
		first := &t.Backends[0]
		return &wfmodel.ModelRecommendation{
			RecommendedModel:     first.ID,
			Confidence:           minConfidence,
			Reasoning:            []string{fmt.Sprintf("All models were excluded by preferences; defaulting to %s", first.ID)},
			ExpectedQuality:      qualityLabel(first.QualityScore),
			EstimatedTimeSeconds: first.AvgGenerationSeconds,
			Alternatives:         []wfmodel.ScoredModel{},
		}
	}

	// 稳定排序：同分时保持表中顺序
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	top := candidates[0]
	rec := &wfmodel.ModelRecommendation{
		RecommendedModel:     top.backend.ID,
		Confidence:           clamp(int(math.Round(top.score*10)), minConfidence, maxConfidence),
		Score:                round2(top.score),
		Reasoning:            top.reasons,
		ExpectedQuality:      qualityLabel(top.backend.QualityScore),
		EstimatedTimeSeconds: top.backend.AvgGenerationSeconds,
		Alternatives:         make([]wfmodel.ScoredModel, 0, maxAlternatives),
	}
	for _, c := range candidates[1:] {
		if len(rec.Alternatives) == maxAlternatives {
			break
		}
		reason := ""
		if len(c.backend.Strengths) > 0 {
			reason = c.backend.Strengths[0]
		}
		rec.Alternatives = append(rec.Alternatives, wfmodel.ScoredModel{
			Model:  c.backend.ID,
			Score:  round2(c.score),
			Reason: reason,
		})
	}
	return rec
}

type signals struct {
	portrait  bool
	text      bool
	geometric bool
}

func subjectSignals(t *catalog.Tables, a wfmodel.PromptAnalysis) signals {
	text := a.Subject + " " + strings.Join(a.Keywords, " ")
	_, portrait := wfnode.ContainsAnyTerm(text, t.SubjectKeywords.Portrait)
	_, typo := wfnode.ContainsAnyTerm(text, t.SubjectKeywords.Text)
	_, geo := wfnode.ContainsAnyTerm(text, t.SubjectKeywords.Geometric)
	return signals{portrait: portrait, text: typo, geometric: geo}
}

func score(b *catalog.Backend, a wfmodel.PromptAnalysis, prefs *wfmodel.ModelPreferences, preferred map[string]struct{}, sig signals) candidate {
	c := candidate{backend: b, score: b.QualityScore * qualityBaseWeight}
	c.reasons = append(c.reasons, fmt.Sprintf("Quality score %.1f/10", b.QualityScore))
	if len(b.BestFor) > 0 {
		c.reasons = append(c.reasons, "Best for "+strings.Join(b.BestFor, ", "))
	}

	if b.SupportsStyle(a.Style) {
		c.score += 2
		c.reasons = append(c.reasons, fmt.Sprintf("Compatible with %s style", a.Style))
	}

	switch {
	case a.Complexity == wfmodel.ComplexityComplex && b.HasTrait(catalog.TraitRealism):
		c.score += 2
		c.reasons = append(c.reasons, "Handles complex compositions")
	case a.Complexity == wfmodel.ComplexitySimple && b.HasTrait(catalog.TraitPrecision):
		c.score += 1.5
		c.reasons = append(c.reasons, "Precise rendering suits simple designs")
	}

	if a.DetailLevel == wfmodel.DetailUltra && b.HasTrait(catalog.TraitUltraDetail) {
		c.score += 1.5
		c.reasons = append(c.reasons, "Excels at ultra-detailed work")
	}

	if sig.portrait && b.HasTrait(catalog.TraitPortrait) {
		c.score += 2
		c.reasons = append(c.reasons, "Strong at portraits and faces")
	}
	if sig.text && b.HasTrait(catalog.TraitTypography) {
		c.score += 2
		c.reasons = append(c.reasons, "Renders text and lettering clearly")
	}
	if sig.geometric && b.HasTrait(catalog.TraitTypography) {
		c.score += 1.5
		c.reasons = append(c.reasons, "Well suited to geometric patterns")
	}

	if prefs.PrioritizeQuality {
		c.score += b.QualityScore * preferenceWeight
	}
	if prefs.PrioritizeSpeed {
		c.score += b.SpeedScore * preferenceWeight
		c.reasons = append(c.reasons, fmt.Sprintf("Speed score %.1f/10", b.SpeedScore))
	}
	if prefs.PrioritizeCost {
		c.score += b.CostScore * preferenceWeight
		c.reasons = append(c.reasons, fmt.Sprintf("Cost efficiency %.1f/10", b.CostScore))
	}

	if _, ok := preferred[b.ID]; ok {
		c.score += 1
		c.reasons = append(c.reasons, "In your preferred models")
	}

	if promptChars(a) > b.MaxPromptChars {
		c.score -= 2
		c.reasons = append(c.reasons, "Prompt may exceed this model's length limit")
	}
	return c
}

// promptChars 与 MaxPromptChars 比较用的字符数；调用方传入的画像可能没有 PromptChars
func promptChars(a wfmodel.PromptAnalysis) int {
	if a.PromptChars > 0 {
		return a.PromptChars
	}
	return a.EstimatedSize * charsPerToken
}

func qualityLabel(q float64) string {
	switch {
	case q >= 9:
		return "excellent"
	case q >= 8:
		return "high"
	default:
		return "good"
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = catalog.Normalize(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
