// Package transfer 提供基于规则表的风格迁移
package transfer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tattoo-ai-api/internal/workflow/analyzer"
	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
	"tattoo-ai-api/internal/workflow/vocab"
)

// 校验错误：与增强管线不同，风格迁移对非法输入直接拒绝
var (
	ErrEmptyPrompt        = errors.New("original prompt is required")
	ErrMissingTargetStyle = errors.New("target style is required")
	ErrSameStyle          = errors.New("original and target are the same style")
)

const (
	fallbackCompatibility = 50
	fallbackConfidence    = 50
	difficultPenalty      = 15
	blackwork             = "blackwork"
)

var genericWords = map[string]struct{}{
	"tattoo": {}, "tattoos": {}, "design": {}, "designs": {}, "style": {},
}

// Engine 基于规则表的风格迁移，纯计算，可并发调用
type Engine struct {
	src            catalog.Source
	defaultBackend string
}

func New(src catalog.Source, defaultBackend string) *Engine {
	return &Engine{src: src, defaultBackend: defaultBackend}
}

func Validate(req wfmodel.StyleTransferRequest) error {
	if strings.TrimSpace(req.OriginalPrompt) == "" {
		return ErrEmptyPrompt
	}
	to := catalog.Normalize(req.TargetStyle)
	if to == "" {
		return ErrMissingTargetStyle
	}
	if catalog.Normalize(req.OriginalStyle) == to {
		return fmt.Errorf("%w: %s", ErrSameStyle, to)
	}
	return nil
}

type transferRun struct {
	t           *catalog.Tables
	req         wfmodel.StyleTransferRequest
	prompt      string
	transformed []wfmodel.TransformedElement
}

func (e *Engine) Transfer(req wfmodel.StyleTransferRequest) (*wfmodel.StyleTransferResult, error) {
	start := time.Now()
	if err := Validate(req); err != nil {
		return nil, err
	}

	t := e.src.Tables()
	from := catalog.Normalize(req.OriginalStyle)
	to := catalog.Normalize(req.TargetStyle)

	r := &transferRun{
		t:           t,
		req:         req,
		prompt:      wfnode.CollapseSeparators(strings.TrimSpace(req.OriginalPrompt)),
		transformed: []wfmodel.TransformedElement{},
	}

	res := &wfmodel.StyleTransferResult{
		OriginalPrompt: req.OriginalPrompt,
		OriginalStyle:  from,
		TargetStyle:    to,
		Warnings:       []string{},
		Suggestions:    []string{},
	}

	rule, ok := t.Rule(from, to)
	compatibility := fallbackCompatibility
	if ok {
		applied := r.applyRule(rule)
		compatibility = rule.Compatibility
		res.RuleApplied = true
		res.ConfidenceScore = ruleConfidence(rule.Compatibility, applied, req)
	} else {
		res.ConfidenceScore = fallbackConfidence
		res.Warnings = append(res.Warnings, fmt.Sprintf("No specific transfer rule found for %s to %s; applied generic style enhancement", displayStyle(from), to))
		res.Suggestions = append(res.Suggestions, "Review the result and add details characteristic of the target style")
	}

	if !req.PreserveColorScheme && to == blackwork {
		r.inkOnly()
	}

	r.prompt = vocab.EnhanceStyle(t, r.prompt, wfmodel.EnhancementContext{Style: to})
	if strings.TrimSpace(req.TargetModel) != "" {
		if err := r.adapt(e.defaultBackend, res); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	if custom := strings.TrimSpace(req.CustomInstructions); custom != "" {
		r.prompt = strings.TrimRight(r.prompt, " ,") + ", " + custom
	}

	res.TransferredPrompt = r.prompt
	res.CompatibilityScore = compatibility
	res.EstimatedQuality = estimatedQuality(t, compatibility, from, to)
	res.TransformedElements = r.transformed
	res.PreservedElements = preservedElements(t, req.OriginalPrompt, r.prompt, rule)

	if compatibility < 70 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Compatibility between %s and %s is %d; results may be less reliable", displayStyle(from), to, compatibility))
	}
	if compatibility < 50 {
		res.Warnings = append(res.Warnings, "This is a challenging transformation; the subject may change noticeably")
		res.Suggestions = append(res.Suggestions, "Consider transferring through an intermediate style or simplifying the design first")
	}

	res.ProcessingTime = time.Since(start)
	return res, nil
}

// applyRule 按优先级执行变换，返回实际生效的变换数
func (r *transferRun) applyRule(rule *catalog.StyleTransferRule) int {
	applied := 0
	for i := range rule.Transformations {
		tr := &rule.Transformations[i]
		if r.apply(tr) {
			applied++
		}
		r.prompt = wfnode.CollapseSeparators(r.prompt)
	}
	return applied
}

func (r *transferRun) apply(tr *catalog.Transformation) bool {
	switch tr.Type {
	case catalog.TransformAdd:
		r.prompt = strings.TrimRight(r.prompt, " ,") + ", " + tr.Replacement
		r.record(tr.Type, "", tr.Replacement)
		return true

	case catalog.TransformReplace:
		match := tr.Pattern().FindString(r.prompt)
		if match == "" {
			return false
		}
		r.prompt = tr.Pattern().ReplaceAllLiteralString(r.prompt, tr.Replacement)
		r.record(tr.Type, match, tr.Replacement)
		return true

	case catalog.TransformRemove:
		match := tr.Pattern().FindString(r.prompt)
		if match == "" {
			return false
		}
		r.prompt = tr.Pattern().ReplaceAllLiteralString(r.prompt, "")
		r.record(tr.Type, match, "")
		return true

	case catalog.TransformModify:
		if tr.Condition != catalog.ConditionPreserveSubject || !r.req.PreserveSubject {
			return false
		}
		loc := tr.Pattern().FindStringIndex(r.prompt)
		if loc == nil {
			return false
		}
		match := r.prompt[loc[0]:loc[1]]
		r.prompt = r.prompt[:loc[1]] + tr.Replacement + r.prompt[loc[1]:]
		r.record(tr.Type, match, match+tr.Replacement)
		return true
	}
	return false
}

// inkOnly 每一串相连的颜色词整体替换为纯黑墨水短语
func (r *transferRun) inkOnly() {
	re := r.t.ColorPattern()
	if re == nil {
		return
	}
	replacement := r.t.InkOnly.Replacement
	r.prompt = re.ReplaceAllStringFunc(r.prompt, func(m string) string {
		r.record(catalog.TransformReplace, m, replacement)
		return replacement
	})
	r.prompt = wfnode.CollapseSeparators(r.prompt)
}

func (r *transferRun) adapt(defaultBackend string, res *wfmodel.StyleTransferResult) error {
	b, matched, err := vocab.ResolveBackend(r.t, r.req.TargetModel, defaultBackend)
	if err != nil {
		return err
	}
	if !matched {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unknown target model %q, adapted for %s", r.req.TargetModel, b.ID))
	}
	analysis := analyzer.Analyze(r.t, r.prompt, wfmodel.AnalysisHints{Style: res.TargetStyle})
	r.prompt = vocab.Adapt(r.t, r.prompt, b, analysis).Prompt
	return nil
}

func (r *transferRun) record(typ catalog.TransformType, original, transformed string) {
	r.transformed = append(r.transformed, wfmodel.TransformedElement{
		Type:        string(typ),
		Original:    strings.TrimSpace(original),
		Transformed: strings.TrimSpace(transformed),
	})
}

func ruleConfidence(compatibility, applied int, req wfmodel.StyleTransferRequest) int {
	// 以 0.1 分为单位整数计算
	score := compatibility*6 + min(300, 50*applied)
	if req.PreserveSubject {
		score += 50
	}
	if req.PreserveComposition {
		score += 50
	}
	if compatibility < 60 {
		score -= 100
	}
	return clamp(roundTenths(score), 30, 95)
}

func estimatedQuality(t *catalog.Tables, compatibility int, from, to string) int {
	q := roundTenths(compatibility * 7)
	if t.IsDifficult(from, to) {
		q -= difficultPenalty
	}
	return clamp(q, 40, 90)
}

// preservedElements 原提示词中仍出现在结果里的关键词（去掉风格名与通用词），加上规则声明的保留项
func preservedElements(t *catalog.Tables, original, transferred string, rule *catalog.StyleTransferRule) []string {
	out := []string{}
	seen := map[string]struct{}{}
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, kw := range analyzer.Analyze(t, original, wfmodel.AnalysisHints{}).Keywords {
		if t.IsStyle(kw) {
			continue
		}
		if _, generic := genericWords[kw]; generic {
			continue
		}
		if wfnode.ContainsTerm(transferred, kw) {
			add(kw)
		}
	}
	if rule != nil {
		for _, p := range rule.Preserved {
			add(p)
		}
	}
	return out
}

func displayStyle(s string) string {
	if s == "" {
		return "unspecified style"
	}
	return s
}

// roundTenths 十分之一单位四舍五入到整数
func roundTenths(v int) int {
	if v < 0 {
		return -((-v + 5) / 10)
	}
	return (v + 5) / 10
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
