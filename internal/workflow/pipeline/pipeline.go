// Package pipeline 提供六阶段提示词增强流水线
package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
)

const (
	DefaultPrompt  = "professional tattoo design"
	DefaultBackend = "balanced-tier"

	baseConfidence     = 50
	perStageConfidence = 8
	maxImpactBonus     = 30
	minConfidence      = 60
	maxConfidence      = 95
	longPromptWords    = 50
)

type stage struct {
	name      StageName
	enabled   bool
	weight    float64
	transform transformFunc
}

// apply 执行单个阶段，panic 视为阶段失败
func (s stage) apply(r *run, in string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.transform(r, in)
}

// Pipeline 按固定顺序运行六个增强阶段，纯计算，可并发调用
type Pipeline struct {
	src            catalog.Source
	stages         []stage
	defaultBackend string
}

type Option func(*Pipeline)

func WithStageConfig(cfg StageConfig) Option {
	return func(p *Pipeline) {
		for i := range p.stages {
			if s, ok := cfg[p.stages[i].name]; ok {
				p.stages[i].enabled = s.Enabled
				p.stages[i].weight = s.Weight
			}
		}
	}
}

func WithDefaultBackend(id string) Option {
	return func(p *Pipeline) {
		if id = strings.TrimSpace(id); id != "" {
			p.defaultBackend = id
		}
	}
}

func New(src catalog.Source, opts ...Option) *Pipeline {
	p := &Pipeline{src: src, defaultBackend: DefaultBackend}
	defaults := DefaultStageConfig()
	for _, name := range stageOrder {
		p.stages = append(p.stages, stage{
			name:      name,
			enabled:   defaults[name].Enabled,
			weight:    defaults[name].Weight,
			transform: transforms[name],
		})
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process 对任意字符串输入都不会失败；空输入直接返回默认提示词，置信度为 0
func (p *Pipeline) Process(prompt string, ec wfmodel.EnhancementContext) *wfmodel.PipelineResult {
	start := time.Now()
	res := &wfmodel.PipelineResult{
		OriginalPrompt: prompt,
		StagesApplied:  []string{},
		Improvements:   []wfmodel.StageImprovement{},
		Warnings:       []string{},
		Suggestions:    []string{},
	}

	original := strings.TrimSpace(prompt)
	if original == "" {
		res.EnhancedPrompt = DefaultPrompt
		res.Suggestions = append(res.Suggestions, "Add a description of the design you want, for example the subject and style")
		res.ProcessingTime = time.Since(start)
		return res
	}

	r := &run{
		tables:         p.src.Tables(),
		ec:             ec,
		defaultBackend: p.defaultBackend,
	}

	current := original
	sumImpact := 0
	for _, s := range p.stages {
		if !s.enabled {
			continue
		}
		before := current
		after, err := s.apply(r, before)
		if err != nil {
			res.StagesFailed = append(res.StagesFailed, string(s.name))
			res.Warnings = append(res.Warnings, fmt.Sprintf("stage %s failed and was skipped: %v", s.name, err))
			continue
		}
		if after == before {
			continue
		}
		impact := impactOf(before, after, s.weight)
		sumImpact += impact
		res.StagesApplied = append(res.StagesApplied, string(s.name))
		res.Improvements = append(res.Improvements, wfmodel.StageImprovement{
			Stage:  string(s.name),
			Before: before,
			After:  after,
			Impact: impact,
		})
		current = after
	}

	res.Warnings = append(res.Warnings, r.notes...)
	res.EnhancedPrompt = current
	res.Backend = r.backend
	res.ConfidenceScore = confidence(len(res.StagesApplied), sumImpact, original, current)
	res.Suggestions = suggestions(original, ec)
	res.ProcessingTime = time.Since(start)
	return res
}

// impactOf 长度增长与词数增长的加权和，乘以阶段权重后取整百分比
func impactOf(before, after string, weight float64) int {
	lenGrowth := growth(utf8.RuneCountInString(before), utf8.RuneCountInString(after))
	wordGrowth := growth(wfnode.WordCount(before), wfnode.WordCount(after))
	return int(math.Round((0.6*lenGrowth + 0.4*wordGrowth) * weight * 100))
}

func growth(before, after int) float64 {
	if before == 0 {
		if after == 0 {
			return 0
		}
		return 1
	}
	return float64(after-before) / float64(before)
}

func confidence(applied, sumImpact int, original, final string) int {
	score := baseConfidence + perStageConfidence*applied + clamp(sumImpact, 0, maxImpactBonus)

	origLen := utf8.RuneCountInString(original)
	finalLen := utf8.RuneCountInString(final)
	if float64(finalLen) >= 1.5*float64(origLen) {
		score += 10
	}
	if finalLen >= 2*origLen {
		score += 5
	}
	if wfnode.WordCount(final) > longPromptWords {
		score -= 10
	}
	return clamp(score, minConfidence, maxConfidence)
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
