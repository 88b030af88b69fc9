// Package catalog 提供版本化的风格、技法、部位与后端能力规则表
package catalog

import (
	"regexp"
	"slices"
	"strings"
)

type TransformType string

const (
	TransformReplace TransformType = "replace"
	TransformAdd     TransformType = "add"
	TransformRemove  TransformType = "remove"
	TransformModify  TransformType = "modify"
)

// ConditionPreserveSubject 是目前唯一支持的变换条件
const ConditionPreserveSubject = "preserve_subject"

// 后端能力标签
const (
	TraitRealism     = "realism"
	TraitUltraDetail = "ultra_detail"
	TraitPortrait    = "portrait"
	TraitTypography  = "typography"
	TraitPrecision   = "precision"
)

// Tables 规则与能力表的一个不可变版本，解析后只读
type Tables struct {
	Version         string               `yaml:"version"`
	Styles          []StyleVocab         `yaml:"styles"`
	BodyZones       []string             `yaml:"body_zones"`
	Techniques      map[string]Technique `yaml:"techniques"`
	Palettes        map[string]string    `yaml:"palettes"`
	Placements      map[string]string    `yaml:"placements"`
	Subjects        []SubjectPhrase      `yaml:"subjects"`
	Analyzer        AnalyzerTables       `yaml:"analyzer"`
	SubjectKeywords SubjectKeywords      `yaml:"subject_keywords"`
	Backends        []Backend            `yaml:"backends"`
	TransferRules   []StyleTransferRule  `yaml:"transfer_rules"`
	DifficultPairs  []StylePair          `yaml:"difficult_pairs"`
	InkOnly         InkOnly              `yaml:"ink_only"`

	styles    map[string]*StyleVocab
	backends  map[string]*Backend
	rules     map[StylePair]*StyleTransferRule
	difficult map[StylePair]struct{}
	colorRe   *regexp.Regexp
}

type StyleVocab struct {
	Name       string   `yaml:"name"`
	Vocabulary []string `yaml:"vocabulary"`
	LineWeight string   `yaml:"line_weight"`
}

type Technique struct {
	Phrase    string   `yaml:"phrase"`
	Technical []string `yaml:"technical"`
}

type SubjectPhrase struct {
	Keywords []string `yaml:"keywords"`
	Phrase   string   `yaml:"phrase"`
}

type DetailGroup struct {
	Level    string   `yaml:"level"`
	Keywords []string `yaml:"keywords"`
}

type AnalyzerTables struct {
	Complexity   []string      `yaml:"complexity"`
	BlackAndGray []string      `yaml:"black_and_gray"`
	Color        []string      `yaml:"color"`
	DetailLevels []DetailGroup `yaml:"detail_levels"`
	Stopwords    []string      `yaml:"stopwords"`

	stopwords map[string]struct{}
}

// IsStopword 判断小写 token 是否为停用词
func (a *AnalyzerTables) IsStopword(token string) bool {
	_, ok := a.stopwords[token]
	return ok
}

type SubjectKeywords struct {
	Portrait  []string `yaml:"portrait"`
	Text      []string `yaml:"text"`
	Geometric []string `yaml:"geometric"`
}

// Backend 图像生成后端的能力描述
type Backend struct {
	ID                   string   `yaml:"id" json:"id"`
	Description          string   `yaml:"description" json:"description"`
	Strengths            []string `yaml:"strengths" json:"strengths"`
	Weaknesses           []string `yaml:"weaknesses" json:"weaknesses"`
	BestFor              []string `yaml:"best_for" json:"best_for"`
	Styles               []string `yaml:"styles" json:"styles"`
	QualityScore         float64  `yaml:"quality" json:"quality_score"`
	SpeedScore           float64  `yaml:"speed" json:"speed_score"`
	CostScore            float64  `yaml:"cost" json:"cost_score"`
	MaxPromptChars       int      `yaml:"max_prompt_chars" json:"max_prompt_chars"`
	Sizes                []string `yaml:"sizes" json:"sizes"`
	AvgGenerationSeconds int      `yaml:"avg_generation_seconds" json:"avg_generation_seconds"`
	Traits               []string `yaml:"traits" json:"traits"`
	Adaptation           []string `yaml:"adaptation" json:"-"`
	TextAdaptation       []string `yaml:"text_adaptation" json:"-"`
}

func (b *Backend) HasTrait(trait string) bool {
	return slices.Contains(b.Traits, trait)
}

func (b *Backend) SupportsStyle(style string) bool {
	style = Normalize(style)
	if style == "" {
		return false
	}
	return slices.Contains(b.Styles, style)
}

// StylePair 有序风格对，名称均已小写
type StylePair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func NewStylePair(from, to string) StylePair {
	return StylePair{From: Normalize(from), To: Normalize(to)}
}

type Transformation struct {
	Type        TransformType `yaml:"type"`
	Target      string        `yaml:"target"`
	Replacement string        `yaml:"replacement"`
	Condition   string        `yaml:"condition"`
	Priority    int           `yaml:"priority"`

	pattern *regexp.Regexp
}

// Pattern 返回编译后的大小写不敏感匹配模式，add 类型为 nil
func (t *Transformation) Pattern() *regexp.Regexp {
	return t.pattern
}

type StyleTransferRule struct {
	From            string           `yaml:"from"`
	To              string           `yaml:"to"`
	Compatibility   int              `yaml:"compatibility"`
	Transformations []Transformation `yaml:"transformations"`
	Preserved       []string         `yaml:"preserved"`
	Modified        []string         `yaml:"modified"`
	Added           []string         `yaml:"added"`
	Removed         []string         `yaml:"removed"`
}

type InkOnly struct {
	Replacement string   `yaml:"replacement"`
	ColorTerms  []string `yaml:"color_terms"`
}

// Tables 使 *Tables 自身满足 Source，便于直接注入固定版本
func (t *Tables) Tables() *Tables {
	return t
}

func (t *Tables) Style(name string) (*StyleVocab, bool) {
	s, ok := t.styles[Normalize(name)]
	return s, ok
}

func (t *Tables) StyleNames() []string {
	names := make([]string, 0, len(t.Styles))
	for _, s := range t.Styles {
		names = append(names, s.Name)
	}
	return names
}

func (t *Tables) IsStyle(name string) bool {
	_, ok := t.styles[Normalize(name)]
	return ok
}

func (t *Tables) Backend(id string) (*Backend, bool) {
	b, ok := t.backends[Normalize(id)]
	return b, ok
}

func (t *Tables) Technique(name string) (Technique, bool) {
	tech, ok := t.Techniques[Normalize(name)]
	return tech, ok
}

func (t *Tables) Palette(name string) (string, bool) {
	p, ok := t.Palettes[Normalize(name)]
	return p, ok
}

func (t *Tables) Placement(zone string) (string, bool) {
	p, ok := t.Placements[Normalize(zone)]
	return p, ok
}

// Rule 按有序风格对精确查找迁移规则
func (t *Tables) Rule(from, to string) (*StyleTransferRule, bool) {
	r, ok := t.rules[NewStylePair(from, to)]
	return r, ok
}

func (t *Tables) IsDifficult(from, to string) bool {
	_, ok := t.difficult[NewStylePair(from, to)]
	return ok
}

// ColorPattern 匹配 InkOnly.ColorTerms 中的颜色词，连在一起的一串（red and blue color）算一个匹配
func (t *Tables) ColorPattern() *regexp.Regexp {
	return t.colorRe
}

// Normalize 统一风格、后端、部位等标识的比较形式
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
