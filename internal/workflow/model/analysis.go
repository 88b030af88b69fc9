package model

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

type ColorRequirement string

const (
	ColorBlackAndGray ColorRequirement = "black_and_gray"
	ColorFull         ColorRequirement = "color"
	ColorMixed        ColorRequirement = "mixed"
	ColorAny          ColorRequirement = "any"
)

type DetailLevel string

const (
	DetailMinimal  DetailLevel = "minimal"
	DetailModerate DetailLevel = "moderate"
	DetailHigh     DetailLevel = "high"
	DetailUltra    DetailLevel = "ultra"
)

// AnalysisHints 调用方提供的可选分析提示
type AnalysisHints struct {
	Style        string `json:"style,omitempty"`
	Technique    string `json:"technique,omitempty"`
	Subject      string `json:"subject,omitempty"`
	ColorPalette string `json:"color_palette,omitempty"`
}

// PromptAnalysis 每次调用重新计算，不可变，不直接持久化
type PromptAnalysis struct {
	Complexity       Complexity       `json:"complexity"`
	ColorRequirement ColorRequirement `json:"color_requirement"`
	DetailLevel      DetailLevel      `json:"detail_level"`
	Keywords         []string         `json:"keywords"`
	EstimatedSize    int              `json:"estimated_size"`
	// PromptChars 提示词字符数（rune），与后端 MaxPromptChars 同单位
	PromptChars int `json:"prompt_chars,omitempty"`

	Style     string `json:"style,omitempty"`
	Technique string `json:"technique,omitempty"`
	Subject   string `json:"subject,omitempty"`
}
