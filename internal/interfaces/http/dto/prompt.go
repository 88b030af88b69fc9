// Package dto 提供提示词相关的请求与响应
package dto

import (
	"time"

	"tattoo-ai-api/internal/domain/entity"
	wfmodel "tattoo-ai-api/internal/workflow/model"
)

// HintsRequest 分析提示
type HintsRequest struct {
	Style        string `json:"style,omitempty" binding:"max=64"`
	Technique    string `json:"technique,omitempty" binding:"max=64"`
	Subject      string `json:"subject,omitempty" binding:"max=200"`
	ColorPalette string `json:"color_palette,omitempty" binding:"max=64"`
}

func (h HintsRequest) ToModel() wfmodel.AnalysisHints {
	return wfmodel.AnalysisHints{
		Style:        h.Style,
		Technique:    h.Technique,
		Subject:      h.Subject,
		ColorPalette: h.ColorPalette,
	}
}

// AnalyzeRequest 提示词分析请求
type AnalyzeRequest struct {
	Prompt string `json:"prompt" binding:"max=2000"`
	HintsRequest
}

// EnhanceRequest 提示词增强请求
type EnhanceRequest struct {
	Prompt       string                    `json:"prompt" binding:"max=2000"`
	TargetModel  string                    `json:"target_model,omitempty" binding:"max=64"`
	Style        string                    `json:"style,omitempty" binding:"max=64"`
	Technique    string                    `json:"technique,omitempty" binding:"max=64"`
	Subject      string                    `json:"subject,omitempty" binding:"max=200"`
	ColorPalette string                    `json:"color_palette,omitempty" binding:"max=64"`
	Placement    string                    `json:"placement,omitempty" binding:"max=64"`
	PreviewMode  bool                      `json:"preview_mode,omitempty"`
	Preferences  *wfmodel.ModelPreferences `json:"preferences,omitempty"`
}

func (r *EnhanceRequest) ToContext() wfmodel.EnhancementContext {
	return wfmodel.EnhancementContext{
		TargetModel:  r.TargetModel,
		Style:        r.Style,
		Technique:    r.Technique,
		Subject:      r.Subject,
		ColorPalette: r.ColorPalette,
		Placement:    r.Placement,
		PreviewMode:  r.PreviewMode,
		Preferences:  r.Preferences,
	}
}

// EnhanceResponse 增强结果
type EnhanceResponse struct {
	OriginalPrompt   string                     `json:"original_prompt"`
	EnhancedPrompt   string                     `json:"enhanced_prompt"`
	StagesApplied    []string                   `json:"stages_applied"`
	StagesFailed     []string                   `json:"stages_failed,omitempty"`
	ConfidenceScore  int                        `json:"confidence_score"`
	ProcessingTimeMs int64                      `json:"processing_time_ms"`
	Improvements     []wfmodel.StageImprovement `json:"improvements"`
	Warnings         []string                   `json:"warnings"`
	Suggestions      []string                   `json:"suggestions"`
	Backend          string                     `json:"backend,omitempty"`
}

func ToEnhanceResponse(r *wfmodel.PipelineResult) *EnhanceResponse {
	return &EnhanceResponse{
		OriginalPrompt:   r.OriginalPrompt,
		EnhancedPrompt:   r.EnhancedPrompt,
		StagesApplied:    r.StagesApplied,
		StagesFailed:     r.StagesFailed,
		ConfidenceScore:  r.ConfidenceScore,
		ProcessingTimeMs: r.ProcessingTime.Milliseconds(),
		Improvements:     r.Improvements,
		Warnings:         r.Warnings,
		Suggestions:      r.Suggestions,
		Backend:          r.Backend,
	}
}

// TransferRequest 风格迁移请求；校验由服务层完成以返回领域错误码
type TransferRequest struct {
	OriginalPrompt      string `json:"original_prompt" binding:"max=2000"`
	OriginalStyle       string `json:"original_style" binding:"max=64"`
	TargetStyle         string `json:"target_style" binding:"max=64"`
	TargetModel         string `json:"target_model,omitempty" binding:"max=64"`
	PreserveSubject     bool   `json:"preserve_subject"`
	PreserveComposition bool   `json:"preserve_composition"`
	PreserveColorScheme bool   `json:"preserve_color_scheme"`
	CustomInstructions  string `json:"custom_instructions,omitempty" binding:"max=500"`
}

func (r *TransferRequest) ToModel() wfmodel.StyleTransferRequest {
	return wfmodel.StyleTransferRequest{
		OriginalPrompt:      r.OriginalPrompt,
		OriginalStyle:       r.OriginalStyle,
		TargetStyle:         r.TargetStyle,
		TargetModel:         r.TargetModel,
		PreserveSubject:     r.PreserveSubject,
		PreserveComposition: r.PreserveComposition,
		PreserveColorScheme: r.PreserveColorScheme,
		CustomInstructions:  r.CustomInstructions,
	}
}

// TransferResponse 风格迁移结果
type TransferResponse struct {
	OriginalPrompt      string                       `json:"original_prompt"`
	TransferredPrompt   string                       `json:"transferred_prompt"`
	OriginalStyle       string                       `json:"original_style"`
	TargetStyle         string                       `json:"target_style"`
	RuleApplied         bool                         `json:"rule_applied"`
	ConfidenceScore     int                          `json:"confidence_score"`
	CompatibilityScore  int                          `json:"compatibility_score"`
	EstimatedQuality    int                          `json:"estimated_quality"`
	PreservedElements   []string                     `json:"preserved_elements"`
	TransformedElements []wfmodel.TransformedElement `json:"transformed_elements"`
	Warnings            []string                     `json:"warnings"`
	Suggestions         []string                     `json:"suggestions"`
	ProcessingTimeMs    int64                        `json:"processing_time_ms"`
}

func ToTransferResponse(r *wfmodel.StyleTransferResult) *TransferResponse {
	return &TransferResponse{
		OriginalPrompt:      r.OriginalPrompt,
		TransferredPrompt:   r.TransferredPrompt,
		OriginalStyle:       r.OriginalStyle,
		TargetStyle:         r.TargetStyle,
		RuleApplied:         r.RuleApplied,
		ConfidenceScore:     r.ConfidenceScore,
		CompatibilityScore:  r.CompatibilityScore,
		EstimatedQuality:    r.EstimatedQuality,
		PreservedElements:   r.PreservedElements,
		TransformedElements: r.TransformedElements,
		Warnings:            r.Warnings,
		Suggestions:         r.Suggestions,
		ProcessingTimeMs:    r.ProcessingTime.Milliseconds(),
	}
}

// RecommendRequest 模型推荐请求，analysis 与 prompt 二选一
type RecommendRequest struct {
	Prompt      string                    `json:"prompt,omitempty" binding:"max=2000"`
	Hints       HintsRequest              `json:"hints"`
	Analysis    *wfmodel.PromptAnalysis   `json:"analysis,omitempty"`
	Preferences *wfmodel.ModelPreferences `json:"preferences,omitempty"`
}

// RecommendResponse 模型推荐结果
type RecommendResponse struct {
	Analysis       wfmodel.PromptAnalysis       `json:"analysis"`
	Recommendation *wfmodel.ModelRecommendation `json:"recommendation"`
}

// HistoryItem 历史记录
type HistoryItem struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	OriginalPrompt string    `json:"original_prompt"`
	FinalPrompt    string    `json:"final_prompt"`
	Confidence     int       `json:"confidence"`
	Applied        []string  `json:"applied"`
	Backend        string    `json:"backend,omitempty"`
	ProcessingMs   int64     `json:"processing_ms"`
	Warnings       []string  `json:"warnings,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryResponse 历史记录列表
type HistoryResponse struct {
	Items []*HistoryItem `json:"items"`
}

func ToHistoryResponse(records []*entity.PromptRecord) *HistoryResponse {
	items := make([]*HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, &HistoryItem{
			ID:             r.ID,
			Kind:           string(r.Kind),
			OriginalPrompt: r.OriginalPrompt,
			FinalPrompt:    r.FinalPrompt,
			Confidence:     r.Confidence,
			Applied:        r.Applied,
			Backend:        r.Backend,
			ProcessingMs:   r.ProcessingMs,
			Warnings:       r.Warnings,
			CreatedAt:      r.CreatedAt,
		})
	}
	return &HistoryResponse{Items: items}
}
