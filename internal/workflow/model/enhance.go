package model

import "time"

// EnhancementContext 增强管线与风格迁移的只读输入
type EnhancementContext struct {
	TargetModel  string `json:"target_model,omitempty"`
	Style        string `json:"style,omitempty"`
	Technique    string `json:"technique,omitempty"`
	Subject      string `json:"subject,omitempty"`
	ColorPalette string `json:"color_palette,omitempty"`
	Placement    string `json:"placement,omitempty"`
	PreviewMode  bool   `json:"preview_mode,omitempty"`

	Preferences *ModelPreferences `json:"preferences,omitempty"`
	// History 之前增强过的提示词，最近的在前
	History []string `json:"history,omitempty"`
}

type StageImprovement struct {
	Stage  string `json:"stage"`
	Before string `json:"before"`
	After  string `json:"after"`
	Impact int    `json:"impact"`
}

type PipelineResult struct {
	OriginalPrompt  string             `json:"original_prompt"`
	EnhancedPrompt  string             `json:"enhanced_prompt"`
	StagesApplied   []string           `json:"stages_applied"`
	StagesFailed    []string           `json:"stages_failed,omitempty"`
	ConfidenceScore int                `json:"confidence_score"`
	ProcessingTime  time.Duration      `json:"processing_time"`
	Improvements    []StageImprovement `json:"improvements"`
	Warnings        []string           `json:"warnings"`
	Suggestions     []string           `json:"suggestions"`
	// Backend 第 4 阶段实际适配的后端
	Backend string `json:"backend,omitempty"`
}
