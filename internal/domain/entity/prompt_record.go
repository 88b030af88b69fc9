// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RecordKind 记录类型
type RecordKind string

const (
	RecordKindEnhance  RecordKind = "enhance"
	RecordKindTransfer RecordKind = "transfer"
)

// PromptRecord 一次增强或风格迁移的结果记录
type PromptRecord struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         string         `json:"user_id" gorm:"index:idx_prompt_records_user_created,priority:1"`
	Kind           RecordKind     `json:"kind" gorm:"type:varchar(16)"`
	OriginalPrompt string         `json:"original_prompt"`
	FinalPrompt    string         `json:"final_prompt"`
	Confidence     int            `json:"confidence"`
	Applied        pq.StringArray `json:"applied" gorm:"type:text[]"`
	Backend        string         `json:"backend,omitempty"`
	ProcessingMs   int64          `json:"processing_ms"`
	Warnings       pq.StringArray `json:"warnings,omitempty" gorm:"type:text[]"`
	CreatedAt      time.Time      `json:"created_at" gorm:"index:idx_prompt_records_user_created,priority:2"`
}

// TableName 表名
func (PromptRecord) TableName() string {
	return "prompt_records"
}

// NewPromptRecord 创建记录，ID 与创建时间在此生成
func NewPromptRecord(userID string, kind RecordKind, original, final string) *PromptRecord {
	return &PromptRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		Kind:           kind,
		OriginalPrompt: original,
		FinalPrompt:    final,
		Applied:        pq.StringArray{},
		Warnings:       pq.StringArray{},
		CreatedAt:      time.Now().UTC(),
	}
}

// SetConfidence 设置置信度，限制在 0-100
func (r *PromptRecord) SetConfidence(c int) {
	if c < 0 {
		c = 0
	}
	if c > 100 {
		c = 100
	}
	r.Confidence = c
}

// HighConfidence 是否可用于个性化推荐
func (r *PromptRecord) HighConfidence(threshold int) bool {
	return r.Confidence >= threshold && r.Backend != ""
}
