// Package messaging 基于 Redis Streams 的记录投递
package messaging

import (
	"encoding/json"
	"time"

	"tattoo-ai-api/internal/domain/entity"
)

// MessageTypePromptRecord 提示词记录消息
const MessageTypePromptRecord = "prompt_record"

// Message 流消息信封；Metadata 承载 request_id 与 W3C trace 头
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewRecordMessage 把一条记录封装成消息，消息 ID 与记录 ID 一致以便落库去重
func NewRecordMessage(record *entity.PromptRecord) (*Message, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        record.ID,
		Type:      MessageTypePromptRecord,
		UserID:    record.UserID,
		Payload:   payload,
		Metadata:  map[string]string{"kind": string(record.Kind)},
		CreatedAt: record.CreatedAt,
	}, nil
}

// Meta 读取元数据，nil map 安全
func (m *Message) Meta(key string) string {
	return m.Metadata[key]
}

// Record 解出记录载荷
func (m *Message) Record() (*entity.PromptRecord, error) {
	var rec entity.PromptRecord
	if err := json.Unmarshal(m.Payload, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Stream 流名称
type Stream string

const StreamPromptRecords Stream = "stream:prompt:records"

// DLQStream 死信流
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组名称
type ConsumerGroup string

const ConsumerGroupRecordWriter ConsumerGroup = "cg-record-writer"

// WithPrefix 加上环境前缀，避免多个环境共用一个 Redis 时抢消息
func (g ConsumerGroup) WithPrefix(prefix string) ConsumerGroup {
	if prefix == "" {
		return g
	}
	return ConsumerGroup(prefix + string(g))
}
