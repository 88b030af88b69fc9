// Package messaging 提供记录落库的消息处理器
package messaging

import (
	"context"
	"errors"
	"fmt"

	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/pkg/logger"
)

// RecordStore 记录写入端口
type RecordStore interface {
	Create(ctx context.Context, record *entity.PromptRecord) error
}

// HistoryInvalidator 历史缓存失效端口
type HistoryInvalidator interface {
	InvalidateHistory(ctx context.Context, userID string) error
}

var errMalformedRecord = errors.New("malformed prompt record")

// RecordWriter 把 prompt_record 消息写入记录库；invalidator 可为 nil
func RecordWriter(store RecordStore, invalidator HistoryInvalidator) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		rec, err := msg.Record()
		if err != nil {
			return fmt.Errorf("%w: %v", errMalformedRecord, err)
		}
		if rec.ID == "" || rec.UserID == "" {
			return fmt.Errorf("%w: missing id or user", errMalformedRecord)
		}

		if err := store.Create(ctx, rec); err != nil {
			return err
		}

		if invalidator != nil {
			if err := invalidator.InvalidateHistory(ctx, rec.UserID); err != nil {
				logger.Warn(ctx, "failed to invalidate history cache", "error", err, "user_id", rec.UserID)
			}
		}
		logger.Debug(ctx, "prompt record stored", "record_id", rec.ID, "kind", rec.Kind)
		return nil
	}
}
