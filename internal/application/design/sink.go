package design

import (
	"context"
	"sync"
	"time"

	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/internal/domain/repository"
	"tattoo-ai-api/pkg/logger"
	"tattoo-ai-api/pkg/metrics"
)

// RecordSink 接收结果记录，Submit 不阻塞调用方，失败只记日志和指标
type RecordSink interface {
	Submit(ctx context.Context, rec *entity.PromptRecord)
}

// RecordPublisher 记录发布端口（Redis Stream 生产者）
type RecordPublisher interface {
	PublishRecord(ctx context.Context, rec *entity.PromptRecord) (string, error)
}

// HistoryInvalidator 历史缓存失效端口
type HistoryInvalidator interface {
	InvalidateHistory(ctx context.Context, userID string) error
}

const defaultSinkTimeout = 3 * time.Second

// detached 在脱离请求生命周期的 goroutine 中执行写入
type detached struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func (d *detached) run(ctx context.Context, rec *entity.PromptRecord, fn func(ctx context.Context) error) {
	timeout := d.timeout
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	// 保留日志字段，去掉请求取消
	base := context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			metrics.RecordPersistTotal.WithLabelValues("error").Inc()
			logger.Error(ctx, "failed to persist prompt record", err,
				"record_id", rec.ID,
				"kind", rec.Kind,
			)
			return
		}
		metrics.RecordPersistTotal.WithLabelValues("success").Inc()
	}()
}

// Wait 等待已提交的写入结束，用于优雅退出
func (d *detached) Wait() {
	d.wg.Wait()
}

// StreamSink 发布到 Redis Stream，由 record-worker 落库
type StreamSink struct {
	detached
	pub RecordPublisher
}

func NewStreamSink(pub RecordPublisher, timeout time.Duration) *StreamSink {
	return &StreamSink{detached: detached{timeout: timeout}, pub: pub}
}

func (s *StreamSink) Submit(ctx context.Context, rec *entity.PromptRecord) {
	s.run(ctx, rec, func(ctx context.Context) error {
		_, err := s.pub.PublishRecord(ctx, rec)
		return err
	})
}

// DirectSink 直接写 PostgreSQL，成功后使该用户的历史缓存失效
type DirectSink struct {
	detached
	repo        repository.PromptRecordRepository
	invalidator HistoryInvalidator
}

func NewDirectSink(repo repository.PromptRecordRepository, invalidator HistoryInvalidator, timeout time.Duration) *DirectSink {
	return &DirectSink{detached: detached{timeout: timeout}, repo: repo, invalidator: invalidator}
}

func (s *DirectSink) Submit(ctx context.Context, rec *entity.PromptRecord) {
	s.run(ctx, rec, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}
		if s.invalidator != nil {
			if err := s.invalidator.InvalidateHistory(ctx, rec.UserID); err != nil {
				logger.Warn(ctx, "failed to invalidate history cache", "error", err, "user_id", rec.UserID)
			}
		}
		return nil
	})
}

// NoopSink 关闭持久化时使用
type NoopSink struct{}

func (NoopSink) Submit(context.Context, *entity.PromptRecord) {}
