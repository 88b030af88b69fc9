// Package design 编排提示词分析、增强、风格迁移与模型推荐，
// 负责追踪、指标、日志、个性化以及结果记录的异步落库。
package design

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/internal/workflow/analyzer"
	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	"tattoo-ai-api/internal/workflow/pipeline"
	"tattoo-ai-api/internal/workflow/recommend"
	"tattoo-ai-api/internal/workflow/transfer"
	apperrors "tattoo-ai-api/pkg/errors"
	"tattoo-ai-api/pkg/logger"
	"tattoo-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("design")

// PersonalizeThreshold 历史记录置信度达到该值时，其后端计入偏好
const PersonalizeThreshold = 80

// Options 服务选项
type Options struct {
	Personalize  bool
	HistoryLimit int
}

// Service 提示词设计服务
type Service struct {
	src       catalog.Source
	analyzer  *analyzer.Analyzer
	pipeline  *pipeline.Pipeline
	transfer  *transfer.Engine
	recommend *recommend.Engine
	sink      RecordSink
	history   HistoryReader
	notifier  *Notifier
	opts      Options
}

// NewService 创建服务；sink、history、notifier 可为 nil
func NewService(
	src catalog.Source,
	p *pipeline.Pipeline,
	te *transfer.Engine,
	sink RecordSink,
	history HistoryReader,
	notifier *Notifier,
	opts Options,
) *Service {
	if sink == nil {
		sink = NoopSink{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Service{
		src:       src,
		analyzer:  analyzer.New(src),
		pipeline:  p,
		transfer:  te,
		recommend: recommend.New(src),
		sink:      sink,
		history:   history,
		notifier:  notifier,
		opts:      opts,
	}
}

// Catalog 当前生效的规则表
func (s *Service) Catalog() *catalog.Tables {
	return s.src.Tables()
}

// Analyze 分析提示词
func (s *Service) Analyze(ctx context.Context, prompt string, hints wfmodel.AnalysisHints) wfmodel.PromptAnalysis {
	ctx, span := tracer.Start(ctx, "design.Analyze")
	defer span.End()

	a := s.analyzer.Analyze(prompt, hints)
	span.SetAttributes(
		attribute.String("analysis.complexity", string(a.Complexity)),
		attribute.String("analysis.detail", string(a.DetailLevel)),
	)
	logger.Debug(ctx, "prompt analyzed",
		"complexity", a.Complexity,
		"color", a.ColorRequirement,
		"detail", a.DetailLevel,
		"keywords", len(a.Keywords),
	)
	return a
}

// Enhance 执行六阶段增强管线，从不返回错误
func (s *Service) Enhance(ctx context.Context, prompt string, ec wfmodel.EnhancementContext) *wfmodel.PipelineResult {
	ctx, span := tracer.Start(ctx, "design.Enhance",
		trace.WithAttributes(
			attribute.String("enhance.style", ec.Style),
			attribute.String("enhance.target_model", ec.TargetModel),
		))
	defer span.End()

	userID := logger.UserID(ctx)
	if s.opts.Personalize && userID != "" && len(ec.History) == 0 {
		ec.History = s.previousPrompts(ctx, userID)
	}

	res := s.pipeline.Process(prompt, ec)

	status := "ok"
	switch {
	case strings.TrimSpace(prompt) == "":
		status = "empty"
	case len(res.StagesFailed) > 0:
		status = "partial"
	}
	metrics.PromptEnhanceTotal.WithLabelValues(status).Inc()
	if status != "empty" {
		metrics.PromptEnhanceConfidence.Observe(float64(res.ConfidenceScore))
	}
	for _, st := range res.StagesApplied {
		metrics.PromptStageApplied.WithLabelValues(st).Inc()
	}
	for _, st := range res.StagesFailed {
		metrics.PromptStageFailed.WithLabelValues(st).Inc()
		logger.Warn(ctx, "enhancement stage failed", "stage", st)
	}

	span.SetAttributes(
		attribute.Int("enhance.confidence", res.ConfidenceScore),
		attribute.Int("enhance.stages_applied", len(res.StagesApplied)),
		attribute.String("enhance.backend", res.Backend),
	)
	logger.Info(ctx, "prompt enhanced",
		"operation", "enhance",
		"confidence", res.ConfidenceScore,
		"stages", res.StagesApplied,
		"backend", res.Backend,
		"latency_ms", res.ProcessingTime.Milliseconds(),
	)

	if status != "empty" {
		rec := entity.NewPromptRecord(userID, entity.RecordKindEnhance, res.OriginalPrompt, res.EnhancedPrompt)
		rec.SetConfidence(res.ConfidenceScore)
		rec.Applied = append(rec.Applied, res.StagesApplied...)
		rec.Warnings = append(rec.Warnings, res.Warnings...)
		rec.Backend = res.Backend
		rec.ProcessingMs = res.ProcessingTime.Milliseconds()
		s.handOff(ctx, rec)
	}
	return res
}

// Transfer 风格迁移；校验失败返回 *AppError
func (s *Service) Transfer(ctx context.Context, req wfmodel.StyleTransferRequest) (*wfmodel.StyleTransferResult, error) {
	ctx, span := tracer.Start(ctx, "design.Transfer",
		trace.WithAttributes(
			attribute.String("transfer.from", req.OriginalStyle),
			attribute.String("transfer.to", req.TargetStyle),
		))
	defer span.End()

	res, err := s.transfer.Transfer(req)
	if err != nil {
		metrics.StyleTransferTotal.WithLabelValues("rejected").Inc()
		span.RecordError(err)
		appErr := transferError(err)
		logger.Info(ctx, "style transfer rejected", "reason", err.Error(), "code", appErr.Code)
		return nil, appErr
	}

	outcome := "fallback"
	applied := "fallback:" + catalog.Normalize(req.TargetStyle)
	if res.RuleApplied {
		outcome = "rule"
		applied = fmt.Sprintf("rule:%s->%s", catalog.Normalize(req.OriginalStyle), catalog.Normalize(req.TargetStyle))
	}
	metrics.StyleTransferTotal.WithLabelValues(outcome).Inc()

	span.SetAttributes(
		attribute.Bool("transfer.rule_applied", res.RuleApplied),
		attribute.Int("transfer.confidence", res.ConfidenceScore),
	)
	logger.Info(ctx, "style transferred",
		"operation", "transfer",
		"rule", applied,
		"confidence", res.ConfidenceScore,
		"quality", res.EstimatedQuality,
		"latency_ms", res.ProcessingTime.Milliseconds(),
	)

	userID := logger.UserID(ctx)
	rec := entity.NewPromptRecord(userID, entity.RecordKindTransfer, res.OriginalPrompt, res.TransferredPrompt)
	rec.SetConfidence(res.ConfidenceScore)
	rec.Applied = append(rec.Applied, applied)
	rec.Warnings = append(rec.Warnings, res.Warnings...)
	rec.Backend = catalog.Normalize(req.TargetModel)
	rec.ProcessingMs = res.ProcessingTime.Milliseconds()
	s.handOff(ctx, rec)

	return res, nil
}

// Recommend 为分析结果推荐后端，开启个性化时合并历史偏好
func (s *Service) Recommend(ctx context.Context, analysis wfmodel.PromptAnalysis, prefs *wfmodel.ModelPreferences) *wfmodel.ModelRecommendation {
	ctx, span := tracer.Start(ctx, "design.Recommend")
	defer span.End()

	if userID := logger.UserID(ctx); s.opts.Personalize && userID != "" && s.history != nil {
		records, err := s.history.Recent(ctx, userID, s.opts.HistoryLimit)
		if err != nil {
			logger.Warn(ctx, "history unavailable, recommending without personalization", "error", err)
		} else {
			prefs = Personalize(records, prefs, PersonalizeThreshold)
		}
	}

	rec := s.recommend.Recommend(analysis, prefs)
	metrics.ModelRecommendationTotal.WithLabelValues(rec.RecommendedModel).Inc()

	span.SetAttributes(
		attribute.String("recommend.model", rec.RecommendedModel),
		attribute.Int("recommend.confidence", rec.Confidence),
	)
	logger.Info(ctx, "model recommended",
		"operation", "recommend",
		"model", rec.RecommendedModel,
		"confidence", rec.Confidence,
		"alternatives", len(rec.Alternatives),
	)
	return rec
}

// RecommendForPrompt 先分析再推荐
func (s *Service) RecommendForPrompt(ctx context.Context, prompt string, hints wfmodel.AnalysisHints, prefs *wfmodel.ModelPreferences) (wfmodel.PromptAnalysis, *wfmodel.ModelRecommendation) {
	a := s.Analyze(ctx, prompt, hints)
	return a, s.Recommend(ctx, a, prefs)
}

// History 用户最近的增强与迁移记录
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*entity.PromptRecord, error) {
	ctx, span := tracer.Start(ctx, "design.History")
	defer span.End()

	if userID == "" {
		return nil, apperrors.ErrUnauthorized.WithDetail("history requires an authenticated user")
	}
	if s.history == nil {
		return []*entity.PromptRecord{}, nil
	}
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}

	records, err := s.history.Recent(ctx, userID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load history")
	}
	return records, nil
}

// previousPrompts 最近增强过的提示词，最近的在前
func (s *Service) previousPrompts(ctx context.Context, userID string) []string {
	if s.history == nil {
		return nil
	}
	records, err := s.history.Recent(ctx, userID, s.opts.HistoryLimit)
	if err != nil {
		logger.Warn(ctx, "history unavailable", "error", err)
		return nil
	}
	var out []string
	for _, r := range records {
		if r.Kind == entity.RecordKindEnhance && r.OriginalPrompt != "" {
			out = append(out, r.OriginalPrompt)
		}
	}
	return out
}

// handOff 匿名请求不记录
func (s *Service) handOff(ctx context.Context, rec *entity.PromptRecord) {
	if rec.UserID == "" {
		return
	}
	s.sink.Submit(ctx, rec)
	if s.notifier != nil {
		s.notifier.Publish(ctx, Event{
			Type:       EventRecordLogged,
			RecordID:   rec.ID,
			UserID:     rec.UserID,
			Kind:       string(rec.Kind),
			Confidence: rec.Confidence,
			At:         time.Now().UTC(),
		})
	}
}

func transferError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, transfer.ErrSameStyle):
		return apperrors.ErrSameStyle.
			WithDetail(err.Error()).
			WithSuggestions("choose a target style different from the original style").
			WithError(err)
	case errors.Is(err, transfer.ErrEmptyPrompt):
		return apperrors.ErrEmptyPrompt.WithError(err)
	case errors.Is(err, transfer.ErrMissingTargetStyle):
		return apperrors.ErrInvalidParam.WithDetail(err.Error()).WithError(err)
	default:
		return apperrors.Wrap(err, apperrors.CodeInternalError, "style transfer failed")
	}
}
