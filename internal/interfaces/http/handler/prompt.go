// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"tattoo-ai-api/internal/application/design"
	"tattoo-ai-api/internal/interfaces/http/dto"
	"tattoo-ai-api/internal/interfaces/http/middleware"
)

// PromptHandler 提示词分析、增强与历史
type PromptHandler struct {
	svc *design.Service
}

func NewPromptHandler(svc *design.Service) *PromptHandler {
	return &PromptHandler{svc: svc}
}

// Analyze 分析提示词
// @Summary 分析提示词
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeRequest true "提示词与可选提示"
// @Success 200 {object} dto.Response[model.PromptAnalysis]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/prompts/analyze [post]
func (h *PromptHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	dto.Success(c, h.svc.Analyze(c.Request.Context(), req.Prompt, req.HintsRequest.ToModel()))
}

// Enhance 六阶段增强；空提示词返回置信度为 0 的结果而不是错误
// @Summary 增强提示词
// @Tags Prompts
// @Accept json
// @Produce json
// @Param body body dto.EnhanceRequest true "提示词与增强上下文"
// @Success 200 {object} dto.Response[dto.EnhanceResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/prompts/enhance [post]
func (h *PromptHandler) Enhance(c *gin.Context) {
	var req dto.EnhanceRequest
	if !bindJSON(c, &req) {
		return
	}
	res := h.svc.Enhance(c.Request.Context(), req.Prompt, req.ToContext())
	dto.Success(c, dto.ToEnhanceResponse(res))
}

// History 当前用户最近的记录
// @Summary 增强历史
// @Tags Prompts
// @Produce json
// @Param limit query int false "条数" default(20)
// @Success 200 {object} dto.Response[dto.HistoryResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Router /v1/prompts/history [get]
func (h *PromptHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.svc.History(c.Request.Context(), middleware.GetUserIDFromGin(c), limit)
	if err != nil {
		respondError(c, err, "failed to load history")
		return
	}
	dto.Success(c, dto.ToHistoryResponse(records))
}
