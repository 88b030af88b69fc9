// Package handler 提供 HTTP 请求处理器
package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tattoo-ai-api/internal/application/design"
	"tattoo-ai-api/internal/interfaces/http/dto"
	"tattoo-ai-api/pkg/errors"
)

// ModelHandler 模型推荐
type ModelHandler struct {
	svc *design.Service
}

func NewModelHandler(svc *design.Service) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// Recommend 推荐生成后端；请求可携带现成的分析结果，也可只给提示词
// @Summary 推荐模型
// @Tags Models
// @Accept json
// @Produce json
// @Param body body dto.RecommendRequest true "分析结果或提示词"
// @Success 200 {object} dto.Response[dto.RecommendResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/models/recommend [post]
func (h *ModelHandler) Recommend(c *gin.Context) {
	var req dto.RecommendRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if req.Analysis != nil {
		dto.Success(c, dto.RecommendResponse{
			Analysis:       *req.Analysis,
			Recommendation: h.svc.Recommend(ctx, *req.Analysis, req.Preferences),
		})
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		dto.AppError(c, errors.ErrInvalidParam.WithDetail("either analysis or prompt is required"))
		return
	}
	analysis, rec := h.svc.RecommendForPrompt(ctx, req.Prompt, req.Hints.ToModel(), req.Preferences)
	dto.Success(c, dto.RecommendResponse{Analysis: analysis, Recommendation: rec})
}
