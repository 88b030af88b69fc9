// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"tattoo-ai-api/internal/application/design"
	"tattoo-ai-api/internal/interfaces/http/dto"
)

// StyleHandler 风格迁移
type StyleHandler struct {
	svc *design.Service
}

func NewStyleHandler(svc *design.Service) *StyleHandler {
	return &StyleHandler{svc: svc}
}

// Transfer 风格迁移
// @Summary 风格迁移
// @Tags Styles
// @Accept json
// @Produce json
// @Param body body dto.TransferRequest true "迁移请求"
// @Success 200 {object} dto.Response[dto.TransferResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/styles/transfer [post]
func (h *StyleHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Transfer(c.Request.Context(), req.ToModel())
	if err != nil {
		respondError(c, err, "style transfer failed")
		return
	}
	dto.Success(c, dto.ToTransferResponse(res))
}
