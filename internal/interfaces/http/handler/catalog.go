package handler

import (
	"github.com/gin-gonic/gin"

	"tattoo-ai-api/internal/application/design"
	"tattoo-ai-api/internal/interfaces/http/dto"
)

// CatalogHandler 规则表查询
type CatalogHandler struct {
	svc *design.Service
}

func NewCatalogHandler(svc *design.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Get 返回当前生效的风格、后端能力与规则表版本
// @Summary 规则表概览
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response[dto.CatalogResponse]
// @Router /v1/catalog [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	dto.Success(c, dto.ToCatalogResponse(h.svc.Catalog()))
}
