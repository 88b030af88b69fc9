// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"tattoo-ai-api/pkg/errors"
	"tattoo-ai-api/pkg/logger"

	"tattoo-ai-api/internal/interfaces/http/dto"
)

// respondError 应用错误按其状态码返回，其余错误记录日志后返回 500
func respondError(c *gin.Context, err error, msg string) {
	if appErr := errors.AsAppError(err); appErr != nil {
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), msg, err)
		}
		dto.AppError(c, appErr)
		return
	}
	logger.Error(c.Request.Context(), msg, err)
	dto.InternalError(c, msg)
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
