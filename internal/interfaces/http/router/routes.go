// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 提示词
	prompts := v1.Group("/prompts")
	{
		prompts.POST("/analyze", h.Prompt.Analyze)
		prompts.POST("/enhance", h.Prompt.Enhance)
		prompts.GET("/history", h.Prompt.History)
	}

	// 风格迁移
	styles := v1.Group("/styles")
	{
		styles.POST("/transfer", h.Style.Transfer)
	}

	// 模型推荐
	models := v1.Group("/models")
	{
		models.POST("/recommend", h.Model.Recommend)
	}

	v1.GET("/catalog", h.Catalog.Get)
}
