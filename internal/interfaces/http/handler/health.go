// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tattoo-ai-api/internal/workflow/catalog"
)

// Pinger 依赖的健康探测
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	store   *catalog.Store
	deps    map[string]Pinger
}

// NewHealthHandler 创建健康检查处理器；deps 中为 nil 的依赖视为未启用
func NewHealthHandler(version string, store *catalog.Store, deps map[string]Pinger) *HealthHandler {
	enabled := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			enabled[name] = p
		}
	}
	return &HealthHandler{version: version, store: store, deps: enabled}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	CatalogVersion string `json:"catalog_version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Version: h.version}
	if h.store != nil {
		resp.CatalogVersion = h.store.Version()
	}
	c.JSON(http.StatusOK, resp)
}

// Ready 就绪检查接口，规则表必须已加载，已启用的外部依赖必须可达
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.deps)+1)
	ready := true

	if h.store == nil || h.store.Tables() == nil {
		checks["catalog"] = &readinessCheck{Status: "missing", Error: "rule tables not loaded"}
		ready = false
	} else {
		checks["catalog"] = &readinessCheck{Status: "ok"}
	}

	for name, dep := range h.deps {
		start := time.Now()
		err := dep.HealthCheck(ctx)
		check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Status = "error"
			check.Error = err.Error()
			ready = false
		}
		checks[name] = check
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
