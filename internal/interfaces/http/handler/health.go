package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker 依赖探活
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency 就绪检查中的一个依赖
type Dependency struct {
	Name     string
	Checker  HealthChecker
	Required bool
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version string
	deps    []Dependency
}

// NewHealthHandler 创建健康检查处理器，Checker 为 nil 的可选依赖视为未启用
func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{version: version, deps: deps}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
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
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "alive"})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 必需依赖失败返回 503，可选依赖失败仅标记 degraded
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.deps))
	ready := true

	for _, dep := range h.deps {
		if dep.Checker == nil {
			if dep.Required {
				checks[dep.Name] = &readinessCheck{Status: "missing", Error: dep.Name + " client not configured"}
				ready = false
			} else {
				checks[dep.Name] = &readinessCheck{Status: "disabled"}
			}
			continue
		}

		start := time.Now()
		err := dep.Checker.HealthCheck(ctx)
		check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Error = err.Error()
			if dep.Required {
				check.Status = "error"
				ready = false
			} else {
				check.Status = "degraded"
			}
		}
		checks[dep.Name] = check
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
