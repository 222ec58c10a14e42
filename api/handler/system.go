package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/netdev/addone/interact"
	"github.com/sshcollectorpro/netdev/internal/database"
)

// SystemHandler 健康检查与平台信息
type SystemHandler struct {
	started time.Time
	active  func() int
	stats   func() map[string]interface{}
}

// NewSystemHandler 创建系统处理器；stats 可为 nil
func NewSystemHandler(active func() int, stats func() map[string]interface{}) *SystemHandler {
	return &SystemHandler{started: time.Now(), active: active, stats: stats}
}

// Health 健康检查
// @Router /api/v1/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	if err := database.Health(); err != nil {
		dbStatus = err.Error()
	}
	active := 0
	if h.active != nil {
		active = h.active()
	}
	resp := gin.H{
		"status":          "ok",
		"uptime":          time.Since(h.started).Round(time.Second).String(),
		"database":        dbStatus,
		"active_sessions": active,
		"platforms":       interact.Names(),
	}
	if h.stats != nil {
		resp["pool"] = h.stats()
	}
	c.JSON(http.StatusOK, resp)
}

// Catalog 平台命令目录
// @Router /api/v1/catalog [get]
func (h *SystemHandler) Catalog(c *gin.Context) {
	platform := c.DefaultQuery("platform", "cisco_asa")
	p, ok := interact.Get(platform)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "UNSUPPORTED_PLATFORM", Message: "unsupported platform: " + platform})
		return
	}
	c.JSON(http.StatusOK, gin.H{"platform": p.Name(), "commands": p.CatalogEntries()})
}
