package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/netdev/internal/model"
	"github.com/sshcollectorpro/netdev/internal/service"
	"github.com/sshcollectorpro/netdev/pkg/logger"
)

// SessionManager 会话处理器依赖的服务能力
type SessionManager interface {
	Open(ctx context.Context, req service.OpenRequest) (*service.SessionInfo, error)
	Execute(ctx context.Context, id string, req service.CommandRequest) ([]service.CommandResult, error)
	ChangeContext(ctx context.Context, id, name string) (*service.SessionInfo, string, error)
	Get(id string) (*service.SessionInfo, error)
	List() []service.SessionInfo
	Close(id string) error
	ConnectAll(ctx context.Context, names []string) []service.ConnectResult
	CommandLogs(id string) ([]model.CommandLog, error)
}

// SessionHandler 会话处理器
type SessionHandler struct {
	sessions SessionManager
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(sessions SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ContextRequest 切换上下文请求
type ContextRequest struct {
	Context string `json:"context" binding:"required"`
}

// ConnectAllRequest 批量连接请求；names 为空表示清单中全部设备
type ConnectAllRequest struct {
	Names []string `json:"names"`
}

// CommandResponse 命令执行响应
type CommandResponse struct {
	Session *service.SessionInfo    `json:"session,omitempty"`
	Results []service.CommandResult `json:"results"`
}

// Open 打开会话
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req service.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_PARAMS", Message: "请求参数无效: " + err.Error()})
		return
	}
	info, err := h.sessions.Open(c.Request.Context(), req)
	if err != nil {
		logger.WithFields(logrus.Fields{"host": req.Host, "name": req.Name, "error": err}).Warn("Open session failed")
		c.JSON(errorResponse(err, info))
		return
	}
	c.JSON(http.StatusCreated, info)
}

// List 会话列表
// @Router /api/v1/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.sessions.List()})
}

// Get 会话详情
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	info, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(errorResponse(err, nil))
		return
	}
	c.JSON(http.StatusOK, info)
}

// Execute 在会话上顺序执行命令
// @Router /api/v1/sessions/{id}/commands [post]
func (h *SessionHandler) Execute(c *gin.Context) {
	var req service.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_PARAMS", Message: "请求参数无效: " + err.Error()})
		return
	}
	id := c.Param("id")
	results, err := h.sessions.Execute(c.Request.Context(), id, req)
	info, _ := h.sessions.Get(id)
	if err != nil {
		c.JSON(errorResponse(err, CommandResponse{Session: info, Results: results}))
		return
	}
	c.JSON(http.StatusOK, CommandResponse{Session: info, Results: results})
}

// ChangeContext 切换安全上下文
// @Router /api/v1/sessions/{id}/context [post]
func (h *SessionHandler) ChangeContext(c *gin.Context) {
	var req ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_PARAMS", Message: "请求参数无效: " + err.Error()})
		return
	}
	info, out, err := h.sessions.ChangeContext(c.Request.Context(), c.Param("id"), req.Context)
	if err != nil {
		c.JSON(errorResponse(err, info))
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": info, "output": out})
}

// Close 关闭会话
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		c.JSON(errorResponse(err, nil))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Code: "OK", Message: "会话已关闭"})
}

// ConnectAll 按清单批量连接
// @Router /api/v1/sessions/connect-all [post]
func (h *SessionHandler) ConnectAll(c *gin.Context) {
	var req ConnectAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_PARAMS", Message: "请求参数无效: " + err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": h.sessions.ConnectAll(c.Request.Context(), req.Names)})
}

// Logs 会话命令记录
// @Router /api/v1/sessions/{id}/logs [get]
func (h *SessionHandler) Logs(c *gin.Context) {
	logs, err := h.sessions.CommandLogs(c.Param("id"))
	if err != nil {
		c.JSON(errorResponse(err, nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
