package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/netdev/api/handler"
	"github.com/sshcollectorpro/netdev/pkg/logger"
)

// Options 路由依赖
type Options struct {
	Sessions handler.SessionManager
	// Active 返回当前活跃会话数，用于健康检查
	Active func() int
	// Stats 会话池统计，可选
	Stats func() map[string]interface{}
	// Metrics 为 nil 时不暴露 /metrics
	Metrics http.Handler
	Version string
}

// SetupRouter 设置路由
func SetupRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	sessionHandler := handler.NewSessionHandler(opts.Sessions)
	systemHandler := handler.NewSystemHandler(opts.Active, opts.Stats)

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "netdev ASA session overlay",
			"version": version,
			"status":  "running",
		})
	})

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", systemHandler.Health)
		v1.GET("/catalog", systemHandler.Catalog)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Open)
			sessions.GET("", sessionHandler.List)
			sessions.POST("/connect-all", sessionHandler.ConnectAll)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.DELETE("/:id", sessionHandler.Close)
			sessions.POST("/:id/commands", sessionHandler.Execute)
			sessions.POST("/:id/context", sessionHandler.ChangeContext)
			sessions.GET("/:id/logs", sessionHandler.Logs)
		}
	}

	// 404处理
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"duration":   time.Since(start),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Info("HTTP request")
		}
	}
}
