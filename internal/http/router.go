package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"support-chat/internal/service"
	"support-chat/internal/ws"
)

// NewRouter configura el router de Gin con middlewares y rutas base.
func NewRouter(
	logger *zap.Logger,
	auth *service.AuthService,
	wsHandler *ws.Handler,
	sessionH *SessionHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging y recovery.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// La conexión persistente valida su credencial dentro del handler,
	// antes del upgrade.
	r.GET("/ws", wsHandler.Serve)

	api := r.Group("/api", AuthMiddleware(auth))
	api.POST("/sessions", sessionH.CreateSession)
	api.GET("/sessions/:id/messages", sessionH.ListMessages)
	api.GET("/sessions/:id/online", sessionH.OnlineUsers)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
