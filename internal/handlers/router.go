package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with middleware and all routes registered
func NewRouter(h *Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/agent/run", h.RunAgent)

		actions := api.Group("/actions")
		{
			actions.GET("", h.ListActions)
			actions.POST("/:id/approve", h.ApproveAction)
			actions.POST("/:id/reject", h.RejectAction)
		}

		api.GET("/skus/:id/forecast", h.GetForecast)
		api.POST("/suppliers/rank", h.RankSuppliers)
	}

	return router
}

// loggingMiddleware logs each request with zap
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
