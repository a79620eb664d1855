package handler

import (
	"net/http"
	"runtime/debug"
	"time"

	"ngram-go/internal/controller"
	"ngram-go/internal/metrics"
	"ngram-go/pkg/mcp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter builds the HTTP API. mcpServer and collector may be nil to leave their routes out.
func SetupRouter(ngramController *controller.NGramController, mcpServer *mcp.NGramServer, collector *metrics.Collector, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(CustomRecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger, collector))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/models", ngramController.TrainModel)
		v1.GET("/models", ngramController.ListModels)
		v1.GET("/models/:id", ngramController.GetModel)
		v1.DELETE("/models/:id", ngramController.DeleteModel)
		v1.POST("/models/:id/generate", ngramController.Generate)
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "healthy",
			})
		})
	}

	if collector != nil {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	if mcpServer != nil {
		mcpServer.SetupHTTPRoutes(router)
	}

	return router
}

func LoggerMiddleware(logger *zap.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
		collector.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

func CustomRecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("stack", string(debug.Stack())),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
