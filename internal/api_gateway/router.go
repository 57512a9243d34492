package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/agentbus-ledger/internal/api_gateway/handler"
	"github.com/agentbus-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	journalHandler *handler.JournalHandler,
	messageHandler *handler.MessageHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, scoped to the X-User-ID owner
	v1 := r.Group("/api/v1", middleware.OwnerUserID())
	{
		journals := v1.Group("/journals")
		{
			journals.POST("", journalHandler.Create)
			journals.GET("/:id", journalHandler.GetByID)
			journals.PATCH("/:id", journalHandler.Edit)
			journals.POST("/:id/post", journalHandler.Post)
			journals.POST("/:id/reverse", journalHandler.Reverse)
		}

		messages := v1.Group("/messages")
		{
			messages.POST("", messageHandler.Send)
			messages.GET("/:id", messageHandler.GetByID)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
