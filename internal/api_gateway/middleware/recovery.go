package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "An internal server error occurred"

// Recovery turns a handler panic into a 500 envelope and an error log with the stack
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			correlationID := GetCorrelationID(c)
			attrs := []any{
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"correlation_id", correlationID,
			}
			if owner := GetOwnerUserID(c); owner != "" {
				attrs = append(attrs, "owner_user_id", owner)
			}
			logger.Error("Panic recovered", attrs...)

			body := gin.H{"error": gin.H{"code": "INTERNAL_SERVER_ERROR", "message": internalErrorMessage}}
			if correlationID != "" {
				body["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()

		c.Next()
	}
}
