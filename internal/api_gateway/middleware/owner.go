package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// OwnerUserIDHeader names the caller whose journals and messages a request touches
	OwnerUserIDHeader = "X-User-ID"

	ownerUserIDKey = "owner_user_id"
)

// OwnerUserID rejects requests without an X-User-ID header. There is no
// authentication; the header is trusted as given.
func OwnerUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerUserIDHeader))
		if owner == "" {
			response := gin.H{
				"error": gin.H{
					"code":    "BAD_REQUEST",
					"message": OwnerUserIDHeader + " header is required",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, response)
			return
		}

		c.Set(ownerUserIDKey, owner)
		c.Next()
	}
}

// GetOwnerUserID returns the owner stored by OwnerUserID, or ""
func GetOwnerUserID(c *gin.Context) string {
	return c.GetString(ownerUserIDKey)
}
