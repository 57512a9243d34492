package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerUserIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(called *bool, owner *string) *gin.Engine {
		router := gin.New()
		router.Use(CorrelationID(), OwnerUserID())
		router.GET("/journals/1", func(c *gin.Context) {
			*called = true
			*owner = GetOwnerUserID(c)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("StoresTrimmedOwner", func(t *testing.T) {
		var called bool
		var owner string
		req, _ := http.NewRequest(http.MethodGet, "/journals/1", nil)
		req.Header.Set(OwnerUserIDHeader, "  user-1 ")
		rr := httptest.NewRecorder()

		newRouter(&called, &owner).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, called)
		assert.Equal(t, "user-1", owner)
	})

	t.Run("RejectsMissingHeader", func(t *testing.T) {
		var called bool
		var owner string
		req, _ := http.NewRequest(http.MethodGet, "/journals/1", nil)
		req.Header.Set(CorrelationIDHeader, "corr-1")
		rr := httptest.NewRecorder()

		newRouter(&called, &owner).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.False(t, called)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		errorField, ok := body["error"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "BAD_REQUEST", errorField["code"])
		assert.Equal(t, "X-User-ID header is required", errorField["message"])
		assert.Equal(t, "corr-1", body["correlation_id"])
	})
}
