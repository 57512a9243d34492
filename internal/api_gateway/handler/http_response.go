package handler

import (
	"net/http"

	"github.com/agentbus-ledger/internal/api_gateway/middleware"
	"github.com/agentbus-ledger/internal/domain/message"
	ledger "github.com/agentbus-ledger/internal/ledger_engine/service"
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code            string   `json:"code"`
	Message         string   `json:"message"`
	Kind            string   `json:"kind,omitempty"`
	MissingAccounts []string `json:"missing_accounts,omitempty"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{Data: data}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondAccepted sends a 202 Accepted response with data
func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondOperationFailure maps a failed ledger result to a status by its error kind.
// Store failures hide their message behind the generic 500 body.
func RespondOperationFailure(c *gin.Context, result ledger.OperationResult) {
	status, code := http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	switch message.ErrorKind(result.ErrorKind) {
	case message.ErrorKindValidation:
		status, code = http.StatusBadRequest, "VALIDATION_FAILED"
	case message.ErrorKindNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case message.ErrorKindState:
		status, code = http.StatusConflict, "INVALID_STATE"
	case message.ErrorKindConflict:
		status, code = http.StatusConflict, "CONFLICT"
	}

	if status == http.StatusInternalServerError {
		RespondInternalError(c)
		return
	}

	c.JSON(status, &Response{
		Error: &ErrorInfo{
			Code:            code,
			Message:         result.Message,
			Kind:            result.ErrorKind,
			MissingAccounts: result.MissingAccounts,
		},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}
