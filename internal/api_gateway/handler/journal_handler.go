package handler

import (
	"log/slog"
	"strconv"

	"github.com/agentbus-ledger/internal/api_gateway/middleware"
	"github.com/agentbus-ledger/internal/api_gateway/service"
	"github.com/gin-gonic/gin"
)

// JournalHandler handles HTTP requests for journal operations
type JournalHandler struct {
	journalService service.JournalService
	logger         *slog.Logger
}

// NewJournalHandler creates a new journal handler
func NewJournalHandler(logger *slog.Logger, journalService service.JournalService) *JournalHandler {
	return &JournalHandler{
		journalService: journalService,
		logger:         logger,
	}
}

// Create books a draft journal from a structured entry
func (h *JournalHandler) Create(c *gin.Context) {
	var req CreateJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := req.toEntry()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result := h.journalService.CreateJournal(c.Request.Context(), middleware.GetOwnerUserID(c), entry)
	if !result.Success {
		RespondOperationFailure(c, result)
		return
	}
	RespondCreated(c, result)
}

// GetByID retrieves a journal with its lines, returns 404 if not found
func (h *JournalHandler) GetByID(c *gin.Context) {
	id, ok := h.journalID(c)
	if !ok {
		return
	}

	j, err := h.journalService.GetJournal(c.Request.Context(), middleware.GetOwnerUserID(c), id)
	if err != nil {
		h.logger.Error("Failed to get journal", "journal_id", id, "error", err)
		RespondInternalError(c)
		return
	}
	if j == nil {
		RespondNotFound(c, "Journal not found")
		return
	}

	RespondOK(c, mapJournalToResponse(j))
}

// Edit applies a partial update to a draft journal at the expected version
func (h *JournalHandler) Edit(c *gin.Context) {
	id, ok := h.journalID(c)
	if !ok {
		return
	}

	var req EditJournalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "journal_id", id, "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	edit, err := req.toEditRequest()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result := h.journalService.EditJournal(c.Request.Context(), middleware.GetOwnerUserID(c), id, edit)
	if !result.Success {
		RespondOperationFailure(c, result)
		return
	}
	RespondOK(c, result)
}

// Post posts a balanced draft journal
func (h *JournalHandler) Post(c *gin.Context) {
	id, ok := h.journalID(c)
	if !ok {
		return
	}

	result := h.journalService.PostJournal(c.Request.Context(), middleware.GetOwnerUserID(c), id)
	if !result.Success {
		RespondOperationFailure(c, result)
		return
	}
	RespondOK(c, result)
}

// Reverse creates the mirror draft of a posted journal
func (h *JournalHandler) Reverse(c *gin.Context) {
	id, ok := h.journalID(c)
	if !ok {
		return
	}

	result := h.journalService.ReverseJournal(c.Request.Context(), middleware.GetOwnerUserID(c), id)
	if !result.Success {
		RespondOperationFailure(c, result)
		return
	}
	RespondCreated(c, result)
}

func (h *JournalHandler) journalID(c *gin.Context) (int64, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid journal ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid journal ID")
		return 0, false
	}
	return id, true
}
