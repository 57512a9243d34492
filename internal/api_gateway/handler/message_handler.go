package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/agentbus-ledger/internal/api_gateway/middleware"
	"github.com/agentbus-ledger/internal/api_gateway/service"
	"github.com/agentbus-ledger/internal/domain/message"
	"github.com/gin-gonic/gin"
)

// defaultSender names messages posted over HTTP without a sender
const defaultSender = "api"

// MessageHandler handles HTTP requests for bus messages
type MessageHandler struct {
	messageService service.MessageService
	logger         *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(logger *slog.Logger, messageService service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// Send puts a message on the bus. With waitMs it blocks until the message is
// terminal or the wait ends; a terminal message answers 200, anything else 202.
func (h *MessageHandler) Send(c *gin.Context) {
	var params SendMessageParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid waitMs parameter")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sender := req.Sender
	if sender == "" {
		sender = defaultSender
	}

	msg, err := h.messageService.Send(c.Request.Context(), message.SendRequest{
		Sender:         sender,
		Recipient:      req.Recipient,
		Action:         req.Action,
		Payload:        req.Payload,
		OwnerUserID:    middleware.GetOwnerUserID(c),
		Kind:           message.Kind(req.Kind),
		Priority:       message.Priority(req.Priority),
		ConversationID: req.ConversationID,
	}, time.Duration(params.WaitMs)*time.Millisecond)
	if err != nil {
		if errors.Is(err, message.ErrInvalidSendRequest{}) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to send message", "recipient", req.Recipient, "action", req.Action, "error", err)
		RespondInternalError(c)
		return
	}

	if msg.Status.IsTerminal() {
		RespondOK(c, msg)
		return
	}
	RespondAccepted(c, msg)
}

// GetByID retrieves a message by its id, returns 404 if not found
func (h *MessageHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	msg, err := h.messageService.GetMessage(c.Request.Context(), middleware.GetOwnerUserID(c), id)
	if err != nil {
		h.logger.Error("Failed to get message", "message_id", id, "error", err)
		RespondInternalError(c)
		return
	}
	if msg == nil {
		RespondNotFound(c, "Message not found")
		return
	}

	RespondOK(c, msg)
}
