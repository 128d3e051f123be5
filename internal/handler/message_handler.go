package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/middleware"
	"github.com/campuslink/campuslink-backend/internal/service"
)

// MessageHandler handles message HTTP requests
type MessageHandler struct {
	messages  service.MessageService
	reactions service.ReactionService
	audit     *middleware.AuditLogger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messages service.MessageService, reactions service.ReactionService, audit *middleware.AuditLogger) *MessageHandler {
	return &MessageHandler{messages: messages, reactions: reactions, audit: audit}
}

func messageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid message id", err)
		return 0, false
	}
	return id, true
}

// Send handles POST /messages
func (h *MessageHandler) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	msg, err := h.messages.Send(userID, &req)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.CreatedResponse(c, msg)
}

// Edit handles PUT /messages/:id
func (h *MessageHandler) Edit(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req domain.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	msg, err := h.messages.Edit(id, middleware.GetUserID(c), &req)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, msg, nil)
}

// Delete handles DELETE /messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	if err := h.messages.Delete(id, userID); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "message.delete", "message", strconv.FormatInt(id, 10), "",
		c.ClientIP(), c.GetString("request_id"))
	c.Status(http.StatusNoContent)
}

// Pin handles POST /messages/:id/pin
func (h *MessageHandler) Pin(c *gin.Context) {
	h.setPinned(c, true)
}

// Unpin handles DELETE /messages/:id/pin
func (h *MessageHandler) Unpin(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *MessageHandler) setPinned(c *gin.Context, pinned bool) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}

	msg, err := h.messages.Pin(id, middleware.GetUserID(c), pinned)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, msg, nil)
}

// MarkRead handles POST /channels/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req struct {
		MessageID int64 `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.messages.MarkAsRead(channelID, middleware.GetUserID(c), req.MessageID); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History handles GET /channels/:id/messages
func (h *MessageHandler) History(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	beforeID, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	msgs, err := h.messages.History(channelID, middleware.GetUserID(c), beforeID, limit)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, msgs, nil)
}

// Pinned handles GET /channels/:id/pins
func (h *MessageHandler) Pinned(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	msgs, err := h.messages.Pinned(channelID, middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, msgs, nil)
}

// React handles POST /messages/:id/reactions
func (h *MessageHandler) React(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Emoji  string `json:"emoji" binding:"required"`
		Toggle bool   `json:"toggle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	userID := middleware.GetUserID(c)
	var (
		set domain.ReactionSet
		err error
	)
	if req.Toggle {
		set, err = h.reactions.Toggle(id, userID, req.Emoji)
	} else {
		set, err = h.reactions.Add(id, userID, req.Emoji)
	}
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"message_id": id, "reactions": set}, nil)
}

// Unreact handles DELETE /messages/:id/reactions/:emoji
func (h *MessageHandler) Unreact(c *gin.Context) {
	id, ok := messageIDParam(c)
	if !ok {
		return
	}

	emoji := c.Param("emoji")
	if emoji == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "missing emoji", nil)
		return
	}

	set, err := h.reactions.Remove(id, middleware.GetUserID(c), emoji)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"message_id": id, "reactions": set}, nil)
}
