package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/middleware"
	"github.com/campuslink/campuslink-backend/internal/presence"
	"github.com/campuslink/campuslink-backend/internal/service"
)

// PresenceHandler handles presence and typing HTTP requests
type PresenceHandler struct {
	tracker  *presence.Tracker
	channels service.ChannelService
	pusher   service.Pusher
}

// NewPresenceHandler creates a new PresenceHandler
func NewPresenceHandler(tracker *presence.Tracker, channels service.ChannelService, pusher service.Pusher) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, channels: channels, pusher: pusher}
}

// SetStatus handles PUT /presence/status
func (h *PresenceHandler) SetStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		Status  presence.Status `json:"status" binding:"required"`
		Message string          `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	switch req.Status {
	case presence.Online, presence.Away, presence.Busy, presence.Offline:
	default:
		common.ErrorResponse(c, http.StatusBadRequest, "unknown status", nil)
		return
	}

	snapshot := h.tracker.SetStatus(userID, req.Status, req.Message)
	h.pusher.BroadcastAll(domain.NewBroadcastPush(domain.ActionPresenceUpdated, snapshot))
	common.SuccessResponse(c, snapshot, nil)
}

// Heartbeat handles POST /presence/heartbeat
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	h.tracker.Heartbeat(middleware.GetUserID(c))
	c.Status(http.StatusNoContent)
}

// Online handles GET /presence/online
func (h *PresenceHandler) Online(c *gin.Context) {
	online := h.tracker.OnlineUsers()
	common.SuccessResponse(c, gin.H{
		"count": len(online),
		"users": online,
	}, nil)
}

// GetStatus handles GET /presence/:user_id
func (h *PresenceHandler) GetStatus(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "missing user id", nil)
		return
	}
	common.SuccessResponse(c, h.tracker.Status(userID), nil)
}

// SetTyping handles POST /channels/:id/typing
func (h *PresenceHandler) SetTyping(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	var req struct {
		Typing bool `json:"typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	isMember, err := h.channels.IsMember(channelID, userID)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	if !isMember {
		common.ErrorResponseFromErr(c, common.ErrNotMember)
		return
	}

	h.tracker.SetTyping(channelID, userID, req.Typing)

	memberIDs, err := h.channels.MemberIDs(channelID)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	// The typer already knows they are typing.
	h.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionTypingUpdated, channelID, gin.H{
		"channel_id": channelID,
		"user_id":    userID,
		"typing":     req.Typing,
	}), userID)

	c.Status(http.StatusNoContent)
}

// TypingUsers handles GET /channels/:id/typing
func (h *PresenceHandler) TypingUsers(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}

	isMember, err := h.channels.IsMember(channelID, middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	if !isMember {
		common.ErrorResponseFromErr(c, common.ErrNotMember)
		return
	}

	common.SuccessResponse(c, gin.H{
		"channel_id": channelID,
		"typing":     h.tracker.TypingUsers(channelID),
	}, nil)
}
