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

// ChannelHandler handles channel HTTP requests
type ChannelHandler struct {
	channels service.ChannelService
	audit    *middleware.AuditLogger
}

// NewChannelHandler creates a new ChannelHandler
func NewChannelHandler(channels service.ChannelService, audit *middleware.AuditLogger) *ChannelHandler {
	return &ChannelHandler{channels: channels, audit: audit}
}

func channelIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid channel id", err)
		return 0, false
	}
	return id, true
}

// Create handles POST /channels
func (h *ChannelHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	channel, err := h.channels.Create(userID, &req)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.CreatedResponse(c, channel)
}

// CreateDirectMessage handles POST /channels/direct
func (h *ChannelHandler) CreateDirectMessage(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	channel, err := h.channels.GetOrCreateDirectMessage(userID, req.UserID)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, channel, nil)
}

// Get handles GET /channels/:id
func (h *ChannelHandler) Get(c *gin.Context) {
	id, ok := channelIDParam(c)
	if !ok {
		return
	}

	channel, err := h.channels.Get(id)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, channel, nil)
}

// ListMine handles GET /channels/mine
func (h *ChannelHandler) ListMine(c *gin.Context) {
	responses, err := h.channels.ListMine(middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, responses, nil)
}

// ListJoinable handles GET /channels
func (h *ChannelHandler) ListJoinable(c *gin.Context) {
	channels, err := h.channels.ListJoinable()
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, channels, nil)
}

// Join handles POST /channels/:id/join
func (h *ChannelHandler) Join(c *gin.Context) {
	id, ok := channelIDParam(c)
	if !ok {
		return
	}

	if err := h.channels.Join(id, middleware.GetUserID(c)); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"channel_id": id}, nil)
}

// Leave handles POST /channels/:id/leave
func (h *ChannelHandler) Leave(c *gin.Context) {
	id, ok := channelIDParam(c)
	if !ok {
		return
	}

	if err := h.channels.Leave(id, middleware.GetUserID(c)); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Archive handles POST /channels/:id/archive
func (h *ChannelHandler) Archive(c *gin.Context) {
	id, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	if err := h.channels.Archive(id, userID); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "channel.archive", "channel", strconv.FormatInt(id, 10), "",
		c.ClientIP(), c.GetString("request_id"))
	c.Status(http.StatusNoContent)
}

// AutoJoin handles POST /channels/auto-join. Enrolls the caller into
// every joinable public channel; run by clients after first sign-in.
func (h *ChannelHandler) AutoJoin(c *gin.Context) {
	userID := middleware.GetUserID(c)

	if err := h.channels.AutoJoinPublicChannels(userID); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Backfill handles POST /admin/channels/:id/backfill. Enrolls every
// known user into the channel.
func (h *ChannelHandler) Backfill(c *gin.Context) {
	id, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	added, err := h.channels.BackfillPublicChannels(id)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "channel.backfill", "channel", strconv.FormatInt(id, 10), "",
		c.ClientIP(), c.GetString("request_id"))
	common.SuccessResponse(c, gin.H{"channel_id": id, "added": added}, nil)
}

// UpdatePreferences handles PATCH /channels/:id/preferences
func (h *ChannelHandler) UpdatePreferences(c *gin.Context) {
	id, ok := channelIDParam(c)
	if !ok {
		return
	}

	var req domain.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.channels.UpdatePreferences(id, middleware.GetUserID(c), &req); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
