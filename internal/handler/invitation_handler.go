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

// InvitationHandler handles invitation HTTP requests
type InvitationHandler struct {
	invitations service.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler
func NewInvitationHandler(invitations service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

func invitationIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid invitation id", err)
		return 0, false
	}
	return id, true
}

// Create handles POST /invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	var req domain.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	inv, err := h.invitations.Create(middleware.GetUserID(c), &req)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.CreatedResponse(c, inv)
}

// Accept handles POST /invitations/:id/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	id, ok := invitationIDParam(c)
	if !ok {
		return
	}

	channel, err := h.invitations.Accept(id, middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, channel, nil)
}

// Decline handles POST /invitations/:id/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	id, ok := invitationIDParam(c)
	if !ok {
		return
	}

	if err := h.invitations.Decline(id, middleware.GetUserID(c)); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Cancel handles POST /invitations/:id/cancel
func (h *InvitationHandler) Cancel(c *gin.Context) {
	id, ok := invitationIDParam(c)
	if !ok {
		return
	}

	if err := h.invitations.Cancel(id, middleware.GetUserID(c)); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPending handles GET /invitations/pending
func (h *InvitationHandler) ListPending(c *gin.Context) {
	invs, err := h.invitations.ListPending(middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, invs, nil)
}

// ListSent handles GET /invitations/sent
func (h *InvitationHandler) ListSent(c *gin.Context) {
	invs, err := h.invitations.ListSent(middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, invs, nil)
}
