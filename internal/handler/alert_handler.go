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

// AlertHandler handles emergency alert HTTP requests
type AlertHandler struct {
	alerts service.AlertService
	audit  *middleware.AuditLogger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts service.AlertService, audit *middleware.AuditLogger) *AlertHandler {
	return &AlertHandler{alerts: alerts, audit: audit}
}

func alertIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid alert id", err)
		return 0, false
	}
	return id, true
}

// Create handles POST /admin/alerts
func (h *AlertHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req domain.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	alert, err := h.alerts.Create(userID, &req)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "alert.create", "alert", strconv.FormatInt(alert.ID, 10),
		string(alert.Level), c.ClientIP(), c.GetString("request_id"))
	common.CreatedResponse(c, alert)
}

// CreateEmergency handles POST /admin/alerts/emergency
func (h *AlertHandler) CreateEmergency(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		Title        string `json:"title" binding:"required"`
		Message      string `json:"message" binding:"required"`
		Instructions string `json:"instructions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	alert, err := h.alerts.CreateEmergency(userID, req.Title, req.Message, req.Instructions)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "alert.create", "alert", strconv.FormatInt(alert.ID, 10),
		string(alert.Level), c.ClientIP(), c.GetString("request_id"))
	common.CreatedResponse(c, alert)
}

// CreateUrgent handles POST /admin/alerts/urgent
func (h *AlertHandler) CreateUrgent(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		Title   string `json:"title" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	alert, err := h.alerts.CreateUrgent(userID, req.Title, req.Message)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "alert.create", "alert", strconv.FormatInt(alert.ID, 10),
		string(alert.Level), c.ClientIP(), c.GetString("request_id"))
	common.CreatedResponse(c, alert)
}

// Cancel handles POST /admin/alerts/:id/cancel
func (h *AlertHandler) Cancel(c *gin.Context) {
	id, ok := alertIDParam(c)
	if !ok {
		return
	}
	userID := middleware.GetUserID(c)

	if err := h.alerts.Cancel(id, userID); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "alert.cancel", "alert", strconv.FormatInt(id, 10), "",
		c.ClientIP(), c.GetString("request_id"))
	c.Status(http.StatusNoContent)
}

// CancelByUUID handles POST /admin/alerts/by-uuid/:uuid/cancel. Clients
// that only hold the push payload know the alert by UUID, not row id.
func (h *AlertHandler) CancelByUUID(c *gin.Context) {
	alertUUID := c.Param("uuid")
	if alertUUID == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "missing alert uuid", nil)
		return
	}
	userID := middleware.GetUserID(c)

	if err := h.alerts.CancelByUUID(alertUUID, userID); err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "alert.cancel", "alert", alertUUID, "",
		c.ClientIP(), c.GetString("request_id"))
	c.Status(http.StatusNoContent)
}

// AllClear handles POST /admin/alerts/all-clear
func (h *AlertHandler) AllClear(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	record, err := h.alerts.IssueAllClear(userID, req.Message)
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}

	h.audit.Record(userID, "alert.all_clear", "alert", strconv.FormatInt(record.ID, 10), "",
		c.ClientIP(), c.GetString("request_id"))
	common.CreatedResponse(c, record)
}

// Acknowledge handles POST /alerts/:id/ack
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id, ok := alertIDParam(c)
	if !ok {
		return
	}

	alert, err := h.alerts.Acknowledge(id, middleware.GetUserID(c))
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"alert_id": id, "ack_count": alert.AckCount}, nil)
}

// ListActive handles GET /alerts/active
func (h *AlertHandler) ListActive(c *gin.Context) {
	alerts, err := h.alerts.ActiveAlerts()
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, alerts, nil)
}

// ListCritical handles GET /alerts/critical
func (h *AlertHandler) ListCritical(c *gin.Context) {
	alerts, err := h.alerts.CriticalAlerts()
	if err != nil {
		common.ErrorResponseFromErr(c, err)
		return
	}
	common.SuccessResponse(c, alerts, nil)
}
