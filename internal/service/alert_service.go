package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/pkg/logger"
)

// AlertService business logic for emergency alerts. Alerts ignore
// channel membership entirely: every connected client receives them.
type AlertService interface {
	Create(issuerID string, req *domain.CreateAlertRequest) (*domain.EmergencyAlert, error)
	CreateEmergency(issuerID, title, message, instructions string) (*domain.EmergencyAlert, error)
	CreateUrgent(issuerID, title, message string) (*domain.EmergencyAlert, error)
	Cancel(alertID int64, userID string) error
	CancelByUUID(alertUUID string, userID string) error
	IssueAllClear(issuerID, message string) (*domain.EmergencyAlert, error)
	Acknowledge(alertID int64, userID string) (*domain.EmergencyAlert, error)
	ActiveAlerts() ([]*domain.EmergencyAlert, error)
	CriticalAlerts() ([]*domain.EmergencyAlert, error)
	DeactivateStale(maxAge time.Duration) (int64, error)
}

type alertService struct {
	alerts repository.AlertRepository
	pusher Pusher
	perms  PermissionChecker
	now    func() time.Time
}

// NewAlertService creates a new AlertService
func NewAlertService(alerts repository.AlertRepository, pusher Pusher, perms PermissionChecker) AlertService {
	return &alertService{
		alerts: alerts,
		pusher: pusher,
		perms:  perms,
		now:    time.Now,
	}
}

// Create issues an alert and broadcasts it to every connected client.
// Requires the alert-issue permission.
func (s *alertService) Create(issuerID string, req *domain.CreateAlertRequest) (*domain.EmergencyAlert, error) {
	if !s.perms.HasPermission(issuerID, PermIssueAlert) {
		return nil, common.ErrForbidden
	}

	level := req.Level
	if level == "" {
		level = domain.AlertNormal
	}
	alertType := req.Type
	if alertType == "" {
		alertType = domain.AlertAnnouncement
	}

	alert := &domain.EmergencyAlert{
		UUID:         uuid.New().String(),
		Title:        req.Title,
		Message:      req.Message,
		Instructions: req.Instructions,
		Level:        level,
		Type:         alertType,
		IssuedBy:     issuerID,
		IssuedAt:     s.now(),
		RequiresAck:  req.RequiresAck,
		PlaySound:    req.PlaySound,
		AckedBy:      domain.AckSet{},
		Active:       true,
	}
	if err := s.alerts.Create(alert); err != nil {
		return nil, err
	}

	s.pusher.BroadcastAll(domain.NewBroadcastPush(domain.ActionAlertCreated, alert))

	logger.GetLogger().Warn().
		Int64("alert_id", alert.ID).
		Str("level", string(alert.Level)).
		Str("type", string(alert.Type)).
		Str("issued_by", issuerID).
		Msg("alert issued")
	return alert, nil
}

// CreateEmergency issues an EMERGENCY-level alert with acknowledgement
// and sound forced on
func (s *alertService) CreateEmergency(issuerID, title, message, instructions string) (*domain.EmergencyAlert, error) {
	return s.Create(issuerID, &domain.CreateAlertRequest{
		Title:        title,
		Message:      message,
		Instructions: instructions,
		Level:        domain.AlertEmergency,
		Type:         domain.AlertAnnouncement,
		RequiresAck:  true,
		PlaySound:    true,
	})
}

// CreateUrgent issues an URGENT-level alert with sound on
func (s *alertService) CreateUrgent(issuerID, title, message string) (*domain.EmergencyAlert, error) {
	return s.Create(issuerID, &domain.CreateAlertRequest{
		Title:     title,
		Message:   message,
		Level:     domain.AlertUrgent,
		Type:      domain.AlertAnnouncement,
		PlaySound: true,
	})
}

// Cancel deactivates an alert and tells every client to drop it.
// Cancelling an already-inactive alert is a no-op.
func (s *alertService) Cancel(alertID int64, userID string) error {
	if !s.perms.HasPermission(userID, PermIssueAlert) {
		return common.ErrForbidden
	}
	alert, err := s.alerts.FindByID(alertID)
	if err != nil {
		return err
	}
	if !alert.Active {
		return nil
	}

	if err := s.alerts.Cancel(alertID, s.now()); err != nil {
		return err
	}

	s.pusher.BroadcastAll(domain.NewBroadcastPush(domain.ActionAlertCancelled, map[string]interface{}{
		"alert_id":   alertID,
		"alert_uuid": alert.UUID,
	}))

	logger.GetLogger().Info().
		Int64("alert_id", alertID).
		Str("cancelled_by", userID).
		Msg("alert cancelled")
	return nil
}

// CancelByUUID cancels an alert addressed by its public UUID
func (s *alertService) CancelByUUID(alertUUID string, userID string) error {
	alert, err := s.alerts.FindByUUID(alertUUID)
	if err != nil {
		return err
	}
	return s.Cancel(alert.ID, userID)
}

// IssueAllClear deactivates every critical alert and broadcasts an
// ALL_CLEAR record so clients can stand down
func (s *alertService) IssueAllClear(issuerID, message string) (*domain.EmergencyAlert, error) {
	if !s.perms.HasPermission(issuerID, PermIssueAlert) {
		return nil, common.ErrForbidden
	}

	record := &domain.EmergencyAlert{
		UUID:      uuid.New().String(),
		Title:     "All Clear",
		Message:   message,
		Level:     domain.AlertNormal,
		Type:      domain.AlertAllClear,
		IssuedBy:  issuerID,
		IssuedAt:  s.now(),
		AckedBy:   domain.AckSet{},
		PlaySound: true,
		Active:    true,
	}
	if err := s.alerts.AllClear(record, s.now()); err != nil {
		return nil, err
	}

	s.pusher.BroadcastAll(domain.NewBroadcastPush(domain.ActionAlertAllClear, record))

	logger.GetLogger().Info().
		Str("issued_by", issuerID).
		Msg("all clear issued")
	return record, nil
}

// Acknowledge records the user's acknowledgement of an alert. Each user
// counts once no matter how many times they acknowledge.
func (s *alertService) Acknowledge(alertID int64, userID string) (*domain.EmergencyAlert, error) {
	if userID == "" {
		return nil, common.ErrValidation
	}
	return s.alerts.Acknowledge(alertID, userID)
}

// ActiveAlerts returns all active alerts, for clients catching up after
// reconnect
func (s *alertService) ActiveAlerts() ([]*domain.EmergencyAlert, error) {
	return s.alerts.ListActive()
}

// CriticalAlerts returns active EMERGENCY and URGENT alerts
func (s *alertService) CriticalAlerts() ([]*domain.EmergencyAlert, error) {
	return s.alerts.ListCritical()
}

// DeactivateStale turns off non-critical alerts older than maxAge.
// Critical alerts stay up until cancelled or all-cleared. Run by the
// scheduler.
func (s *alertService) DeactivateStale(maxAge time.Duration) (int64, error) {
	n, err := s.alerts.DeactivateStale(s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.GetLogger().Info().Int64("deactivated", n).Msg("stale alert sweep")
	}
	return n, nil
}
