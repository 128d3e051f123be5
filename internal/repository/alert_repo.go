package repository

import (
	"errors"
	"time"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// AlertRepository emergency alert data access interface
type AlertRepository interface {
	Create(alert *domain.EmergencyAlert) error
	FindByID(id int64) (*domain.EmergencyAlert, error)
	FindByUUID(uuid string) (*domain.EmergencyAlert, error)
	ListActive() ([]*domain.EmergencyAlert, error)
	ListCritical() ([]*domain.EmergencyAlert, error)
	Cancel(id int64, at time.Time) error
	Acknowledge(id int64, userID string) (*domain.EmergencyAlert, error)
	AllClear(record *domain.EmergencyAlert, at time.Time) error
	DeactivateStale(olderThan time.Time) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create persists a new alert
func (r *alertRepository) Create(alert *domain.EmergencyAlert) error {
	return r.db.Create(alert).Error
}

// FindByID finds an alert by ID
func (r *alertRepository) FindByID(id int64) (*domain.EmergencyAlert, error) {
	var alert domain.EmergencyAlert
	err := r.db.Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindByUUID finds an alert by UUID
func (r *alertRepository) FindByUUID(uuid string) (*domain.EmergencyAlert, error) {
	var alert domain.EmergencyAlert
	err := r.db.Where("uuid = ?", uuid).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrAlertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListActive returns all active alerts, newest first
func (r *alertRepository) ListActive() ([]*domain.EmergencyAlert, error) {
	var alerts []*domain.EmergencyAlert
	err := r.db.Where("active = ?", true).Order("id DESC").Find(&alerts).Error
	return alerts, err
}

// ListCritical returns active EMERGENCY and URGENT alerts
func (r *alertRepository) ListCritical() ([]*domain.EmergencyAlert, error) {
	var alerts []*domain.EmergencyAlert
	err := r.db.Where("active = ? AND level IN ?", true,
		[]domain.AlertLevel{domain.AlertEmergency, domain.AlertUrgent}).
		Order("id DESC").Find(&alerts).Error
	return alerts, err
}

// Cancel deactivates an alert. Cancelling an inactive alert is a no-op,
// not an error, so the sweep and repeated admin clicks stay idempotent.
func (r *alertRepository) Cancel(id int64, at time.Time) error {
	return r.db.Model(&domain.EmergencyAlert{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]interface{}{
			"active":       false,
			"cancelled_at": at,
		}).Error
}

// Acknowledge records a user's acknowledgment. De-duplicated per user:
// repeat acknowledgments do not inflate the counter.
func (r *alertRepository) Acknowledge(id int64, userID string) (*domain.EmergencyAlert, error) {
	var alert *domain.EmergencyAlert

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var a domain.EmergencyAlert
		if err := tx.Where("id = ?", id).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrAlertNotFound
			}
			return err
		}

		if a.AckedBy.Contains(userID) {
			alert = &a
			return nil
		}

		a.AckedBy = append(a.AckedBy, userID)
		a.AckCount = len(a.AckedBy)
		if err := tx.Model(&domain.EmergencyAlert{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"acked_by":  a.AckedBy,
				"ack_count": a.AckCount,
			}).Error; err != nil {
			return err
		}
		alert = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// AllClear deactivates every active critical alert and persists the
// all-clear record in one transaction
func (r *alertRepository) AllClear(record *domain.EmergencyAlert, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.EmergencyAlert{}).
			Where("active = ? AND level IN ?", true,
				[]domain.AlertLevel{domain.AlertEmergency, domain.AlertUrgent}).
			Updates(map[string]interface{}{
				"active":       false,
				"cancelled_at": at,
			}).Error; err != nil {
			return err
		}
		return tx.Create(record).Error
	})
}

// DeactivateStale retires active non-critical alerts older than the
// retention window
func (r *alertRepository) DeactivateStale(olderThan time.Time) (int64, error) {
	result := r.db.Model(&domain.EmergencyAlert{}).
		Where("active = ? AND level IN ? AND issued_at < ?", true,
			[]domain.AlertLevel{domain.AlertNormal, domain.AlertWarning}, olderThan).
		Update("active", false)
	return result.RowsAffected, result.Error
}
