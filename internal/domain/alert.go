package domain

import (
	"database/sql/driver"
	"time"
)

// AlertLevel is the severity of an emergency alert
type AlertLevel string

const (
	AlertNormal    AlertLevel = "NORMAL"
	AlertWarning   AlertLevel = "WARNING"
	AlertUrgent    AlertLevel = "URGENT"
	AlertEmergency AlertLevel = "EMERGENCY"
)

// Critical reports whether the level interrupts normal campus operation
func (l AlertLevel) Critical() bool {
	return l == AlertUrgent || l == AlertEmergency
}

// AlertType classifies the alert
type AlertType string

const (
	AlertAnnouncement AlertType = "ANNOUNCEMENT"
	AlertLockdown     AlertType = "LOCKDOWN"
	AlertEvacuation   AlertType = "EVACUATION"
	AlertWeather      AlertType = "WEATHER"
	AlertMedical      AlertType = "MEDICAL"
	AlertAllClear     AlertType = "ALL_CLEAR"
)

// AckSet is the set of user ids who acknowledged an alert, stored as a
// JSON array. Repeat acknowledgments from the same user do not grow it.
type AckSet []string

// Contains reports whether userID already acknowledged
func (a AckSet) Contains(userID string) bool {
	for _, id := range a {
		if id == userID {
			return true
		}
	}
	return false
}

// Value serializes for storage
func (a AckSet) Value() (driver.Value, error) {
	return MentionList(a).Value()
}

// Scan deserializes from storage
func (a *AckSet) Scan(value interface{}) error {
	return scanJSON(value, (*[]string)(a), func() { *a = AckSet{} })
}

// EmergencyAlert is a campus-wide alert broadcast to every connected
// client regardless of channel membership.
type EmergencyAlert struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID         string     `gorm:"column:uuid;size:36;uniqueIndex" json:"uuid"`
	Title        string     `gorm:"column:title;size:255" json:"title"`
	Message      string     `gorm:"column:message;type:text" json:"message"`
	Instructions string     `gorm:"column:instructions;type:text" json:"instructions,omitempty"`
	Level        AlertLevel `gorm:"column:level;size:16;index" json:"level"`
	Type         AlertType  `gorm:"column:type;size:32" json:"type"`
	IssuedBy     string     `gorm:"column:issued_by;size:64" json:"issued_by"`
	IssuedAt     time.Time  `gorm:"column:issued_at" json:"issued_at"`
	RequiresAck  bool       `gorm:"column:requires_ack" json:"requires_ack"`
	AckCount     int        `gorm:"column:ack_count" json:"ack_count"`
	AckedBy      AckSet     `gorm:"column:acked_by;type:text" json:"-"`
	PlaySound    bool       `gorm:"column:play_sound" json:"play_sound"`
	Active       bool       `gorm:"column:active;index" json:"active"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (EmergencyAlert) TableName() string {
	return "emergency_alerts"
}

// CreateAlertRequest is the payload for issuing an alert
type CreateAlertRequest struct {
	Title        string     `json:"title" binding:"required"`
	Message      string     `json:"message" binding:"required"`
	Instructions string     `json:"instructions"`
	Level        AlertLevel `json:"level"`
	Type         AlertType  `json:"type"`
	RequiresAck  bool       `json:"requires_ack"`
	PlaySound    bool       `json:"play_sound"`
}
