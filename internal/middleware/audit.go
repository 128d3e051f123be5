package middleware

import (
	"time"

	"gorm.io/gorm"

	"github.com/campuslink/campuslink-backend/pkg/logger"
)

// AuditLog records sensitive operations: alert issuance, channel
// archival, privileged message deletion
type AuditLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"column:user_id;index" json:"user_id"`
	Action     string    `gorm:"column:action;index" json:"action"`
	Resource   string    `gorm:"column:resource" json:"resource"`
	ResourceID string    `gorm:"column:resource_id" json:"resource_id"`
	Details    string    `gorm:"column:details;type:text" json:"details"`
	ClientIP   string    `gorm:"column:client_ip" json:"client_ip"`
	RequestID  string    `gorm:"column:request_id" json:"request_id"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogger handles writing audit log entries
type AuditLogger struct {
	db *gorm.DB
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	if db != nil {
		_ = db.AutoMigrate(&AuditLog{})
	}
	return &AuditLogger{db: db}
}

// Record writes an audit entry. The write is async so the request path
// never blocks on audit storage.
func (a *AuditLogger) Record(userID, action, resource, resourceID, details, clientIP, requestID string) {
	if a.db == nil {
		return
	}

	entry := &AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		ClientIP:   clientIP,
		RequestID:  requestID,
	}

	go func() {
		if err := a.db.Create(entry).Error; err != nil {
			logger.GetLogger().Error().Err(err).
				Str("action", action).
				Str("user_id", userID).
				Msg("audit log write failed")
		}
	}()
}
