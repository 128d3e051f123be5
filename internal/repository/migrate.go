package repository

import (
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for every core entity
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Member{},
		&domain.Channel{},
		&domain.Membership{},
		&domain.Message{},
		&domain.ChannelInvitation{},
		&domain.EmergencyAlert{},
	)
}
