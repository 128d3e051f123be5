package repository

import (
	"testing"

	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedMember(t *testing.T, db *gorm.DB, userID, username string) {
	t.Helper()
	m := &domain.Member{
		UserID:      userID,
		Username:    username,
		DisplayName: username,
		Role:        "student",
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to seed member %s: %v", userID, err)
	}
}

func seedChannel(t *testing.T, db *gorm.DB, name string, memberIDs ...string) *domain.Channel {
	t.Helper()
	repo := NewChannelRepository(db)
	channel := &domain.Channel{
		Name:      name,
		Type:      domain.ChannelPublic,
		CreatedBy: memberIDs[0],
	}
	if err := repo.Create(channel, memberIDs); err != nil {
		t.Fatalf("failed to seed channel %s: %v", name, err)
	}
	return channel
}
