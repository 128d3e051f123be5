package repository

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// ChannelRepository channel data access interface
type ChannelRepository interface {
	Create(channel *domain.Channel, memberIDs []string) error
	FindByID(id int64) (*domain.Channel, error)
	FindActiveByDMKey(dmKey string) (*domain.Channel, error)
	ListJoinable() ([]*domain.Channel, error)
	ListByIDs(ids []int64) ([]*domain.Channel, error)
	Archive(id int64) error
}

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

// Create persists a channel together with its initial memberships. The
// creator is the first entry of memberIDs and becomes channel admin.
// member_count is set to match the created memberships in the same
// transaction.
func (r *channelRepository) Create(channel *domain.Channel, memberIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		channel.MemberCount = len(memberIDs)
		channel.Active = true
		if err := tx.Create(channel).Error; err != nil {
			return err
		}

		for i, userID := range memberIDs {
			membership := &domain.Membership{
				ChannelID: channel.ID,
				UserID:    userID,
				IsAdmin:   i == 0,
				Active:    true,
			}
			if err := tx.Create(membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a channel by ID
func (r *channelRepository) FindByID(id int64) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.Where("id = ? AND active = ?", id, true).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// FindActiveByDMKey finds the non-archived direct-message channel for a
// dedup key, if one exists
func (r *channelRepository) FindActiveByDMKey(dmKey string) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.Where("dm_key = ? AND archived = ? AND active = ?", dmKey, false, true).
		First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// ListJoinable returns all non-archived PUBLIC and ANNOUNCEMENT channels
// (auto-join targets)
func (r *channelRepository) ListJoinable() ([]*domain.Channel, error) {
	var channels []*domain.Channel
	err := r.db.Where("type IN ? AND archived = ? AND active = ?",
		[]domain.ChannelType{domain.ChannelPublic, domain.ChannelAnnouncement}, false, true).
		Find(&channels).Error
	return channels, err
}

// ListByIDs returns channels for a set of ids
func (r *channelRepository) ListByIDs(ids []int64) ([]*domain.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var channels []*domain.Channel
	err := r.db.Where("id IN ? AND active = ?", ids, true).Find(&channels).Error
	return channels, err
}

// Archive soft-archives a channel. The dm_key is released so a new
// direct-message channel for the same pair can be created afterwards.
func (r *channelRepository) Archive(id int64) error {
	result := r.db.Model(&domain.Channel{}).
		Where("id = ? AND archived = ?", id, false).
		Updates(map[string]interface{}{
			"archived": true,
			"dm_key":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrChannelNotFound
	}
	return nil
}
