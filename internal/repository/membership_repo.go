package repository

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// MembershipRepository membership data access interface. AddMember and
// RemoveMember keep channel.member_count equal to the number of active
// memberships; both run in a transaction.
type MembershipRepository interface {
	FindActive(channelID int64, userID string) (*domain.Membership, error)
	IsMember(channelID int64, userID string) (bool, error)
	AddMember(channelID int64, userID string, isAdmin bool) (*domain.Membership, error)
	RemoveMember(channelID int64, userID string) error
	ActiveMemberIDs(channelID int64) ([]string, error)
	ListActiveByUser(userID string) ([]*domain.Membership, error)
	UpdatePreferences(channelID int64, userID string, prefs *domain.PreferencesRequest) error
	MarkRead(channelID int64, userID string, messageID int64) error
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// FindActive returns the active membership for (channel, user)
func (r *membershipRepository) FindActive(channelID int64, userID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.Where("channel_id = ? AND user_id = ? AND active = ?", channelID, userID, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// IsMember is the authorization primitive used by every other component
func (r *membershipRepository) IsMember(channelID int64, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Membership{}).
		Where("channel_id = ? AND user_id = ? AND active = ?", channelID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// AddMember joins a user to a channel. A soft-left row is reactivated
// instead of inserting a duplicate, so at most one active membership ever
// exists per (channel, user).
func (r *membershipRepository) AddMember(channelID int64, userID string, isAdmin bool) (*domain.Membership, error) {
	var membership *domain.Membership

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.Membership
		err := tx.Where("channel_id = ? AND user_id = ?", channelID, userID).
			First(&existing).Error

		switch {
		case err == nil && existing.Active:
			return common.ErrAlreadyMember
		case err == nil:
			// Rejoin: reactivate with reset state
			updates := map[string]interface{}{
				"active":       true,
				"is_admin":     isAdmin,
				"is_moderator": false,
				"unread_count": 0,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}
			existing.Active = true
			existing.IsAdmin = isAdmin
			existing.UnreadCount = 0
			membership = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			membership = &domain.Membership{
				ChannelID: channelID,
				UserID:    userID,
				IsAdmin:   isAdmin,
				Active:    true,
			}
			if err := tx.Create(membership).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return tx.Model(&domain.Channel{}).Where("id = ?", channelID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveMember soft-leaves a channel and decrements member_count
func (r *membershipRepository) RemoveMember(channelID int64, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Membership{}).
			Where("channel_id = ? AND user_id = ? AND active = ?", channelID, userID, true).
			Update("active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return common.ErrNotMember
		}

		return tx.Model(&domain.Channel{}).
			Where("id = ? AND member_count > 0", channelID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error
	})
}

// ActiveMemberIDs returns the user ids of all active members
func (r *membershipRepository) ActiveMemberIDs(channelID int64) ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.Membership{}).
		Where("channel_id = ? AND active = ?", channelID, true).
		Pluck("user_id", &ids).Error
	return ids, err
}

// ListActiveByUser returns a user's active memberships
func (r *membershipRepository) ListActiveByUser(userID string) ([]*domain.Membership, error) {
	var memberships []*domain.Membership
	err := r.db.Where("user_id = ? AND active = ?", userID, true).
		Find(&memberships).Error
	return memberships, err
}

// UpdatePreferences applies a batch preference update; nil fields are
// untouched
func (r *membershipRepository) UpdatePreferences(channelID int64, userID string, prefs *domain.PreferencesRequest) error {
	updates := map[string]interface{}{}
	if prefs.Muted != nil {
		updates["muted"] = *prefs.Muted
	}
	if prefs.Pinned != nil {
		updates["pinned"] = *prefs.Pinned
	}
	if prefs.Favorite != nil {
		updates["favorite"] = *prefs.Favorite
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.Model(&domain.Membership{}).
		Where("channel_id = ? AND user_id = ? AND active = ?", channelID, userID, true).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotMember
	}
	return nil
}

// MarkRead advances the last-read pointer and clears the unread counter
func (r *membershipRepository) MarkRead(channelID int64, userID string, messageID int64) error {
	result := r.db.Model(&domain.Membership{}).
		Where("channel_id = ? AND user_id = ? AND active = ?", channelID, userID, true).
		Updates(map[string]interface{}{
			"last_read_message_id": messageID,
			"unread_count":         0,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotMember
	}
	return nil
}
