package repository

import (
	"errors"
	"time"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// InvitationRepository invitation data access interface
type InvitationRepository interface {
	Create(inv *domain.ChannelInvitation) error
	FindByID(id int64) (*domain.ChannelInvitation, error)
	HasPending(channelID int64, inviteeID string) (bool, error)
	Transition(id int64, to domain.InvitationStatus) error
	ExpireOlderThan(now time.Time) (int64, error)
	ListPendingForInvitee(inviteeID string) ([]*domain.ChannelInvitation, error)
	ListByInviter(inviterID string) ([]*domain.ChannelInvitation, error)
}

type invitationRepository struct {
	db *gorm.DB
}

// NewInvitationRepository creates a new InvitationRepository
func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

// Create persists a new invitation
func (r *invitationRepository) Create(inv *domain.ChannelInvitation) error {
	return r.db.Create(inv).Error
}

// FindByID finds an invitation by ID
func (r *invitationRepository) FindByID(id int64) (*domain.ChannelInvitation, error) {
	var inv domain.ChannelInvitation
	err := r.db.Where("id = ?", id).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// HasPending reports whether a PENDING invitation already exists for
// (channel, invitee)
func (r *invitationRepository) HasPending(channelID int64, inviteeID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.ChannelInvitation{}).
		Where("channel_id = ? AND invitee_id = ? AND status = ?",
			channelID, inviteeID, domain.InvitePending).
		Count(&count).Error
	return count > 0, err
}

// Transition moves a PENDING invitation to a terminal state. The guard on
// status makes transitions on already-terminal invitations report
// ErrInvalidTransition instead of silently overwriting.
func (r *invitationRepository) Transition(id int64, to domain.InvitationStatus) error {
	result := r.db.Model(&domain.ChannelInvitation{}).
		Where("id = ? AND status = ?", id, domain.InvitePending).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrInvalidTransition
	}
	return nil
}

// ExpireOlderThan marks every PENDING invitation past its expiry as
// EXPIRED. Idempotent: terminal invitations are untouched.
func (r *invitationRepository) ExpireOlderThan(now time.Time) (int64, error) {
	result := r.db.Model(&domain.ChannelInvitation{}).
		Where("status = ? AND expires_at < ?", domain.InvitePending, now).
		Update("status", domain.InviteExpired)
	return result.RowsAffected, result.Error
}

// ListPendingForInvitee returns open invitations addressed to a user
func (r *invitationRepository) ListPendingForInvitee(inviteeID string) ([]*domain.ChannelInvitation, error) {
	var invs []*domain.ChannelInvitation
	err := r.db.Where("invitee_id = ? AND status = ?", inviteeID, domain.InvitePending).
		Order("id DESC").Find(&invs).Error
	return invs, err
}

// ListByInviter returns invitations a user has sent
func (r *invitationRepository) ListByInviter(inviterID string) ([]*domain.ChannelInvitation, error) {
	var invs []*domain.ChannelInvitation
	err := r.db.Where("inviter_id = ?", inviterID).
		Order("id DESC").Find(&invs).Error
	return invs, err
}
