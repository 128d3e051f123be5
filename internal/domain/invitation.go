package domain

import "time"

// InvitationStatus is the invitation state machine position
type InvitationStatus string

const (
	InvitePending   InvitationStatus = "PENDING"
	InviteAccepted  InvitationStatus = "ACCEPTED"
	InviteDeclined  InvitationStatus = "DECLINED"
	InviteExpired   InvitationStatus = "EXPIRED"
	InviteCancelled InvitationStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state
func (s InvitationStatus) Terminal() bool {
	return s != InvitePending
}

// InvitationTTL is how long an invitation stays acceptable
const InvitationTTL = 7 * 24 * time.Hour

// ChannelInvitation invites a user into a channel. At most one PENDING
// invitation exists per (channel, invitee).
type ChannelInvitation struct {
	ID        int64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ChannelID int64            `gorm:"column:channel_id;index" json:"channel_id"`
	InviterID string           `gorm:"column:inviter_id;size:64;index" json:"inviter_id"`
	InviteeID string           `gorm:"column:invitee_id;size:64;index" json:"invitee_id"`
	Status    InvitationStatus `gorm:"column:status;size:16;index" json:"status"`
	Message   string           `gorm:"column:message;size:500" json:"message,omitempty"`
	ExpiresAt time.Time        `gorm:"column:expires_at;index" json:"expires_at"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ChannelInvitation) TableName() string {
	return "channel_invitations"
}

// Expired reports whether the invitation is past its expiry time
func (i *ChannelInvitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// CreateInvitationRequest is the payload for inviting a user
type CreateInvitationRequest struct {
	ChannelID int64  `json:"channel_id" binding:"required"`
	InviteeID string `json:"invitee_id" binding:"required"`
	Message   string `json:"message"`
}
