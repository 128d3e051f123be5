package domain

import "time"

// Membership links a user to a channel. Leaving a channel sets Active to
// false; rows are never hard-deleted. At most one active membership exists
// per (channel, user).
type Membership struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ChannelID         int64     `gorm:"column:channel_id;index:idx_channel_user" json:"channel_id"`
	UserID            string    `gorm:"column:user_id;size:64;index:idx_channel_user" json:"user_id"`
	IsAdmin           bool      `gorm:"column:is_admin" json:"is_admin"`
	IsModerator       bool      `gorm:"column:is_moderator" json:"is_moderator"`
	Muted             bool      `gorm:"column:muted" json:"muted"`
	Pinned            bool      `gorm:"column:pinned" json:"pinned"`
	Favorite          bool      `gorm:"column:favorite" json:"favorite"`
	UnreadCount       int       `gorm:"column:unread_count" json:"unread_count"`
	LastReadMessageID int64     `gorm:"column:last_read_message_id" json:"last_read_message_id"`
	Active            bool      `gorm:"column:active;default:true;index" json:"active"`
	JoinedAt          time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Membership) TableName() string {
	return "channel_memberships"
}

// PreferencesRequest is a batch preference update. Nil fields are left
// unchanged.
type PreferencesRequest struct {
	Muted    *bool `json:"muted"`
	Pinned   *bool `json:"pinned"`
	Favorite *bool `json:"favorite"`
}
