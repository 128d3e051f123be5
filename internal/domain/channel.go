package domain

import (
	"fmt"
	"time"
)

// ChannelType classifies a channel
type ChannelType string

const (
	ChannelPublic        ChannelType = "PUBLIC"
	ChannelPrivate       ChannelType = "PRIVATE"
	ChannelDepartment    ChannelType = "DEPARTMENT"
	ChannelDirectMessage ChannelType = "DIRECT_MESSAGE"
	ChannelGroupMessage  ChannelType = "GROUP_MESSAGE"
	ChannelAnnouncement  ChannelType = "ANNOUNCEMENT"
)

// Valid reports whether t is a known channel type
func (t ChannelType) Valid() bool {
	switch t {
	case ChannelPublic, ChannelPrivate, ChannelDepartment,
		ChannelDirectMessage, ChannelGroupMessage, ChannelAnnouncement:
		return true
	}
	return false
}

// Channel is a messaging channel. At most one non-archived channel exists
// per direct-message dedup key: dm_key carries a unique index, is NULL on
// every other channel type, and is cleared when the channel is archived.
type Channel struct {
	ID            int64       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name          string      `gorm:"column:name;size:128" json:"name"`
	Description   string      `gorm:"column:description;size:500" json:"description,omitempty"`
	Type          ChannelType `gorm:"column:type;size:32;index" json:"type"`
	DMKey         *string     `gorm:"column:dm_key;size:160;uniqueIndex" json:"-"`
	CreatedBy     string      `gorm:"column:created_by;size:64" json:"created_by"`
	MemberCount   int         `gorm:"column:member_count" json:"member_count"`
	MessageCount  int64       `gorm:"column:message_count" json:"message_count"`
	LastMessageAt *time.Time  `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	Archived      bool        `gorm:"column:archived;index" json:"archived"`
	Active        bool        `gorm:"column:active;default:true" json:"active"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}

// IsDirect reports whether the channel is a one-on-one conversation
func (c *Channel) IsDirect() bool {
	return c.Type == ChannelDirectMessage
}

// DirectMessageKey derives the dedup key for a one-on-one channel.
// It is deterministic and symmetric: (a,b) and (b,a) yield the same key.
func DirectMessageKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("dm:%s:%s", userA, userB)
}

// CreateChannelRequest is the payload for creating a channel
type CreateChannelRequest struct {
	Name        string      `json:"name" binding:"required"`
	Description string      `json:"description"`
	Type        ChannelType `json:"type" binding:"required"`
	MemberIDs   []string    `json:"member_ids"`
}

// ChannelResponse is a channel in API responses, annotated with the
// caller's membership preferences
type ChannelResponse struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	Type          ChannelType `json:"type"`
	MemberCount   int         `json:"member_count"`
	LastMessageAt *time.Time  `json:"last_message_at,omitempty"`
	Archived      bool        `json:"archived"`
	UnreadCount   int         `json:"unread_count"`
	Muted         bool        `json:"muted"`
	Pinned        bool        `json:"pinned"`
	Favorite      bool        `json:"favorite"`
	IsAdmin       bool        `json:"is_admin"`
}

// ToResponse converts a Channel plus the caller's membership to a response
func (c *Channel) ToResponse(m *Membership) *ChannelResponse {
	resp := &ChannelResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Type:          c.Type,
		MemberCount:   c.MemberCount,
		LastMessageAt: c.LastMessageAt,
		Archived:      c.Archived,
	}
	if m != nil {
		resp.UnreadCount = m.UnreadCount
		resp.Muted = m.Muted
		resp.Pinned = m.Pinned
		resp.Favorite = m.Favorite
		resp.IsAdmin = m.IsAdmin
	}
	return resp
}
