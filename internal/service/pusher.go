package service

import "github.com/campuslink/campuslink-backend/internal/domain"

// Pusher delivers real-time pushes. The websocket hub implements it;
// services stay decoupled from connection management.
type Pusher interface {
	SendToUser(userID string, push *domain.Push)
	SendToChannelMembers(memberIDs []string, push *domain.Push, excludeUserID string)
	BroadcastAll(push *domain.Push)
}
