package domain

// TargetScope says who a push is addressed to
type TargetScope string

const (
	ScopeUser      TargetScope = "user"
	ScopeChannel   TargetScope = "channel"
	ScopeBroadcast TargetScope = "broadcast"
)

// ActionKind enumerates every real-time push action. Handlers must switch
// exhaustively on these; no loose strings go over the wire.
type ActionKind string

const (
	ActionMessageCreated  ActionKind = "message.created"
	ActionMessageUpdated  ActionKind = "message.updated"
	ActionMessageDeleted  ActionKind = "message.deleted"
	ActionMessagePinned   ActionKind = "message.pinned"
	ActionReactionUpdated ActionKind = "reaction.updated"
	ActionReadReceipt     ActionKind = "message.read"
	ActionTypingUpdated   ActionKind = "typing.updated"
	ActionPresenceUpdated ActionKind = "presence.updated"
	ActionMemberJoined    ActionKind = "channel.member_joined"
	ActionMemberLeft      ActionKind = "channel.member_left"
	ActionChannelArchived ActionKind = "channel.archived"
	ActionInviteCreated   ActionKind = "invite.created"
	ActionInviteAccepted  ActionKind = "invite.accepted"
	ActionInviteDeclined  ActionKind = "invite.declined"
	ActionInviteCancelled ActionKind = "invite.cancelled"
	ActionAlertCreated    ActionKind = "alert.created"
	ActionAlertCancelled  ActionKind = "alert.cancelled"
	ActionAlertAllClear   ActionKind = "alert.all_clear"
)

// Push is the real-time envelope written to client connections.
// Delivery is at-least-once; clients de-duplicate by message id/uuid
// inside the payload.
type Push struct {
	Scope     TargetScope `json:"scope"`
	Action    ActionKind  `json:"action"`
	ChannelID int64       `json:"channel_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

// NewUserPush builds a push addressed to a single user's devices
func NewUserPush(action ActionKind, payload interface{}) *Push {
	return &Push{Scope: ScopeUser, Action: action, Payload: payload}
}

// NewChannelPush builds a push addressed to a channel's members
func NewChannelPush(action ActionKind, channelID int64, payload interface{}) *Push {
	return &Push{Scope: ScopeChannel, Action: action, ChannelID: channelID, Payload: payload}
}

// NewBroadcastPush builds a push addressed to every connected client
func NewBroadcastPush(action ActionKind, payload interface{}) *Push {
	return &Push{Scope: ScopeBroadcast, Action: action, Payload: payload}
}
