package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
)

type messageTestDeps struct {
	messages    *mockMessageRepo
	channels    *mockChannelRepo
	memberships *mockMembershipRepo
	members     *mockMemberRepo
	pusher      *mockPusher
	perms       *mockPerms
}

func newMessageService(t *testing.T) (MessageService, *messageTestDeps) {
	t.Helper()
	deps := &messageTestDeps{
		messages:    &mockMessageRepo{},
		channels:    &mockChannelRepo{},
		memberships: &mockMembershipRepo{},
		members:     &mockMemberRepo{},
		pusher:      &mockPusher{},
		perms:       newMockPerms(),
	}
	svc := NewMessageService(deps.messages, deps.channels, deps.memberships, deps.members, deps.pusher, deps.perms)
	return svc, deps
}

func activeChannel(id int64) *domain.Channel {
	return &domain.Channel{ID: id, Type: domain.ChannelPublic, Active: true}
}

func TestSendMessage(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)
	deps.messages.On("ExistsByClientKey", "key-1").Return(false, nil)
	deps.messages.On("Create", mock.AnythingOfType("*domain.Message")).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "bob"}, nil)

	msg, err := svc.Send("alice", &domain.SendMessageRequest{
		ChannelID: 1,
		Content:   "hello",
		ClientKey: "key-1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, domain.MessageText, msg.Type)
	assert.Equal(t, domain.StatusSent, msg.Status)
	assert.NotEmpty(t, msg.UUID)

	// Fan-out excludes the sender.
	assert.Len(t, deps.pusher.channelPushes, 1)
	assert.Equal(t, "alice", deps.pusher.channelPushes[0].Exclude)
	assert.Equal(t, domain.ActionMessageCreated, deps.pusher.channelPushes[0].Push.Action)
}

func TestSendMessage_NotMember(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "mallory").Return(false, nil)

	_, err := svc.Send("mallory", &domain.SendMessageRequest{ChannelID: 1, Content: "hi"})

	assert.ErrorIs(t, err, common.ErrNotMember)
	assert.Empty(t, deps.pusher.channelPushes)
	deps.messages.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSendMessage_ArchivedChannel(t *testing.T) {
	svc, deps := newMessageService(t)

	archived := activeChannel(1)
	archived.Archived = true
	deps.channels.On("FindByID", int64(1)).Return(archived, nil)

	_, err := svc.Send("alice", &domain.SendMessageRequest{ChannelID: 1, Content: "hi"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSendMessage_DuplicateClientKey(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)
	deps.messages.On("ExistsByClientKey", "dup").Return(true, nil)

	_, err := svc.Send("alice", &domain.SendMessageRequest{ChannelID: 1, Content: "again", ClientKey: "dup"})

	assert.ErrorIs(t, err, common.ErrDuplicateKey)
	deps.messages.AssertNotCalled(t, "Create", mock.Anything)
}

func TestSendMessage_FillsClientKeyFromUUID(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)
	deps.messages.On("Create", mock.AnythingOfType("*domain.Message")).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice"}, nil)

	msg, err := svc.Send("alice", &domain.SendMessageRequest{ChannelID: 1, Content: "no key"})

	assert.NoError(t, err)
	assert.Equal(t, msg.UUID, msg.ClientKey)
	// No idempotency lookup when the client sent no key.
	deps.messages.AssertNotCalled(t, "ExistsByClientKey", mock.Anything)
}

func TestSendMessage_ReplyCrossChannelRejected(t *testing.T) {
	svc, deps := newMessageService(t)

	parentID := int64(9)
	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)
	deps.messages.On("FindByID", parentID).Return(&domain.Message{ID: parentID, ChannelID: 2}, nil)

	_, err := svc.Send("alice", &domain.SendMessageRequest{ChannelID: 1, Content: "re", ReplyToID: &parentID})

	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSendMessage_ReplyGetsReplyType(t *testing.T) {
	svc, deps := newMessageService(t)

	parentID := int64(9)
	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)
	deps.messages.On("FindByID", parentID).Return(&domain.Message{ID: parentID, ChannelID: 1}, nil)
	deps.messages.On("Create", mock.AnythingOfType("*domain.Message")).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice"}, nil)

	msg, err := svc.Send("alice", &domain.SendMessageRequest{ChannelID: 1, Content: "re", ReplyToID: &parentID})

	assert.NoError(t, err)
	assert.Equal(t, domain.MessageReply, msg.Type, "a resolved reply overrides the requested type")
}

func TestSendMessage_ExplicitMentionsSuppressParsing(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)

	deps.members.On("FindByUsername", "bob").Return(&domain.Member{UserID: "u-bob", Username: "bob"}, nil)
	deps.memberships.On("IsMember", int64(1), "u-bob").Return(true, nil)

	deps.messages.On("Create", mock.AnythingOfType("*domain.Message")).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "u-bob"}, nil)

	// The client restricted mentions to bob; @eve in the content must
	// not be resolved.
	msg, err := svc.Send("alice", &domain.SendMessageRequest{
		ChannelID: 1,
		Content:   "fyi @eve",
		Mentions:  []string{"bob"},
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.MentionList{"u-bob"}, msg.Mentions)
	deps.members.AssertNotCalled(t, "FindByUsername", "eve")
}

func TestSendMessage_MentionResolution(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)

	// @bob resolves by username and is a member; @ghost resolves to no
	// one; @eve resolves but is not a member.
	deps.members.On("FindByUsername", "bob").Return(&domain.Member{UserID: "u-bob", Username: "bob"}, nil)
	deps.members.On("FindByUsername", "ghost").Return(nil, common.ErrUserNotFound)
	deps.members.On("FindByStudentNumber", "ghost").Return(nil, common.ErrUserNotFound)
	deps.members.On("FindByUsername", "eve").Return(&domain.Member{UserID: "u-eve", Username: "eve"}, nil)
	deps.memberships.On("IsMember", int64(1), "u-bob").Return(true, nil)
	deps.memberships.On("IsMember", int64(1), "u-eve").Return(false, nil)

	deps.messages.On("Create", mock.AnythingOfType("*domain.Message")).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "u-bob"}, nil)

	msg, err := svc.Send("alice", &domain.SendMessageRequest{
		ChannelID: 1,
		Content:   "hey @bob and @ghost and @eve",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.MentionList{"u-bob"}, msg.Mentions)
}

func TestSendMessage_MentionByStudentNumber(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.channels.On("FindByID", int64(1)).Return(activeChannel(1), nil)
	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)

	deps.members.On("FindByUsername", "20250114").Return(nil, common.ErrUserNotFound)
	deps.members.On("FindByStudentNumber", "20250114").Return(&domain.Member{UserID: "u-kim"}, nil)
	deps.memberships.On("IsMember", int64(1), "u-kim").Return(true, nil)

	deps.messages.On("Create", mock.AnythingOfType("*domain.Message")).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "u-kim"}, nil)

	msg, err := svc.Send("alice", &domain.SendMessageRequest{ChannelID: 1, Content: "ping @20250114"})

	assert.NoError(t, err)
	assert.Equal(t, domain.MentionList{"u-kim"}, msg.Mentions)
}

func TestEditMessage_SenderOnly(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice"}, nil)

	_, err := svc.Edit(5, "bob", &domain.EditMessageRequest{Content: "hijack"})
	assert.ErrorIs(t, err, common.ErrNotSender)
}

func TestEditMessage(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice", Content: "old"}, nil)
	deps.messages.On("UpdateContent", int64(5), "new").Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "bob"}, nil)

	msg, err := svc.Edit(5, "alice", &domain.EditMessageRequest{Content: "new"})

	assert.NoError(t, err)
	assert.Equal(t, "new", msg.Content)
	assert.True(t, msg.Edited)
	assert.Len(t, deps.pusher.channelPushes, 1)
	assert.Equal(t, domain.ActionMessageUpdated, deps.pusher.channelPushes[0].Push.Action)
}

func TestEditMessage_Deleted(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, SenderID: "alice", Deleted: true}, nil)

	_, err := svc.Edit(5, "alice", &domain.EditMessageRequest{Content: "x"})
	assert.ErrorIs(t, err, common.ErrMessageNotFound)
}

func TestDeleteMessage_OwnMessage(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice"}, nil)
	deps.messages.On("MarkDeleted", int64(5)).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "bob"}, nil)

	err := svc.Delete(5, "alice")

	assert.NoError(t, err)
	assert.Len(t, deps.pusher.channelPushes, 1)
	assert.Equal(t, domain.ActionMessageDeleted, deps.pusher.channelPushes[0].Push.Action)
}

func TestDeleteMessage_ForbiddenWithoutPermission(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice"}, nil)

	err := svc.Delete(5, "bob")
	assert.ErrorIs(t, err, common.ErrNotSender)
	deps.messages.AssertNotCalled(t, "MarkDeleted", mock.Anything)
}

func TestDeleteMessage_ModeratorOverride(t *testing.T) {
	svc, deps := newMessageService(t)
	deps.perms.granted["mod:"+PermDeleteAnyMessage] = true

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice"}, nil)
	deps.messages.On("MarkDeleted", int64(5)).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice"}, nil)

	err := svc.Delete(5, "mod")
	assert.NoError(t, err)
}

func TestDeleteMessage_AlreadyDeletedNoop(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, SenderID: "alice", Deleted: true}, nil)

	err := svc.Delete(5, "alice")
	assert.NoError(t, err)
	deps.messages.AssertNotCalled(t, "MarkDeleted", mock.Anything)
}

func TestPinMessage_AnyMember(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice"}, nil)
	deps.memberships.On("IsMember", int64(1), "bob").Return(true, nil)
	deps.messages.On("SetPinned", int64(5), true).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "bob"}, nil)

	msg, err := svc.Pin(5, "bob", true)

	assert.NoError(t, err)
	assert.True(t, msg.Pinned)
}

func TestPinMessage_NonMember(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1}, nil)
	deps.memberships.On("IsMember", int64(1), "mallory").Return(false, nil)

	_, err := svc.Pin(5, "mallory", true)
	assert.ErrorIs(t, err, common.ErrNotMember)
}

func TestMarkAsRead(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.memberships.On("IsMember", int64(1), "bob").Return(true, nil)
	deps.messages.On("FindByID", int64(5)).Return(&domain.Message{ID: 5, ChannelID: 1, SenderID: "alice"}, nil)
	deps.messages.On("AddReceipt", int64(5), "bob", mock.AnythingOfType("time.Time")).Return(nil)
	deps.memberships.On("MarkRead", int64(1), "bob", int64(5)).Return(nil)

	err := svc.MarkAsRead(1, "bob", 5)

	assert.NoError(t, err)
	// Receipt goes only to the sender.
	assert.Len(t, deps.pusher.userPushes, 1)
	assert.Equal(t, "alice", deps.pusher.userPushes[0].UserID)
	assert.Equal(t, domain.ActionReadReceipt, deps.pusher.userPushes[0].Push.Action)
}

func TestHistory_MembershipGated(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.memberships.On("IsMember", int64(1), "mallory").Return(false, nil)

	_, err := svc.History(1, "mallory", 0, 50)
	assert.ErrorIs(t, err, common.ErrNotMember)
}

func TestHistory_LimitClamped(t *testing.T) {
	svc, deps := newMessageService(t)

	deps.memberships.On("IsMember", int64(1), "alice").Return(true, nil)
	deps.messages.On("History", int64(1), int64(0), defaultHistoryLimit).Return([]*domain.Message{}, nil)

	_, err := svc.History(1, "alice", 0, 500)
	assert.NoError(t, err)
	deps.messages.AssertExpectations(t)
}
