package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
)

type channelTestDeps struct {
	channels    *mockChannelRepo
	memberships *mockMembershipRepo
	members     *mockMemberRepo
	pusher      *mockPusher
	perms       *mockPerms
}

func newChannelService(t *testing.T) (ChannelService, *channelTestDeps) {
	t.Helper()
	deps := &channelTestDeps{
		channels:    &mockChannelRepo{},
		memberships: &mockMembershipRepo{},
		members:     &mockMemberRepo{},
		pusher:      &mockPusher{},
		perms:       newMockPerms(),
	}
	svc := NewChannelService(deps.channels, deps.memberships, deps.members, deps.pusher, deps.perms)
	return svc, deps
}

func TestCreateChannel_CreatorFirstMember(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("Create", mock.AnythingOfType("*domain.Channel"), []string{"alice", "bob"}).Return(nil)

	channel, err := svc.Create("alice", &domain.CreateChannelRequest{
		Name:      "cs-study",
		Type:      domain.ChannelPublic,
		MemberIDs: []string{"bob", "alice"}, // creator listed twice, deduped
	})

	assert.NoError(t, err)
	assert.Equal(t, "alice", channel.CreatedBy)
	deps.channels.AssertExpectations(t)

	// The other initial member gets notified; the creator does not.
	assert.Len(t, deps.pusher.userPushes, 1)
	assert.Equal(t, "bob", deps.pusher.userPushes[0].UserID)
}

func TestCreateChannel_InvalidType(t *testing.T) {
	svc, _ := newChannelService(t)

	_, err := svc.Create("alice", &domain.CreateChannelRequest{Name: "x", Type: "WEIRD"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestCreateChannel_DirectTypeRejected(t *testing.T) {
	svc, _ := newChannelService(t)

	_, err := svc.Create("alice", &domain.CreateChannelRequest{Name: "x", Type: domain.ChannelDirectMessage})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestGetOrCreateDirectMessage_ReturnsExisting(t *testing.T) {
	svc, deps := newChannelService(t)

	key := domain.DirectMessageKey("alice", "bob")
	existing := &domain.Channel{ID: 7, Type: domain.ChannelDirectMessage, DMKey: &key}

	deps.members.On("FindByUserID", "alice").Return(&domain.Member{UserID: "alice"}, nil)
	deps.channels.On("FindActiveByDMKey", key).Return(existing, nil)

	// Caller order reversed from key order.
	channel, err := svc.GetOrCreateDirectMessage("bob", "alice")

	assert.NoError(t, err)
	assert.Equal(t, int64(7), channel.ID)
	deps.channels.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetOrCreateDirectMessage_CreatesWhenMissing(t *testing.T) {
	svc, deps := newChannelService(t)

	key := domain.DirectMessageKey("alice", "bob")
	deps.members.On("FindByUserID", "bob").Return(&domain.Member{UserID: "bob"}, nil)
	deps.channels.On("FindActiveByDMKey", key).Return(nil, common.ErrChannelNotFound)
	deps.channels.On("Create", mock.AnythingOfType("*domain.Channel"), []string{"alice", "bob"}).Return(nil)

	channel, err := svc.GetOrCreateDirectMessage("alice", "bob")

	assert.NoError(t, err)
	require.NotNil(t, channel.DMKey)
	assert.Equal(t, key, *channel.DMKey)
	assert.Equal(t, domain.ChannelDirectMessage, channel.Type)
}

func TestGetOrCreateDirectMessage_SelfRejected(t *testing.T) {
	svc, _ := newChannelService(t)

	_, err := svc.GetOrCreateDirectMessage("alice", "alice")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestGetOrCreateDirectMessage_UnknownUser(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.members.On("FindByUserID", "nobody").Return(nil, common.ErrUserNotFound)

	_, err := svc.GetOrCreateDirectMessage("alice", "nobody")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestJoin_OpenChannel(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPublic}, nil)
	deps.memberships.On("AddMember", int64(1), "bob", false).Return(&domain.Membership{}, nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "bob"}, nil)

	err := svc.Join(1, "bob")

	assert.NoError(t, err)
	assert.Len(t, deps.pusher.channelPushes, 1)
	assert.Equal(t, domain.ActionMemberJoined, deps.pusher.channelPushes[0].Push.Action)
	assert.Equal(t, "bob", deps.pusher.channelPushes[0].Exclude)
}

func TestJoin_PrivateChannelForbidden(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPrivate}, nil)

	err := svc.Join(1, "bob")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestJoin_ArchivedChannel(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPublic, Archived: true}, nil)

	err := svc.Join(1, "bob")
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestLeave(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.memberships.On("RemoveMember", int64(1), "bob").Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice"}, nil)

	err := svc.Leave(1, "bob")

	assert.NoError(t, err)
	assert.Len(t, deps.pusher.channelPushes, 1)
	assert.Equal(t, domain.ActionMemberLeft, deps.pusher.channelPushes[0].Push.Action)
}

func TestArchive_ChannelAdmin(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPublic}, nil)
	deps.memberships.On("FindActive", int64(1), "alice").Return(&domain.Membership{IsAdmin: true}, nil)
	deps.channels.On("Archive", int64(1)).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice", "bob"}, nil)

	err := svc.Archive(1, "alice")

	assert.NoError(t, err)
	assert.Len(t, deps.pusher.channelPushes, 1)
	assert.Equal(t, domain.ActionChannelArchived, deps.pusher.channelPushes[0].Push.Action)
}

func TestArchive_NonAdminForbidden(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPublic}, nil)
	deps.memberships.On("FindActive", int64(1), "bob").Return(&domain.Membership{IsAdmin: false}, nil)

	err := svc.Archive(1, "bob")
	assert.ErrorIs(t, err, common.ErrForbidden)
	deps.channels.AssertNotCalled(t, "Archive", mock.Anything)
}

func TestArchive_PermissionOverride(t *testing.T) {
	svc, deps := newChannelService(t)
	deps.perms.granted["staff:"+PermArchiveChannel] = true

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPublic}, nil)
	deps.memberships.On("FindActive", int64(1), "staff").Return(nil, common.ErrNotMember)
	deps.channels.On("Archive", int64(1)).Return(nil)
	deps.memberships.On("ActiveMemberIDs", int64(1)).Return([]string{"alice"}, nil)

	err := svc.Archive(1, "staff")
	assert.NoError(t, err)
}

func TestListMine_AnnotatesMembership(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.memberships.On("ListActiveByUser", "alice").Return([]*domain.Membership{
		{ChannelID: 1, UserID: "alice", UnreadCount: 4, Muted: true},
		{ChannelID: 2, UserID: "alice"},
	}, nil)
	deps.channels.On("ListByIDs", []int64{1, 2}).Return([]*domain.Channel{
		{ID: 1, Name: "general", Type: domain.ChannelPublic},
		{ID: 2, Name: "random", Type: domain.ChannelPublic},
	}, nil)

	responses, err := svc.ListMine("alice")

	assert.NoError(t, err)
	assert.Len(t, responses, 2)
	assert.Equal(t, 4, responses[0].UnreadCount)
	assert.True(t, responses[0].Muted)
	assert.Equal(t, 0, responses[1].UnreadCount)
}

func TestListMine_NoChannels(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.memberships.On("ListActiveByUser", "newbie").Return([]*domain.Membership{}, nil)

	responses, err := svc.ListMine("newbie")
	assert.NoError(t, err)
	assert.Empty(t, responses)
	deps.channels.AssertNotCalled(t, "ListByIDs", mock.Anything)
}

func TestAutoJoinPublicChannels_SkipsExisting(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("ListJoinable").Return([]*domain.Channel{
		{ID: 1, Type: domain.ChannelPublic},
		{ID: 2, Type: domain.ChannelAnnouncement},
	}, nil)
	deps.memberships.On("AddMember", int64(1), "newbie", false).Return(nil, common.ErrAlreadyMember)
	deps.memberships.On("AddMember", int64(2), "newbie", false).Return(&domain.Membership{}, nil)

	err := svc.AutoJoinPublicChannels("newbie")
	assert.NoError(t, err)
	deps.memberships.AssertExpectations(t)
}

func TestBackfillPublicChannels(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPublic}, nil)
	deps.members.On("ListUserIDs").Return([]string{"alice", "bob", "carol"}, nil)
	deps.memberships.On("AddMember", int64(1), "alice", false).Return(nil, common.ErrAlreadyMember)
	deps.memberships.On("AddMember", int64(1), "bob", false).Return(&domain.Membership{}, nil)
	deps.memberships.On("AddMember", int64(1), "carol", false).Return(&domain.Membership{}, nil)

	added, err := svc.BackfillPublicChannels(1)

	assert.NoError(t, err)
	assert.Equal(t, 2, added)
}

func TestBackfillPublicChannels_PrivateRejected(t *testing.T) {
	svc, deps := newChannelService(t)

	deps.channels.On("FindByID", int64(1)).Return(&domain.Channel{ID: 1, Type: domain.ChannelPrivate}, nil)

	_, err := svc.BackfillPublicChannels(1)
	assert.ErrorIs(t, err, common.ErrValidation)
}
