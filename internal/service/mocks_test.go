package service

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/campuslink/campuslink-backend/internal/domain"
)

// --- Mock ChannelRepository ---

type mockChannelRepo struct {
	mock.Mock
}

func (m *mockChannelRepo) Create(channel *domain.Channel, memberIDs []string) error {
	return m.Called(channel, memberIDs).Error(0)
}

func (m *mockChannelRepo) FindByID(id int64) (*domain.Channel, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *mockChannelRepo) FindActiveByDMKey(dmKey string) (*domain.Channel, error) {
	args := m.Called(dmKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Channel), args.Error(1)
}

func (m *mockChannelRepo) ListJoinable() ([]*domain.Channel, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Channel), args.Error(1)
}

func (m *mockChannelRepo) ListByIDs(ids []int64) ([]*domain.Channel, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Channel), args.Error(1)
}

func (m *mockChannelRepo) Archive(id int64) error {
	return m.Called(id).Error(0)
}

// --- Mock MembershipRepository ---

type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) FindActive(channelID int64, userID string) (*domain.Membership, error) {
	args := m.Called(channelID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) IsMember(channelID int64, userID string) (bool, error) {
	args := m.Called(channelID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockMembershipRepo) AddMember(channelID int64, userID string, isAdmin bool) (*domain.Membership, error) {
	args := m.Called(channelID, userID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) RemoveMember(channelID int64, userID string) error {
	return m.Called(channelID, userID).Error(0)
}

func (m *mockMembershipRepo) ActiveMemberIDs(channelID int64) ([]string, error) {
	args := m.Called(channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockMembershipRepo) ListActiveByUser(userID string) ([]*domain.Membership, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Membership), args.Error(1)
}

func (m *mockMembershipRepo) UpdatePreferences(channelID int64, userID string, prefs *domain.PreferencesRequest) error {
	return m.Called(channelID, userID, prefs).Error(0)
}

func (m *mockMembershipRepo) MarkRead(channelID int64, userID string, messageID int64) error {
	return m.Called(channelID, userID, messageID).Error(0)
}

// --- Mock MemberRepository ---

type mockMemberRepo struct {
	mock.Mock
}

func (m *mockMemberRepo) FindByUserID(userID string) (*domain.Member, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *mockMemberRepo) FindByUsername(username string) (*domain.Member, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *mockMemberRepo) FindByStudentNumber(studentNumber string) (*domain.Member, error) {
	args := m.Called(studentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *mockMemberRepo) ListUserIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock MessageRepository ---

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(msg *domain.Message) error {
	return m.Called(msg).Error(0)
}

func (m *mockMessageRepo) FindByID(id int64) (*domain.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *mockMessageRepo) ExistsByClientKey(clientKey string) (bool, error) {
	args := m.Called(clientKey)
	return args.Bool(0), args.Error(1)
}

func (m *mockMessageRepo) UpdateContent(id int64, content string) error {
	return m.Called(id, content).Error(0)
}

func (m *mockMessageRepo) MarkDeleted(id int64) error {
	return m.Called(id).Error(0)
}

func (m *mockMessageRepo) SetPinned(id int64, pinned bool) error {
	return m.Called(id, pinned).Error(0)
}

func (m *mockMessageRepo) SaveReactions(id int64, reactions domain.ReactionSet) error {
	return m.Called(id, reactions).Error(0)
}

func (m *mockMessageRepo) AddReceipt(id int64, userID string, at time.Time) error {
	return m.Called(id, userID, at).Error(0)
}

func (m *mockMessageRepo) History(channelID int64, beforeID int64, limit int) ([]*domain.Message, error) {
	args := m.Called(channelID, beforeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *mockMessageRepo) PinnedByChannel(channelID int64) ([]*domain.Message, error) {
	args := m.Called(channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// --- Mock InvitationRepository ---

type mockInvitationRepo struct {
	mock.Mock
}

func (m *mockInvitationRepo) Create(inv *domain.ChannelInvitation) error {
	return m.Called(inv).Error(0)
}

func (m *mockInvitationRepo) FindByID(id int64) (*domain.ChannelInvitation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelInvitation), args.Error(1)
}

func (m *mockInvitationRepo) HasPending(channelID int64, inviteeID string) (bool, error) {
	args := m.Called(channelID, inviteeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInvitationRepo) Transition(id int64, to domain.InvitationStatus) error {
	return m.Called(id, to).Error(0)
}

func (m *mockInvitationRepo) ExpireOlderThan(now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvitationRepo) ListPendingForInvitee(inviteeID string) ([]*domain.ChannelInvitation, error) {
	args := m.Called(inviteeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChannelInvitation), args.Error(1)
}

func (m *mockInvitationRepo) ListByInviter(inviterID string) ([]*domain.ChannelInvitation, error) {
	args := m.Called(inviterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChannelInvitation), args.Error(1)
}

// --- Mock AlertRepository ---

type mockAlertRepo struct {
	mock.Mock
}

func (m *mockAlertRepo) Create(alert *domain.EmergencyAlert) error {
	return m.Called(alert).Error(0)
}

func (m *mockAlertRepo) FindByID(id int64) (*domain.EmergencyAlert, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmergencyAlert), args.Error(1)
}

func (m *mockAlertRepo) FindByUUID(uuid string) (*domain.EmergencyAlert, error) {
	args := m.Called(uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmergencyAlert), args.Error(1)
}

func (m *mockAlertRepo) ListActive() ([]*domain.EmergencyAlert, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmergencyAlert), args.Error(1)
}

func (m *mockAlertRepo) ListCritical() ([]*domain.EmergencyAlert, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmergencyAlert), args.Error(1)
}

func (m *mockAlertRepo) Cancel(id int64, at time.Time) error {
	return m.Called(id, at).Error(0)
}

func (m *mockAlertRepo) Acknowledge(id int64, userID string) (*domain.EmergencyAlert, error) {
	args := m.Called(id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmergencyAlert), args.Error(1)
}

func (m *mockAlertRepo) AllClear(record *domain.EmergencyAlert, at time.Time) error {
	return m.Called(record, at).Error(0)
}

func (m *mockAlertRepo) DeactivateStale(olderThan time.Time) (int64, error) {
	args := m.Called(olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Pusher ---

// mockPusher records pushes instead of asserting call expectations;
// most tests only care what went out, not how.
type mockPusher struct {
	userPushes      []recordedUserPush
	channelPushes   []recordedChannelPush
	broadcastPushes []*domain.Push
}

type recordedUserPush struct {
	UserID string
	Push   *domain.Push
}

type recordedChannelPush struct {
	MemberIDs []string
	Exclude   string
	Push      *domain.Push
}

func (p *mockPusher) SendToUser(userID string, push *domain.Push) {
	p.userPushes = append(p.userPushes, recordedUserPush{UserID: userID, Push: push})
}

func (p *mockPusher) SendToChannelMembers(memberIDs []string, push *domain.Push, excludeUserID string) {
	p.channelPushes = append(p.channelPushes, recordedChannelPush{MemberIDs: memberIDs, Exclude: excludeUserID, Push: push})
}

func (p *mockPusher) BroadcastAll(push *domain.Push) {
	p.broadcastPushes = append(p.broadcastPushes, push)
}

// --- Mock PermissionChecker ---

type mockPerms struct {
	granted map[string]bool
}

func newMockPerms(grants ...string) *mockPerms {
	m := &mockPerms{granted: make(map[string]bool)}
	for _, g := range grants {
		m.granted[g] = true
	}
	return m
}

func (m *mockPerms) HasPermission(userID, permission string) bool {
	return m.granted[userID+":"+permission]
}
