package service

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/pkg/logger"
)

// ChannelService business logic for channels and memberships
type ChannelService interface {
	Create(creatorID string, req *domain.CreateChannelRequest) (*domain.Channel, error)
	GetOrCreateDirectMessage(userID, otherUserID string) (*domain.Channel, error)
	Get(channelID int64) (*domain.Channel, error)
	Join(channelID int64, userID string) error
	Leave(channelID int64, userID string) error
	Archive(channelID int64, userID string) error
	IsMember(channelID int64, userID string) (bool, error)
	MemberIDs(channelID int64) ([]string, error)
	ListMine(userID string) ([]*domain.ChannelResponse, error)
	ListJoinable() ([]*domain.Channel, error)
	UpdatePreferences(channelID int64, userID string, prefs *domain.PreferencesRequest) error
	AutoJoinPublicChannels(userID string) error
	BackfillPublicChannels(channelID int64) (int, error)
}

type channelService struct {
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	members     repository.MemberRepository
	pusher      Pusher
	perms       PermissionChecker
}

// NewChannelService creates a new ChannelService
func NewChannelService(
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	members repository.MemberRepository,
	pusher Pusher,
	perms PermissionChecker,
) ChannelService {
	return &channelService{
		channels:    channels,
		memberships: memberships,
		members:     members,
		pusher:      pusher,
		perms:       perms,
	}
}

// Create creates a channel. The creator always becomes the first member
// and channel admin; additional initial members come from req.MemberIDs.
func (s *channelService) Create(creatorID string, req *domain.CreateChannelRequest) (*domain.Channel, error) {
	if !req.Type.Valid() {
		return nil, common.ErrValidation
	}
	if req.Type == domain.ChannelDirectMessage {
		// DM channels go through GetOrCreateDirectMessage so the dedup
		// key is always set.
		return nil, common.ErrValidation
	}

	memberIDs := []string{creatorID}
	for _, id := range req.MemberIDs {
		if id == creatorID {
			continue
		}
		memberIDs = append(memberIDs, id)
	}

	channel := &domain.Channel{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		CreatedBy:   creatorID,
		Active:      true,
	}
	if err := s.channels.Create(channel, memberIDs); err != nil {
		return nil, err
	}

	logger.GetLogger().Info().
		Int64("channel_id", channel.ID).
		Str("type", string(channel.Type)).
		Str("created_by", creatorID).
		Msg("channel created")

	for _, id := range memberIDs {
		if id == creatorID {
			continue
		}
		s.pusher.SendToUser(id, domain.NewUserPush(domain.ActionMemberJoined, channel.ToResponse(nil)))
	}
	return channel, nil
}

// GetOrCreateDirectMessage returns the one-on-one channel between the
// two users, creating it if no non-archived one exists. Repeated calls
// with the users in either order return the same channel.
func (s *channelService) GetOrCreateDirectMessage(userID, otherUserID string) (*domain.Channel, error) {
	if userID == otherUserID {
		return nil, common.ErrValidation
	}
	if _, err := s.members.FindByUserID(otherUserID); err != nil {
		return nil, err
	}

	dmKey := domain.DirectMessageKey(userID, otherUserID)
	existing, err := s.channels.FindActiveByDMKey(dmKey)
	if err != nil && !common.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	channel := &domain.Channel{
		Name:      dmKey,
		Type:      domain.ChannelDirectMessage,
		DMKey:     &dmKey,
		CreatedBy: userID,
		Active:    true,
	}
	if err := s.channels.Create(channel, []string{userID, otherUserID}); err != nil {
		return nil, err
	}
	s.pusher.SendToUser(otherUserID, domain.NewUserPush(domain.ActionMemberJoined, channel.ToResponse(nil)))
	return channel, nil
}

// Get returns a channel by ID
func (s *channelService) Get(channelID int64) (*domain.Channel, error) {
	return s.channels.FindByID(channelID)
}

// Join adds the user to the channel. Private and message channels are
// invitation-only; direct joining is limited to open channel types.
func (s *channelService) Join(channelID int64, userID string) error {
	channel, err := s.channels.FindByID(channelID)
	if err != nil {
		return err
	}
	if channel.Archived {
		return common.ErrConflict
	}
	switch channel.Type {
	case domain.ChannelPublic, domain.ChannelDepartment, domain.ChannelAnnouncement:
	default:
		return common.ErrForbidden
	}

	if _, err := s.memberships.AddMember(channelID, userID, false); err != nil {
		return err
	}

	memberIDs, err := s.memberships.ActiveMemberIDs(channelID)
	if err != nil {
		return err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMemberJoined, channelID, map[string]interface{}{
		"channel_id": channelID,
		"user_id":    userID,
	}), userID)
	return nil
}

// Leave removes the user from the channel (soft delete; the membership
// row is kept for unread bookkeeping on rejoin)
func (s *channelService) Leave(channelID int64, userID string) error {
	if err := s.memberships.RemoveMember(channelID, userID); err != nil {
		return err
	}

	memberIDs, err := s.memberships.ActiveMemberIDs(channelID)
	if err != nil {
		return err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMemberLeft, channelID, map[string]interface{}{
		"channel_id": channelID,
		"user_id":    userID,
	}), "")
	return nil
}

// Archive marks the channel archived. Only a channel admin or a user
// holding the archive permission may do so. Archiving a DM frees its
// dedup key for a future conversation.
func (s *channelService) Archive(channelID int64, userID string) error {
	if _, err := s.channels.FindByID(channelID); err != nil {
		return err
	}

	membership, err := s.memberships.FindActive(channelID, userID)
	isAdmin := err == nil && membership.IsAdmin
	if !isAdmin && !s.perms.HasPermission(userID, PermArchiveChannel) {
		return common.ErrForbidden
	}

	if err := s.channels.Archive(channelID); err != nil {
		return err
	}

	memberIDs, err := s.memberships.ActiveMemberIDs(channelID)
	if err != nil {
		return err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionChannelArchived, channelID, map[string]interface{}{
		"channel_id": channelID,
	}), "")

	logger.GetLogger().Info().
		Int64("channel_id", channelID).
		Str("user_id", userID).
		Msg("channel archived")
	return nil
}

// IsMember reports whether the user is an active member of the channel
func (s *channelService) IsMember(channelID int64, userID string) (bool, error) {
	return s.memberships.IsMember(channelID, userID)
}

// MemberIDs returns the channel's active member ids
func (s *channelService) MemberIDs(channelID int64) ([]string, error) {
	return s.memberships.ActiveMemberIDs(channelID)
}

// ListMine returns the caller's channels annotated with unread counts
// and per-channel preferences
func (s *channelService) ListMine(userID string) ([]*domain.ChannelResponse, error) {
	memberships, err := s.memberships.ListActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []*domain.ChannelResponse{}, nil
	}

	ids := make([]int64, 0, len(memberships))
	byChannel := make(map[int64]*domain.Membership, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.ChannelID)
		byChannel[m.ChannelID] = m
	}

	channels, err := s.channels.ListByIDs(ids)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.ChannelResponse, 0, len(channels))
	for _, c := range channels {
		responses = append(responses, c.ToResponse(byChannel[c.ID]))
	}
	return responses, nil
}

// ListJoinable returns the channels a user can join without an invitation
func (s *channelService) ListJoinable() ([]*domain.Channel, error) {
	return s.channels.ListJoinable()
}

// UpdatePreferences updates the caller's per-channel preferences
func (s *channelService) UpdatePreferences(channelID int64, userID string, prefs *domain.PreferencesRequest) error {
	return s.memberships.UpdatePreferences(channelID, userID, prefs)
}

// AutoJoinPublicChannels enrolls a user into every joinable public
// channel. Used when an account is provisioned. Already-joined channels
// are skipped.
func (s *channelService) AutoJoinPublicChannels(userID string) error {
	channels, err := s.channels.ListJoinable()
	if err != nil {
		return err
	}
	for _, c := range channels {
		_, err := s.memberships.AddMember(c.ID, userID, false)
		if err != nil && !errors.Is(err, common.ErrAlreadyMember) {
			return err
		}
	}
	return nil
}

// BackfillPublicChannels enrolls every known user into the channel.
// Used when a campus-wide channel is created after accounts exist.
// Returns how many members were added.
func (s *channelService) BackfillPublicChannels(channelID int64) (int, error) {
	channel, err := s.channels.FindByID(channelID)
	if err != nil {
		return 0, err
	}
	switch channel.Type {
	case domain.ChannelPublic, domain.ChannelAnnouncement:
	default:
		return 0, common.ErrValidation
	}

	userIDs, err := s.members.ListUserIDs()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, id := range userIDs {
		_, err := s.memberships.AddMember(channelID, id, false)
		if errors.Is(err, common.ErrAlreadyMember) {
			continue
		}
		if err != nil {
			return added, err
		}
		added++
	}

	logger.GetLogger().Info().
		Int64("channel_id", channelID).
		Int("added", added).
		Msg("public channel backfill complete")
	return added, nil
}
