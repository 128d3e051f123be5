package service

import (
	"errors"
	"time"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/pkg/logger"
)

// InvitationService business logic for channel invitations
type InvitationService interface {
	Create(inviterID string, req *domain.CreateInvitationRequest) (*domain.ChannelInvitation, error)
	Accept(invitationID int64, userID string) (*domain.Channel, error)
	Decline(invitationID int64, userID string) error
	Cancel(invitationID int64, userID string) error
	ListPending(userID string) ([]*domain.ChannelInvitation, error)
	ListSent(userID string) ([]*domain.ChannelInvitation, error)
	ExpirePending() (int64, error)
}

type invitationService struct {
	invitations repository.InvitationRepository
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	members     repository.MemberRepository
	pusher      Pusher
	now         func() time.Time
}

// NewInvitationService creates a new InvitationService
func NewInvitationService(
	invitations repository.InvitationRepository,
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	members repository.MemberRepository,
	pusher Pusher,
) InvitationService {
	return &invitationService{
		invitations: invitations,
		channels:    channels,
		memberships: memberships,
		members:     members,
		pusher:      pusher,
		now:         time.Now,
	}
}

// Create issues an invitation. The inviter must be a channel member,
// the invitee must exist and not already be a member, and at most one
// pending invitation may exist per (channel, invitee).
func (s *invitationService) Create(inviterID string, req *domain.CreateInvitationRequest) (*domain.ChannelInvitation, error) {
	channel, err := s.channels.FindByID(req.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel.Archived {
		return nil, common.ErrConflict
	}

	isMember, err := s.memberships.IsMember(req.ChannelID, inviterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, common.ErrNotMember
	}

	if _, err := s.members.FindByUserID(req.InviteeID); err != nil {
		return nil, err
	}

	inviteeIsMember, err := s.memberships.IsMember(req.ChannelID, req.InviteeID)
	if err != nil {
		return nil, err
	}
	if inviteeIsMember {
		return nil, common.ErrAlreadyMember
	}

	pending, err := s.invitations.HasPending(req.ChannelID, req.InviteeID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, common.ErrDuplicateInvitation
	}

	inv := &domain.ChannelInvitation{
		ChannelID: req.ChannelID,
		InviterID: inviterID,
		InviteeID: req.InviteeID,
		Status:    domain.InvitePending,
		Message:   req.Message,
		ExpiresAt: s.now().Add(domain.InvitationTTL),
	}
	if err := s.invitations.Create(inv); err != nil {
		return nil, err
	}

	s.pusher.SendToUser(req.InviteeID, domain.NewUserPush(domain.ActionInviteCreated, inv))

	logger.GetLogger().Info().
		Int64("invitation_id", inv.ID).
		Int64("channel_id", req.ChannelID).
		Str("inviter_id", inviterID).
		Str("invitee_id", req.InviteeID).
		Msg("invitation created")
	return inv, nil
}

// Accept moves a pending invitation to ACCEPTED and joins the invitee
// to the channel. Only the invitee may accept. Accepting a lapsed
// invitation marks it EXPIRED and reports a conflict.
func (s *invitationService) Accept(invitationID int64, userID string) (*domain.Channel, error) {
	inv, err := s.invitations.FindByID(invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != userID {
		return nil, common.ErrForbidden
	}
	if inv.Status.Terminal() {
		return nil, common.ErrInvalidTransition
	}

	if inv.Expired(s.now()) {
		// Lazy expiry: the sweep may not have run yet.
		if err := s.invitations.Transition(invitationID, domain.InviteExpired); err != nil {
			return nil, err
		}
		return nil, common.ErrInvitationExpired
	}

	if err := s.invitations.Transition(invitationID, domain.InviteAccepted); err != nil {
		return nil, err
	}

	if _, err := s.memberships.AddMember(inv.ChannelID, userID, false); err != nil && !errors.Is(err, common.ErrAlreadyMember) {
		return nil, err
	}

	channel, err := s.channels.FindByID(inv.ChannelID)
	if err != nil {
		return nil, err
	}

	s.pusher.SendToUser(inv.InviterID, domain.NewUserPush(domain.ActionInviteAccepted, map[string]interface{}{
		"invitation_id": invitationID,
		"channel_id":    inv.ChannelID,
		"invitee_id":    userID,
	}))

	memberIDs, err := s.memberships.ActiveMemberIDs(inv.ChannelID)
	if err != nil {
		return nil, err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMemberJoined, inv.ChannelID, map[string]interface{}{
		"channel_id": inv.ChannelID,
		"user_id":    userID,
	}), userID)
	return channel, nil
}

// Decline moves a pending invitation to DECLINED. Only the invitee may
// decline.
func (s *invitationService) Decline(invitationID int64, userID string) error {
	inv, err := s.invitations.FindByID(invitationID)
	if err != nil {
		return err
	}
	if inv.InviteeID != userID {
		return common.ErrForbidden
	}

	if err := s.invitations.Transition(invitationID, domain.InviteDeclined); err != nil {
		return err
	}

	s.pusher.SendToUser(inv.InviterID, domain.NewUserPush(domain.ActionInviteDeclined, map[string]interface{}{
		"invitation_id": invitationID,
		"channel_id":    inv.ChannelID,
		"invitee_id":    userID,
	}))
	return nil
}

// Cancel moves a pending invitation to CANCELLED. Only the inviter may
// cancel.
func (s *invitationService) Cancel(invitationID int64, userID string) error {
	inv, err := s.invitations.FindByID(invitationID)
	if err != nil {
		return err
	}
	if inv.InviterID != userID {
		return common.ErrForbidden
	}

	if err := s.invitations.Transition(invitationID, domain.InviteCancelled); err != nil {
		return err
	}

	s.pusher.SendToUser(inv.InviteeID, domain.NewUserPush(domain.ActionInviteCancelled, map[string]interface{}{
		"invitation_id": invitationID,
		"channel_id":    inv.ChannelID,
	}))
	return nil
}

// ListPending returns the invitations waiting on the user
func (s *invitationService) ListPending(userID string) ([]*domain.ChannelInvitation, error) {
	return s.invitations.ListPendingForInvitee(userID)
}

// ListSent returns the invitations the user has issued
func (s *invitationService) ListSent(userID string) ([]*domain.ChannelInvitation, error) {
	return s.invitations.ListByInviter(userID)
}

// ExpirePending moves every lapsed pending invitation to EXPIRED.
// Run by the scheduler; safe to run repeatedly.
func (s *invitationService) ExpirePending() (int64, error) {
	n, err := s.invitations.ExpireOlderThan(s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.GetLogger().Info().Int64("expired", n).Msg("invitation expiry sweep")
	}
	return n, nil
}
