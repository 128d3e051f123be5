package service

import (
	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/repository"
)

// ReactionService business logic for message reactions
type ReactionService interface {
	Add(messageID int64, userID, emoji string) (domain.ReactionSet, error)
	Remove(messageID int64, userID, emoji string) (domain.ReactionSet, error)
	Toggle(messageID int64, userID, emoji string) (domain.ReactionSet, error)
}

type reactionService struct {
	messages    repository.MessageRepository
	memberships repository.MembershipRepository
	pusher      Pusher
}

// NewReactionService creates a new ReactionService
func NewReactionService(
	messages repository.MessageRepository,
	memberships repository.MembershipRepository,
	pusher Pusher,
) ReactionService {
	return &reactionService{
		messages:    messages,
		memberships: memberships,
		pusher:      pusher,
	}
}

// Add records the user's reaction. Adding a reaction the user already
// holds is a no-op.
func (s *reactionService) Add(messageID int64, userID, emoji string) (domain.ReactionSet, error) {
	return s.update(messageID, userID, func(set domain.ReactionSet) {
		set.Add(emoji, userID)
	})
}

// Remove withdraws the user's reaction. Removing an absent reaction is
// a no-op.
func (s *reactionService) Remove(messageID int64, userID, emoji string) (domain.ReactionSet, error) {
	return s.update(messageID, userID, func(set domain.ReactionSet) {
		set.Remove(emoji, userID)
	})
}

// Toggle flips the user's reaction for the emoji
func (s *reactionService) Toggle(messageID int64, userID, emoji string) (domain.ReactionSet, error) {
	return s.update(messageID, userID, func(set domain.ReactionSet) {
		set.Toggle(emoji, userID)
	})
}

func (s *reactionService) update(messageID int64, userID string, apply func(domain.ReactionSet)) (domain.ReactionSet, error) {
	if userID == "" {
		return nil, common.ErrValidation
	}

	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, common.ErrMessageNotFound
	}

	isMember, err := s.memberships.IsMember(msg.ChannelID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, common.ErrNotMember
	}

	if msg.Reactions == nil {
		msg.Reactions = domain.ReactionSet{}
	}
	apply(msg.Reactions)

	if err := s.messages.SaveReactions(messageID, msg.Reactions); err != nil {
		return nil, err
	}

	memberIDs, err := s.memberships.ActiveMemberIDs(msg.ChannelID)
	if err != nil {
		return nil, err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionReactionUpdated, msg.ChannelID, map[string]interface{}{
		"message_id": messageID,
		"channel_id": msg.ChannelID,
		"reactions":  msg.Reactions,
	}), "")
	return msg.Reactions, nil
}
