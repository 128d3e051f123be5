package service

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/pkg/logger"
)

const defaultHistoryLimit = 50

// MessageService business logic for the message pipeline
type MessageService interface {
	Send(senderID string, req *domain.SendMessageRequest) (*domain.Message, error)
	Edit(messageID int64, userID string, req *domain.EditMessageRequest) (*domain.Message, error)
	Delete(messageID int64, userID string) error
	Pin(messageID int64, userID string, pinned bool) (*domain.Message, error)
	MarkAsRead(channelID int64, userID string, messageID int64) error
	History(channelID int64, userID string, beforeID int64, limit int) ([]*domain.Message, error)
	Pinned(channelID int64, userID string) ([]*domain.Message, error)
}

type messageService struct {
	messages    repository.MessageRepository
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	members     repository.MemberRepository
	pusher      Pusher
	perms       PermissionChecker
	now         func() time.Time
}

// NewMessageService creates a new MessageService
func NewMessageService(
	messages repository.MessageRepository,
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	members repository.MemberRepository,
	pusher Pusher,
	perms PermissionChecker,
) MessageService {
	return &messageService{
		messages:    messages,
		channels:    channels,
		memberships: memberships,
		members:     members,
		pusher:      pusher,
		perms:       perms,
		now:         time.Now,
	}
}

// Send runs the full send pipeline: membership check, client-key
// idempotency, reply resolution, mention resolution, persistence, and
// fan-out to the channel's other members.
func (s *messageService) Send(senderID string, req *domain.SendMessageRequest) (*domain.Message, error) {
	channel, err := s.channels.FindByID(req.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel.Archived {
		return nil, common.ErrConflict
	}

	isMember, err := s.memberships.IsMember(req.ChannelID, senderID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, common.ErrNotMember
	}

	// Resend with the same client key is rejected before any state
	// changes. The unique index on client_key backs this up under
	// concurrent resends.
	if req.ClientKey != "" {
		exists, err := s.messages.ExistsByClientKey(req.ClientKey)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, common.ErrDuplicateKey
		}
	}

	if req.ReplyToID != nil {
		parent, err := s.messages.FindByID(*req.ReplyToID)
		if err != nil {
			return nil, err
		}
		if parent.ChannelID != req.ChannelID {
			return nil, common.ErrValidation
		}
	}

	mentions, err := s.resolveMentions(req.ChannelID, req.Content, req.Mentions)
	if err != nil {
		return nil, err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	if req.ReplyToID != nil {
		msgType = domain.MessageReply
	}

	msg := &domain.Message{
		UUID:      uuid.New().String(),
		ChannelID: req.ChannelID,
		SenderID:  senderID,
		Content:   req.Content,
		Type:      msgType,
		Status:    domain.StatusSent,
		ClientKey: req.ClientKey,
		ReplyToID: req.ReplyToID,
		Mentions:  mentions,
		Reactions: domain.ReactionSet{},
		Receipts:  domain.ReceiptMap{},

		AttachmentName: req.AttachmentName,
		AttachmentType: req.AttachmentType,
		AttachmentSize: req.AttachmentSize,
		AttachmentPath: req.AttachmentPath,
	}
	// Every row needs a client key for the unique index; fall back to
	// the message UUID when the client did not supply one.
	if msg.ClientKey == "" {
		msg.ClientKey = msg.UUID
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, err
	}

	memberIDs, err := s.memberships.ActiveMemberIDs(req.ChannelID)
	if err != nil {
		return nil, err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMessageCreated, req.ChannelID, msg), senderID)

	logger.GetLogger().Debug().
		Int64("channel_id", req.ChannelID).
		Int64("message_id", msg.ID).
		Str("sender_id", senderID).
		Int("mentions", len(mentions)).
		Msg("message sent")
	return msg, nil
}

// resolveMentions resolves mention targets to users (by username first,
// then student number) and keeps only channel members. An explicit list
// is authoritative; content is parsed for @-tokens only when the client
// supplied none.
func (s *messageService) resolveMentions(channelID int64, content string, explicit []string) (domain.MentionList, error) {
	tokens := explicit
	if len(tokens) == 0 {
		tokens = domain.ParseMentionTokens(content)
	}

	seen := make(map[string]struct{}, len(tokens))
	resolved := domain.MentionList{}
	for _, token := range tokens {
		member, err := s.members.FindByUsername(token)
		if errors.Is(err, common.ErrUserNotFound) {
			member, err = s.members.FindByStudentNumber(token)
		}
		if errors.Is(err, common.ErrUserNotFound) {
			// Unresolvable tokens are dropped, not an error.
			continue
		}
		if err != nil {
			return nil, err
		}

		if _, dup := seen[member.UserID]; dup {
			continue
		}
		isMember, err := s.memberships.IsMember(channelID, member.UserID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			continue
		}
		seen[member.UserID] = struct{}{}
		resolved = append(resolved, member.UserID)
	}
	return resolved, nil
}

// Edit replaces the content of a message. Only the sender may edit;
// deleted messages cannot be edited.
func (s *messageService) Edit(messageID int64, userID string, req *domain.EditMessageRequest) (*domain.Message, error) {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return nil, err
	}
	if msg.Deleted {
		return nil, common.ErrMessageNotFound
	}
	if msg.SenderID != userID {
		return nil, common.ErrNotSender
	}

	if err := s.messages.UpdateContent(messageID, req.Content); err != nil {
		return nil, err
	}
	msg.Content = req.Content
	msg.Edited = true

	memberIDs, err := s.memberships.ActiveMemberIDs(msg.ChannelID)
	if err != nil {
		return nil, err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMessageUpdated, msg.ChannelID, msg), "")
	return msg, nil
}

// Delete soft-deletes a message. The sender may always delete their own;
// otherwise the caller needs the delete-any permission. Deleting twice
// is a no-op.
func (s *messageService) Delete(messageID int64, userID string) error {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg.Deleted {
		return nil
	}
	if msg.SenderID != userID && !s.perms.HasPermission(userID, PermDeleteAnyMessage) {
		return common.ErrNotSender
	}

	if err := s.messages.MarkDeleted(messageID); err != nil {
		return err
	}

	memberIDs, err := s.memberships.ActiveMemberIDs(msg.ChannelID)
	if err != nil {
		return err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMessageDeleted, msg.ChannelID, map[string]interface{}{
		"message_id": messageID,
		"channel_id": msg.ChannelID,
	}), "")

	logger.GetLogger().Info().
		Int64("message_id", messageID).
		Str("deleted_by", userID).
		Bool("own_message", msg.SenderID == userID).
		Msg("message deleted")
	return nil
}

// Pin pins or unpins a message. Any channel member may pin; pinning
// does not require being the sender.
func (s *messageService) Pin(messageID int64, userID string, pinned bool) (*domain.Message, error) {
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

	if err := s.messages.SetPinned(messageID, pinned); err != nil {
		return nil, err
	}
	msg.Pinned = pinned

	memberIDs, err := s.memberships.ActiveMemberIDs(msg.ChannelID)
	if err != nil {
		return nil, err
	}
	s.pusher.SendToChannelMembers(memberIDs, domain.NewChannelPush(domain.ActionMessagePinned, msg.ChannelID, map[string]interface{}{
		"message_id": messageID,
		"channel_id": msg.ChannelID,
		"pinned":     pinned,
		"pinned_by":  userID,
	}), "")
	return msg, nil
}

// MarkAsRead records a read receipt on the message and resets the
// reader's unread counter for the channel. Re-reading keeps the first
// receipt timestamp.
func (s *messageService) MarkAsRead(channelID int64, userID string, messageID int64) error {
	isMember, err := s.memberships.IsMember(channelID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return common.ErrNotMember
	}

	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return err
	}
	if msg.ChannelID != channelID {
		return common.ErrValidation
	}

	if err := s.messages.AddReceipt(messageID, userID, s.now()); err != nil {
		return err
	}
	if err := s.memberships.MarkRead(channelID, userID, messageID); err != nil {
		return err
	}

	// Read receipts go to the sender only; the rest of the channel does
	// not care who has read what.
	s.pusher.SendToUser(msg.SenderID, domain.NewUserPush(domain.ActionReadReceipt, map[string]interface{}{
		"message_id": messageID,
		"channel_id": channelID,
		"reader_id":  userID,
	}))
	return nil
}

// History returns channel messages before the given cursor, newest
// first. Callers must be channel members.
func (s *messageService) History(channelID int64, userID string, beforeID int64, limit int) ([]*domain.Message, error) {
	isMember, err := s.memberships.IsMember(channelID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, common.ErrNotMember
	}

	if limit < 1 || limit > 100 {
		limit = defaultHistoryLimit
	}
	return s.messages.History(channelID, beforeID, limit)
}

// Pinned returns the channel's pinned messages. Callers must be channel
// members.
func (s *messageService) Pinned(channelID int64, userID string) ([]*domain.Message, error) {
	isMember, err := s.memberships.IsMember(channelID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, common.ErrNotMember
	}
	return s.messages.PinnedByChannel(channelID)
}
