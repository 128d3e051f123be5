package repository

import (
	"errors"
	"time"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository message data access interface
type MessageRepository interface {
	Create(msg *domain.Message) error
	FindByID(id int64) (*domain.Message, error)
	ExistsByClientKey(clientKey string) (bool, error)
	UpdateContent(id int64, content string) error
	MarkDeleted(id int64) error
	SetPinned(id int64, pinned bool) error
	SaveReactions(id int64, reactions domain.ReactionSet) error
	AddReceipt(id int64, userID string, at time.Time) error
	History(channelID int64, beforeID int64, limit int) ([]*domain.Message, error)
	PinnedByChannel(channelID int64) ([]*domain.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create persists a message together with its channel-level side effects:
// the channel's message counter and last-message time, the unread counter
// on every other active membership, and the parent's reply counter for
// replies. One transaction so a failed insert leaves no counters behind.
func (r *messageRepository) Create(msg *domain.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Channel{}).Where("id = ?", msg.ChannelID).
			UpdateColumns(map[string]interface{}{
				"message_count":   gorm.Expr("message_count + 1"),
				"last_message_at": msg.CreatedAt,
			}).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Membership{}).
			Where("channel_id = ? AND user_id <> ? AND active = ?", msg.ChannelID, msg.SenderID, true).
			UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error; err != nil {
			return err
		}

		if msg.ReplyToID != nil {
			if err := tx.Model(&domain.Message{}).Where("id = ?", *msg.ReplyToID).
				UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a message by ID
func (r *messageRepository) FindByID(id int64) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ExistsByClientKey checks the idempotency key against non-deleted
// messages. The unique index on client_key is the real guard; this check
// gives the caller a clean ConflictError before hitting it.
func (r *messageRepository) ExistsByClientKey(clientKey string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).
		Where("client_key = ? AND deleted = ?", clientKey, false).
		Count(&count).Error
	return count > 0, err
}

// UpdateContent edits a message and stamps the edited marker
func (r *messageRepository) UpdateContent(id int64, content string) error {
	result := r.db.Model(&domain.Message{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content": content,
			"edited":  true,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrMessageNotFound
	}
	return nil
}

// MarkDeleted clears the content and sets the deleted flag. The row stays
// for reply integrity; the client key is rewritten to the message UUID so
// the original key becomes reusable.
func (r *messageRepository) MarkDeleted(id int64) error {
	result := r.db.Model(&domain.Message{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{
			"content":    "",
			"deleted":    true,
			"client_key": gorm.Expr("uuid"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrMessageNotFound
	}
	return nil
}

// SetPinned flips the pinned flag
func (r *messageRepository) SetPinned(id int64, pinned bool) error {
	result := r.db.Model(&domain.Message{}).
		Where("id = ? AND deleted = ?", id, false).
		Update("pinned", pinned)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrMessageNotFound
	}
	return nil
}

// SaveReactions persists the canonical reaction structure
func (r *messageRepository) SaveReactions(id int64, reactions domain.ReactionSet) error {
	return r.db.Model(&domain.Message{}).
		Where("id = ?", id).
		Update("reactions", reactions).Error
}

// AddReceipt records a per-user read timestamp on the message. The
// read-modify-write runs inside a transaction with a fresh row read.
func (r *messageRepository) AddReceipt(id int64, userID string, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var msg domain.Message
		if err := tx.Where("id = ?", id).First(&msg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrMessageNotFound
			}
			return err
		}

		if msg.Receipts == nil {
			msg.Receipts = domain.ReceiptMap{}
		}
		if _, seen := msg.Receipts[userID]; seen {
			return nil
		}
		msg.Receipts[userID] = at

		return tx.Model(&domain.Message{}).Where("id = ?", id).
			Update("receipts", msg.Receipts).Error
	})
}

// History returns messages older than beforeID, newest first. beforeID 0
// starts from the tip. This is the client catch-up path after missed
// pushes.
func (r *messageRepository) History(channelID int64, beforeID int64, limit int) ([]*domain.Message, error) {
	query := r.db.Where("channel_id = ?", channelID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var messages []*domain.Message
	err := query.Order("id DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

// PinnedByChannel returns the channel's pinned, non-deleted messages
func (r *messageRepository) PinnedByChannel(channelID int64) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := r.db.Where("channel_id = ? AND pinned = ? AND deleted = ?", channelID, true, false).
		Order("id DESC").Find(&messages).Error
	return messages, err
}
