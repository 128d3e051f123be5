package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// MessageType classifies a message
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageFile   MessageType = "FILE"
	MessageImage  MessageType = "IMAGE"
	MessageSystem MessageType = "SYSTEM"
	MessageReply  MessageType = "REPLY"
)

// MessageStatus tracks delivery state
type MessageStatus string

const (
	StatusSending   MessageStatus = "SENDING"
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
	StatusFailed    MessageStatus = "FAILED"
)

// MentionList is a set of mentioned user ids, stored as a JSON array
type MentionList []string

// Contains reports whether userID is mentioned
func (m MentionList) Contains(userID string) bool {
	for _, id := range m {
		if id == userID {
			return true
		}
	}
	return false
}

// Value serializes for storage
func (m MentionList) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal([]string(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan deserializes from storage
func (m *MentionList) Scan(value interface{}) error {
	return scanJSON(value, (*[]string)(m), func() { *m = MentionList{} })
}

// ReceiptMap maps a user id to the time they read the message
type ReceiptMap map[string]time.Time

// Value serializes for storage
func (r ReceiptMap) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(map[string]time.Time(r))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan deserializes from storage
func (r *ReceiptMap) Scan(value interface{}) error {
	return scanJSON(value, (*map[string]time.Time)(r), func() { *r = ReceiptMap{} })
}

func scanJSON(value interface{}, dest interface{}, setEmpty func()) error {
	if value == nil {
		setEmpty()
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T as JSON column", value)
	}
	if len(raw) == 0 {
		setEmpty()
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// Message is a single channel message. Deleting clears the content and
// sets the deleted flag; the row persists for reply/thread integrity.
// ClientKey is the client-supplied idempotency key, unique among
// non-deleted messages (enforced by uniqueIndex at the storage layer).
type Message struct {
	ID         int64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UUID       string        `gorm:"column:uuid;size:36;uniqueIndex" json:"uuid"`
	ChannelID  int64         `gorm:"column:channel_id;index" json:"channel_id"`
	SenderID   string        `gorm:"column:sender_id;size:64;index" json:"sender_id"`
	Content    string        `gorm:"column:content;type:text" json:"content"`
	Type       MessageType   `gorm:"column:type;size:16" json:"type"`
	Status     MessageStatus `gorm:"column:status;size:16" json:"status"`
	ClientKey  string        `gorm:"column:client_key;size:64;uniqueIndex" json:"client_key,omitempty"`
	ReplyToID  *int64        `gorm:"column:reply_to_id" json:"reply_to_id,omitempty"`
	ReplyCount int           `gorm:"column:reply_count" json:"reply_count"`
	Mentions   MentionList   `gorm:"column:mentions;type:text" json:"mentions"`
	Reactions  ReactionSet   `gorm:"column:reactions;type:text" json:"reactions"`
	Receipts   ReceiptMap    `gorm:"column:receipts;type:text" json:"receipts,omitempty"`
	Pinned     bool          `gorm:"column:pinned;index" json:"pinned"`
	Important  bool          `gorm:"column:important" json:"important"`
	Edited     bool          `gorm:"column:edited" json:"edited"`
	Deleted    bool          `gorm:"column:deleted;index" json:"deleted"`

	// Attachment metadata, populated by the external upload component
	AttachmentName string `gorm:"column:attachment_name;size:255" json:"attachment_name,omitempty"`
	AttachmentType string `gorm:"column:attachment_type;size:128" json:"attachment_type,omitempty"`
	AttachmentSize int64  `gorm:"column:attachment_size" json:"attachment_size,omitempty"`
	AttachmentPath string `gorm:"column:attachment_path;size:512" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// SendMessageRequest is the payload for sending a message
type SendMessageRequest struct {
	ChannelID int64       `json:"channel_id" binding:"required"`
	Content   string      `json:"content" binding:"required"`
	Type      MessageType `json:"type"`
	ClientKey string      `json:"client_key"`
	ReplyToID *int64      `json:"reply_to_id"`
	Mentions  []string    `json:"mentions"`

	AttachmentName string `json:"attachment_name"`
	AttachmentType string `json:"attachment_type"`
	AttachmentSize int64  `json:"attachment_size"`
	AttachmentPath string `json:"-"`
}

// EditMessageRequest is the payload for editing a message
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// mentionPattern matches @username tokens, allowing dotted names like
// @jane.doe
var mentionPattern = regexp.MustCompile(`@(\w+(?:\.\w+)*)`)

// ParseMentionTokens extracts candidate mention tokens from message
// content. Tokens are returned without the leading @ and are not yet
// resolved to users.
func ParseMentionTokens(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		tokens = append(tokens, m[1])
	}
	return tokens
}
