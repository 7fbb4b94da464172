package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxMessageLength bounds the content of a community message in characters.
const MaxMessageLength = 1000

// AnonymousDisplayName is rendered in place of the author for anonymous posts.
const AnonymousDisplayName = "Anonymous Student"

// Reaction types accepted on community messages.
const (
	ReactionLike     = "like"
	ReactionHeart    = "heart"
	ReactionFire     = "fire"
	ReactionLaugh    = "laugh"
	ReactionSad      = "sad"
	ReactionThinking = "thinking"
)

// ReactionTypes lists reaction types in display order.
var ReactionTypes = []string{ReactionLike, ReactionHeart, ReactionFire, ReactionLaugh, ReactionSad, ReactionThinking}

// IsReactionType reports whether value is one of the accepted reaction types.
func IsReactionType(value string) bool {
	for _, candidate := range ReactionTypes {
		if candidate == value {
			return true
		}
	}
	return false
}

// CommunityMessage is a post on the community board. A message with a ParentID is a reply;
// replies never carry their own replies.
//
// AuthorID always records who wrote the message. UserID mirrors it for public posts and is
// nil when the message was posted anonymously.
type CommunityMessage struct {
	ID          uint                      `gorm:"primaryKey" json:"id"`
	AuthorID    uint                      `gorm:"not null;index" json:"-"`
	UserID      *uint                     `gorm:"index" json:"user_id"`
	ParentID    *uint                     `gorm:"index" json:"parent_id"`
	Content     string                    `gorm:"type:text;not null" json:"content"`
	IsAnonymous bool                      `gorm:"not null;default:false" json:"is_anonymous"`
	IsPinned    bool                      `gorm:"not null;default:false;index" json:"is_pinned"`
	Topic       *string                   `gorm:"size:64;index" json:"topic"`
	Mentions    datatypes.JSONSlice[uint] `json:"mentions"`
	EditedAt    *time.Time                `json:"edited_at"`
	CreatedAt   time.Time                 `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// TableName pins the table name used by the portal.
func (CommunityMessage) TableName() string {
	return "community_messages"
}

// IsReply reports whether the message belongs to a parent thread.
func (m CommunityMessage) IsReply() bool {
	return m.ParentID != nil
}

// MessageReaction is one user's reaction of one type on a message.
type MessageReaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MessageID    uint      `gorm:"not null;uniqueIndex:idx_reaction_unique,priority:1" json:"message_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_reaction_unique,priority:2;index" json:"user_id"`
	ReactionType string    `gorm:"size:16;not null;uniqueIndex:idx_reaction_unique,priority:3" json:"reaction_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// MessageReadStatus marks a message as read by a user.
type MessageReadStatus struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MessageID uint      `gorm:"not null;uniqueIndex:idx_read_unique,priority:1" json:"message_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_read_unique,priority:2" json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// Notification represents a push notification targeted to a specific user.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;index" json:"user_id"`
	Type      string            `gorm:"size:64" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Link      string            `gorm:"size:255" json:"link"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
