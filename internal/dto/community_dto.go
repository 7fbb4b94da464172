package dto

import "time"

// CommunityMessageCreateRequest is the payload to post a message or a reply.
type CommunityMessageCreateRequest struct {
	Content     string  `json:"content" validate:"required,min=1,max=1000"`
	ParentID    *uint   `json:"parent_id" validate:"omitempty,gt=0"`
	IsAnonymous bool    `json:"is_anonymous"`
	Topic       *string `json:"topic" validate:"omitempty,min=1,max=64"`
	Mentions    []uint  `json:"mentions" validate:"omitempty,max=20,dive,gt=0"`
}

// CommunityMessageUpdateRequest edits the content of an existing message.
type CommunityMessageUpdateRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// ReactionToggleRequest names the reaction to flip.
type ReactionToggleRequest struct {
	ReactionType string `json:"reaction_type" validate:"required,oneof=like heart fire laugh sad thinking"`
}

// CommunityMessageListQuery filters the top-level message board.
type CommunityMessageListQuery struct {
	Topic    string `query:"topic" validate:"omitempty,max=64"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// MessageAuthor is how the author of a message is displayed. Anonymous messages carry no id,
// no avatar and no profile link.
type MessageAuthor struct {
	ID             *uint  `json:"id,omitempty"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Role           string `json:"role,omitempty"`
	Badge          string `json:"badge,omitempty"`
	ProfileLink    bool   `json:"profile_link"`
	ProfileMissing bool   `json:"profile_missing,omitempty"`
}

// ReactionSummary aggregates one reaction type on a message.
type ReactionSummary struct {
	Type        string `json:"type"`
	Count       int64  `json:"count"`
	ReactedByMe bool   `json:"reacted_by_me"`
}

// MessageCapabilities lists what the viewer may do with a message.
type MessageCapabilities struct {
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanPin    bool `json:"can_pin"`
	CanReply  bool `json:"can_reply"`
}

// CommunityMessageResponse is a message as rendered for a specific viewer.
type CommunityMessageResponse struct {
	ID           uint                `json:"id"`
	ParentID     *uint               `json:"parent_id"`
	Content      string              `json:"content"`
	IsAnonymous  bool                `json:"is_anonymous"`
	IsPinned     bool                `json:"is_pinned"`
	Topic        *string             `json:"topic"`
	Mentions     []uint              `json:"mentions"`
	Author       MessageAuthor       `json:"author"`
	Reactions    []ReactionSummary   `json:"reactions"`
	ReplyCount   int64               `json:"reply_count"`
	IsRead       bool                `json:"is_read"`
	Capabilities MessageCapabilities `json:"capabilities"`
	EditedAt     *time.Time          `json:"edited_at"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CommunityMessageListResponse wraps a page of messages.
type CommunityMessageListResponse struct {
	Items      []CommunityMessageResponse `json:"items"`
	Pagination PaginationMeta             `json:"pagination"`
}

// ReactionToggleResponse reports the state after a toggle.
type ReactionToggleResponse struct {
	MessageID    uint              `json:"message_id"`
	ReactionType string            `json:"reaction_type"`
	Active       bool              `json:"active"`
	Reactions    []ReactionSummary `json:"reactions"`
}

// MarkReadRequest lists messages the viewer has seen.
type MarkReadRequest struct {
	MessageIDs []uint `json:"message_ids" validate:"required,min=1,max=200,dive,gt=0"`
}

// UnreadCountResponse carries the number of unread top-level messages.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// Live feed change types.
const (
	FeedMessageCreated  = "message.created"
	FeedMessageUpdated  = "message.updated"
	FeedMessageDeleted  = "message.deleted"
	FeedMessagePinned   = "message.pinned"
	FeedReactionChanged = "reaction.changed"
)

// LiveFeedEvent tells connected clients that something changed and they should refetch.
type LiveFeedEvent struct {
	Type      string    `json:"type"`
	MessageID uint      `json:"message_id"`
	ParentID  *uint     `json:"parent_id,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	At        time.Time `json:"at"`
}
