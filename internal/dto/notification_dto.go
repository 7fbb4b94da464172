package dto

import (
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// Notification types produced by the portal.
const (
	NotificationReply     = "community.reply"
	NotificationMention   = "community.mention"
	NotificationBroadcast = "admin.broadcast"
)

// NotificationCreateRequest describes the payload to create a notification.
type NotificationCreateRequest struct {
	UserID   string                 `json:"user_id" validate:"required,max=64"`
	Type     string                 `json:"type" validate:"required,max=64"`
	Message  string                 `json:"message" validate:"required,min=1,max=2000"`
	Link     string                 `json:"link" validate:"omitempty,max=255"`
	Metadata map[string]interface{} `json:"metadata"`
}

// NotificationBroadcastRequest sends the same notification to several users.
type NotificationBroadcastRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=500,dive,required,max=64"`
	Message string   `json:"message" validate:"required,min=1,max=2000"`
	Link    string   `json:"link" validate:"omitempty,max=255"`
}

// NotificationBroadcastResponse reports how many notifications were stored.
type NotificationBroadcastResponse struct {
	Delivered int `json:"delivered"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Link      string                 `json:"link,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      model.Type,
		Message:   model.Message,
		Link:      model.Link,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if len(model.Metadata) > 0 {
		response.Metadata = metadataFromJSON(model.Metadata)
	}
	return response
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
