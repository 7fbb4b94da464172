package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/payment"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// WeeklyEngagementPoint captures community activity per week.
type WeeklyEngagementPoint struct {
	WeekStart time.Time `json:"week_start"`
	Messages  int64     `json:"messages"`
	Replies   int64     `json:"replies"`
	Reactions int64     `json:"reactions"`
}

// CommunityAnalytics summarises the message board.
type CommunityAnalytics struct {
	TotalMessages  int64   `json:"total_messages"`
	TotalReplies   int64   `json:"total_replies"`
	AnonymousShare float64 `json:"anonymous_share"`
	PinnedMessages int64   `json:"pinned_messages"`
}

// EventAnalytics summarises events and ticket sales.
type EventAnalytics struct {
	TotalEvents     int64   `json:"total_events"`
	PublishedEvents int64   `json:"published_events"`
	PaidEvents      int64   `json:"paid_events"`
	TicketsSold     int64   `json:"tickets_sold"`
	TicketRevenue   float64 `json:"ticket_revenue"`
	CreationFees    float64 `json:"creation_fees"`
}

// AdminAnalyticsResponse aggregates analytics metrics for administrators.
type AdminAnalyticsResponse struct {
	Community        CommunityAnalytics      `json:"community"`
	Events           EventAnalytics          `json:"events"`
	Payments         payment.Status          `json:"payments"`
	WeeklyEngagement []WeeklyEngagementPoint `json:"weekly_engagement"`
	GeneratedAt      time.Time               `json:"generated_at"`
	CacheHit         bool                    `json:"cache_hit"`
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
	SinceDays  int
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID            uint                   `json:"id"`
	ActorID       uint                   `json:"actor_id"`
	ActorRole     string                 `json:"actor_role"`
	Action        string                 `json:"action"`
	EntityType    string                 `json:"entity_type"`
	EntityID      *uint                  `json:"entity_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:            entry.ID,
		ActorID:       entry.ActorID,
		ActorRole:     entry.ActorRole,
		Action:        entry.Action,
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		CorrelationID: entry.CorrelationID,
		Metadata:      metadataFromJSON(entry.Metadata),
		CreatedAt:     entry.CreatedAt,
	}
}

// NewPaginationMeta fills total pages from the item count.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: 1}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
		if meta.TotalPages == 0 {
			meta.TotalPages = 1
		}
	}
	return meta
}
