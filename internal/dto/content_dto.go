package dto

import (
	"time"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// BlogPostRequest creates or replaces a blog post.
type BlogPostRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Slug        string   `json:"slug" validate:"omitempty,max=160"`
	Excerpt     string   `json:"excerpt" validate:"omitempty,max=512"`
	Body        string   `json:"body" validate:"required,min=1"`
	CoverImage  string   `json:"cover_image" validate:"omitempty,url,max=512"`
	IsPublished bool     `json:"is_published"`
	IsPinned    bool     `json:"is_pinned"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=32"`
}

// BlogPostResponse represents a blog post returned to the frontend.
type BlogPostResponse struct {
	ID          uint       `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body"`
	CoverImage  string     `json:"cover_image"`
	AuthorID    uint       `json:"author_id"`
	IsPublished bool       `json:"is_published"`
	IsPinned    bool       `json:"is_pinned"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BlogListResponse contains paginated posts.
type BlogListResponse struct {
	Items      []BlogPostResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
	CacheHit   bool               `json:"cache_hit"`
}

// NewBlogPostResponse converts a post. The body is expected to be sanitised already.
func NewBlogPostResponse(model models.BlogPost) BlogPostResponse {
	tags := model.Tags
	if tags == nil {
		tags = []string{}
	}
	return BlogPostResponse{
		ID:          model.ID,
		Slug:        model.Slug,
		Title:       model.Title,
		Excerpt:     model.Excerpt,
		Body:        model.Body,
		CoverImage:  model.CoverImage,
		AuthorID:    model.AuthorID,
		IsPublished: model.IsPublished,
		IsPinned:    model.IsPinned,
		Tags:        tags,
		PublishedAt: model.PublishedAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// UploadResponse describes the stored asset metadata returned to the client.
type UploadResponse struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Checksum  string `json:"checksum"`
	FileName  string `json:"file_name"`
	Purpose   string `json:"purpose"`
}

// ProfileResponse is the caller's own profile with resolved role.
type ProfileResponse struct {
	ID             uint   `json:"id"`
	FullName       string `json:"full_name"`
	Email          string `json:"email,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	Role           string `json:"role"`
	Faculty        string `json:"faculty,omitempty"`
	Department     string `json:"department,omitempty"`
	ProfileMissing bool   `json:"profile_missing"`
	IsAdmin        bool   `json:"is_admin"`
	IsModerator    bool   `json:"is_moderator"`
}
