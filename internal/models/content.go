package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// BlogPost is an article published on the portal news section.
type BlogPost struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Slug        string     `gorm:"size:160;uniqueIndex" json:"slug"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Excerpt     string     `gorm:"size:512" json:"excerpt"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	CoverImage  string     `gorm:"size:512" json:"cover_image"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	IsPublished bool       `gorm:"not null;default:false;index" json:"is_published"`
	IsPinned    bool       `gorm:"not null;default:false;index" json:"is_pinned"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	TagsRaw     string     `gorm:"column:tags;type:text" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Tags        []string   `gorm:"-" json:"tags"`
}

// BeforeSave normalises tag data before persisting.
func (b *BlogPost) BeforeSave(tx *gorm.DB) error {
	b.TagsRaw = encodeTags(b.Tags)
	return nil
}

// AfterFind hydrates tag list after retrieval.
func (b *BlogPost) AfterFind(tx *gorm.DB) error {
	b.Tags = decodeTags(b.TagsRaw)
	return nil
}

// tags are stored as |a|b| so a LIKE '%|tag|%' filter matches whole tags only
func encodeTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(strings.ToLower(tag))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeTags(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, "|")
}

// UploadRecord stores metadata about uploaded files.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	Purpose   string    `gorm:"size:32;not null;default:'event_image'" json:"purpose"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Checksum  string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
