package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// BlogFilter filters blog post list queries.
type BlogFilter struct {
	Page          int
	PageSize      int
	Tag           string
	PublishedOnly bool
}

// BlogRepository exposes persistence helpers for blog posts.
type BlogRepository interface {
	List(ctx context.Context, filter BlogFilter) ([]models.BlogPost, int64, error)
	FindBySlug(ctx context.Context, slug string) (models.BlogPost, error)
	FindByID(ctx context.Context, id uint) (models.BlogPost, error)
	Create(ctx context.Context, post *models.BlogPost) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, id uint) error
}

type blogRepository struct {
	db *gorm.DB
}

// NewBlogRepository constructs the repository implementation.
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) List(ctx context.Context, filter BlogFilter) ([]models.BlogPost, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
		query = query.Where("tags LIKE ?", "%|"+tag+"|%")
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.BlogPost
	if err := paginate(query, filter.Page, filter.PageSize).
		Order("is_pinned DESC, published_at DESC, id DESC").
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *blogRepository) FindBySlug(ctx context.Context, slug string) (models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error; err != nil {
		return models.BlogPost{}, err
	}
	return post, nil
}

func (r *blogRepository) FindByID(ctx context.Context, id uint) (models.BlogPost, error) {
	var post models.BlogPost
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return models.BlogPost{}, err
	}
	return post, nil
}

func (r *blogRepository) Create(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *blogRepository) Update(ctx context.Context, post *models.BlogPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *blogRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.BlogPost{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
