package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/observability"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

const blogCacheVersionKey = "blog:version"

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// BlogListQuery filters the public blog listing.
type BlogListQuery struct {
	Page     int
	PageSize int
	Tag      string
}

// BlogService exposes blog reads for visitors and writes for staff.
type BlogService interface {
	List(ctx context.Context, query BlogListQuery) (dto.BlogListResponse, error)
	AdminList(ctx context.Context, actor authz.Actor, query BlogListQuery) (dto.BlogListResponse, error)
	GetBySlug(ctx context.Context, viewer authz.Actor, slug string) (dto.BlogPostResponse, error)
	Create(ctx context.Context, actor authz.Actor, req dto.BlogPostRequest) (dto.BlogPostResponse, error)
	Update(ctx context.Context, actor authz.Actor, id uint, req dto.BlogPostRequest) (dto.BlogPostResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
}

type blogService struct {
	repo      repository.BlogRepository
	cache     *redis.Client
	ttl       time.Duration
	activity  ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	policy    *bluemonday.Policy
	now       func() time.Time
}

// NewBlogService constructs the blog service.
func NewBlogService(repo repository.BlogRepository, cache *redis.Client, ttl time.Duration, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) BlogService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("p", "strong", "em", "a", "ul", "ol", "li", "br", "h2", "h3", "blockquote")
	policy.AllowAttrs("href", "title", "target").OnElements("a")
	return &blogService{
		repo:      repo,
		cache:     cache,
		ttl:       ttl,
		activity:  activity,
		validator: validate,
		logger:    logger.With().Str("component", "blog_service").Logger(),
		policy:    policy,
		now:       time.Now,
	}
}

func (s *blogService) List(ctx context.Context, query BlogListQuery) (dto.BlogListResponse, error) {
	start := time.Now()
	defer func() {
		observability.BlogLatency().Observe(time.Since(start).Seconds())
	}()

	page, pageSize := normalizePage(query.Page, query.PageSize, 10)
	tag := strings.ToLower(strings.TrimSpace(query.Tag))

	cacheKey := ""
	if s.cache != nil {
		cacheKey = fmt.Sprintf("blog:list:v%d:%d:%d:%s", s.cacheVersion(ctx), page, pageSize, tag)
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.BlogListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.BlogRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		}
	}

	response, err := s.list(ctx, repository.BlogFilter{Page: page, PageSize: pageSize, Tag: tag, PublishedOnly: true})
	if err != nil {
		observability.BlogRequests().WithLabelValues("error").Inc()
		return dto.BlogListResponse{}, err
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache blog posts")
			}
		}
	}

	observability.BlogRequests().WithLabelValues("miss").Inc()
	return response, nil
}

func (s *blogService) AdminList(ctx context.Context, actor authz.Actor, query BlogListQuery) (dto.BlogListResponse, error) {
	if !authz.CanManageContent(actor) {
		return dto.BlogListResponse{}, ErrForbidden
	}
	page, pageSize := normalizePage(query.Page, query.PageSize, 20)
	return s.list(ctx, repository.BlogFilter{Page: page, PageSize: pageSize, Tag: strings.ToLower(strings.TrimSpace(query.Tag))})
}

func (s *blogService) list(ctx context.Context, filter repository.BlogFilter) (dto.BlogListResponse, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.BlogListResponse{}, err
	}

	responses := make([]dto.BlogPostResponse, 0, len(items))
	for _, item := range items {
		item.Body = s.policy.Sanitize(item.Body)
		responses = append(responses, dto.NewBlogPostResponse(item))
	}
	return dto.BlogListResponse{
		Items:      responses,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *blogService) GetBySlug(ctx context.Context, viewer authz.Actor, slug string) (dto.BlogPostResponse, error) {
	post, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return dto.BlogPostResponse{}, err
	}
	if !post.IsPublished && !authz.CanManageContent(viewer) {
		return dto.BlogPostResponse{}, gorm.ErrRecordNotFound
	}
	post.Body = s.policy.Sanitize(post.Body)
	return dto.NewBlogPostResponse(post), nil
}

func (s *blogService) Create(ctx context.Context, actor authz.Actor, req dto.BlogPostRequest) (dto.BlogPostResponse, error) {
	if !authz.CanManageContent(actor) {
		return dto.BlogPostResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.BlogPostResponse{}, err
	}

	post := models.BlogPost{AuthorID: actor.ID}
	if err := s.apply(ctx, &post, req); err != nil {
		return dto.BlogPostResponse{}, err
	}
	if err := s.repo.Create(ctx, &post); err != nil {
		return dto.BlogPostResponse{}, err
	}

	s.invalidate(ctx)
	s.audit(ctx, actor, "blog.created", post.ID, post.Slug)
	return dto.NewBlogPostResponse(post), nil
}

func (s *blogService) Update(ctx context.Context, actor authz.Actor, id uint, req dto.BlogPostRequest) (dto.BlogPostResponse, error) {
	if !authz.CanManageContent(actor) {
		return dto.BlogPostResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.BlogPostResponse{}, err
	}

	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.BlogPostResponse{}, err
	}
	if err := s.apply(ctx, &post, req); err != nil {
		return dto.BlogPostResponse{}, err
	}
	if err := s.repo.Update(ctx, &post); err != nil {
		return dto.BlogPostResponse{}, err
	}

	s.invalidate(ctx)
	s.audit(ctx, actor, "blog.updated", post.ID, post.Slug)
	return dto.NewBlogPostResponse(post), nil
}

func (s *blogService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	if !authz.CanManageContent(actor) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.audit(ctx, actor, "blog.deleted", id, "")
	return nil
}

func (s *blogService) apply(ctx context.Context, post *models.BlogPost, req dto.BlogPostRequest) error {
	slug := Slugify(req.Slug)
	if slug == "" {
		slug = Slugify(req.Title)
	}
	if slug == "" {
		return fmt.Errorf("slug cannot be derived from title")
	}

	existing, err := s.repo.FindBySlug(ctx, slug)
	switch {
	case err == nil && existing.ID != post.ID:
		return ErrSlugTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	post.Slug = slug
	post.Title = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(req.Title))
	post.Excerpt = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(req.Excerpt))
	post.Body = s.policy.Sanitize(req.Body)
	post.CoverImage = strings.TrimSpace(req.CoverImage)
	post.IsPinned = req.IsPinned
	post.Tags = req.Tags

	if req.IsPublished && post.PublishedAt == nil {
		published := s.now().UTC()
		post.PublishedAt = &published
	}
	if !req.IsPublished {
		post.PublishedAt = nil
	}
	post.IsPublished = req.IsPublished
	return nil
}

// cacheVersion is bumped on every write so stale list pages are never read again.
func (s *blogService) cacheVersion(ctx context.Context) int64 {
	version, err := s.cache.Get(ctx, blogCacheVersionKey).Int64()
	if err != nil {
		return 0
	}
	return version
}

func (s *blogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, blogCacheVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate blog cache")
	}
}

func (s *blogService) audit(ctx context.Context, actor authz.Actor, action string, id uint, slug string) {
	if s.activity == nil {
		return
	}
	entityID := id
	if _, err := s.activity.Record(ctx, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "blog_post",
		EntityID:   &entityID,
		Metadata:   map[string]interface{}{"slug": slug},
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record blog activity")
	}
}

// Slugify lower-cases value and joins its alphanumeric runs with dashes.
func Slugify(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 160 {
		slug = strings.TrimRight(slug[:160], "-")
	}
	return slug
}
