package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/payment"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

const (
	analyticsCacheKey = "analytics:summary:v2"
	engagementWeeks   = 8
)

// AdminAnalyticsService aggregates analytics for the admin dashboard.
type AdminAnalyticsService interface {
	GetSummary(ctx context.Context, actor authz.Actor) (dto.AdminAnalyticsResponse, error)
}

type adminAnalyticsService struct {
	repo     repository.AdminAnalyticsRepository
	gateways repository.PaymentGatewayRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAdminAnalyticsService constructs the analytics service.
func NewAdminAnalyticsService(repo repository.AdminAnalyticsRepository, gateways repository.PaymentGatewayRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AdminAnalyticsService {
	return &adminAnalyticsService{
		repo:     repo,
		gateways: gateways,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "admin_analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *adminAnalyticsService) GetSummary(ctx context.Context, actor authz.Actor) (dto.AdminAnalyticsResponse, error) {
	if !actor.IsStaff() {
		return dto.AdminAnalyticsResponse{}, ErrForbidden
	}

	tracer := otel.Tracer("github.com/noah-isme/campus-portal-api/internal/service/admin_analytics")
	ctx, span := tracer.Start(ctx, "analytics.aggregate")
	span.SetAttributes(attribute.String("analytics.cache_key", analyticsCacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, analyticsCacheKey).Result()
		if err == nil {
			var response dto.AdminAnalyticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	now := s.now().UTC()
	since := startOfWeek(now).AddDate(0, 0, -7*(engagementWeeks-1))

	var (
		community repository.CommunityTotals
		events    repository.EventTotals
		messages  []repository.ActivityStamp
		reactions []time.Time
		status    payment.Status
	)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		community, err = s.repo.CommunityTotals(gctx)
		return err
	})
	group.Go(func() (err error) {
		events, err = s.repo.EventTotals(gctx)
		return err
	})
	group.Go(func() (err error) {
		messages, err = s.repo.MessagesSince(gctx, since)
		return err
	})
	group.Go(func() (err error) {
		reactions, err = s.repo.ReactionsSince(gctx, since)
		return err
	})
	if s.gateways != nil {
		group.Go(func() error {
			rows, err := s.gateways.List(gctx)
			if err != nil {
				return err
			}
			status = payment.Summarize(rows)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		return dto.AdminAnalyticsResponse{}, err
	}

	summary := dto.AdminAnalyticsResponse{
		Community: dto.CommunityAnalytics{
			TotalMessages:  community.Messages,
			TotalReplies:   community.Replies,
			AnonymousShare: share(community.Anonymous, community.Messages+community.Replies),
			PinnedMessages: community.Pinned,
		},
		Events: dto.EventAnalytics{
			TotalEvents:     events.Events,
			PublishedEvents: events.Published,
			PaidEvents:      events.Paid,
			TicketsSold:     events.TicketsSold,
			TicketRevenue:   events.TicketRevenue,
			CreationFees:    events.CreationFees,
		},
		Payments:         status,
		WeeklyEngagement: buildEngagement(since, messages, reactions),
		GeneratedAt:      now,
	}
	span.SetAttributes(
		attribute.Int64("analytics.messages", community.Messages),
		attribute.Int64("analytics.events", events.Events),
	)

	if s.cache != nil {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, analyticsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

// buildEngagement always returns engagementWeeks buckets, oldest first, including empty weeks.
func buildEngagement(since time.Time, messages []repository.ActivityStamp, reactions []time.Time) []dto.WeeklyEngagementPoint {
	points := make([]dto.WeeklyEngagementPoint, engagementWeeks)
	for i := range points {
		points[i].WeekStart = since.AddDate(0, 0, 7*i)
	}

	bucket := func(t time.Time) int {
		idx := int(startOfWeek(t).Sub(since).Hours() / (24 * 7))
		if idx < 0 || idx >= engagementWeeks {
			return -1
		}
		return idx
	}

	for _, message := range messages {
		if idx := bucket(message.CreatedAt); idx >= 0 {
			if message.IsReply {
				points[idx].Replies++
			} else {
				points[idx].Messages++
			}
		}
	}
	for _, reaction := range reactions {
		if idx := bucket(reaction); idx >= 0 {
			points[idx].Reactions++
		}
	}
	return points
}

func share(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func startOfWeek(t time.Time) time.Time {
	utc := t.UTC()
	weekday := int(utc.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := utc.AddDate(0, 0, -(weekday - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
