package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/observability"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

// CommunityService implements the community message board.
type CommunityService interface {
	List(ctx context.Context, viewer authz.Actor, query dto.CommunityMessageListQuery) (dto.CommunityMessageListResponse, error)
	Replies(ctx context.Context, viewer authz.Actor, parentID uint) ([]dto.CommunityMessageResponse, error)
	Get(ctx context.Context, viewer authz.Actor, id uint) (dto.CommunityMessageResponse, error)
	Post(ctx context.Context, actor authz.Actor, req dto.CommunityMessageCreateRequest) (dto.CommunityMessageResponse, error)
	Edit(ctx context.Context, actor authz.Actor, id uint, req dto.CommunityMessageUpdateRequest) (dto.CommunityMessageResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id uint) error
	TogglePin(ctx context.Context, actor authz.Actor, id uint) (dto.CommunityMessageResponse, error)
	ToggleReaction(ctx context.Context, actor authz.Actor, id uint, req dto.ReactionToggleRequest) (dto.ReactionToggleResponse, error)
	QuickReact(ctx context.Context, actor authz.Actor, id uint) (dto.ReactionToggleResponse, error)
	MarkRead(ctx context.Context, actor authz.Actor, ids []uint) error
	UnreadCount(ctx context.Context, actor authz.Actor) (dto.UnreadCountResponse, error)
}

// CommunityDeps groups the optional collaborators of the community service.
type CommunityDeps struct {
	Notifier NotificationPublisher
	Feed     FeedPublisher
	Activity ActivityRecorder
	Lock     *repository.KeyLock
}

type communityService struct {
	repo      repository.CommunityRepository
	profiles  repository.ProfileRepository
	deps      CommunityDeps
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewCommunityService constructs the community service.
func NewCommunityService(repo repository.CommunityRepository, profiles repository.ProfileRepository, deps CommunityDeps, validate *validator.Validate, logger zerolog.Logger) CommunityService {
	return &communityService{
		repo:      repo,
		profiles:  profiles,
		deps:      deps,
		validator: validate,
		logger:    logger.With().Str("component", "community_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/campus-portal-api/internal/service/community"),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *communityService) List(ctx context.Context, viewer authz.Actor, query dto.CommunityMessageListQuery) (dto.CommunityMessageListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.CommunityMessageListResponse{}, err
	}
	page, pageSize := normalizePage(query.Page, query.PageSize, 20)

	messages, total, err := s.repo.ListTopLevel(ctx, repository.CommunityFilter{
		Topic:    strings.ToLower(strings.TrimSpace(query.Topic)),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.CommunityMessageListResponse{}, err
	}

	items, err := s.enrich(ctx, viewer, messages)
	if err != nil {
		return dto.CommunityMessageListResponse{}, err
	}

	return dto.CommunityMessageListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *communityService) Replies(ctx context.Context, viewer authz.Actor, parentID uint) ([]dto.CommunityMessageResponse, error) {
	parent, err := s.repo.FindByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsReply() {
		return nil, ErrNestedReply
	}

	replies, err := s.repo.ListReplies(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, viewer, replies)
}

func (s *communityService) Get(ctx context.Context, viewer authz.Actor, id uint) (dto.CommunityMessageResponse, error) {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.CommunityMessageResponse{}, err
	}
	return s.single(ctx, viewer, message)
}

func (s *communityService) Post(ctx context.Context, actor authz.Actor, req dto.CommunityMessageCreateRequest) (dto.CommunityMessageResponse, error) {
	if !actor.Authenticated() {
		return dto.CommunityMessageResponse{}, ErrUnauthenticated
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.CommunityMessageResponse{}, err
	}

	content, err := s.cleanContent(req.Content)
	if err != nil {
		return dto.CommunityMessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "community.post", trace.WithAttributes(
		attribute.Int64("community.author_id", int64(actor.ID)),
		attribute.Bool("community.anonymous", req.IsAnonymous),
	))
	defer span.End()

	var parent *models.CommunityMessage
	if req.ParentID != nil {
		found, err := s.repo.FindByID(spanCtx, *req.ParentID)
		if err != nil {
			span.RecordError(err)
			return dto.CommunityMessageResponse{}, err
		}
		if !authz.CanReply(found, actor) {
			return dto.CommunityMessageResponse{}, ErrNestedReply
		}
		parent = &found
	}

	message := models.CommunityMessage{
		AuthorID:    actor.ID,
		ParentID:    req.ParentID,
		Content:     content,
		IsAnonymous: req.IsAnonymous,
		Mentions:    datatypes.JSONSlice[uint](uniqueIDs(req.Mentions, actor.ID)),
	}
	if !req.IsAnonymous {
		authorID := actor.ID
		message.UserID = &authorID
	}
	switch {
	case parent != nil:
		// replies inherit the thread topic so topic-scoped feeds see them
		message.Topic = parent.Topic
	case req.Topic != nil:
		if topic := strings.ToLower(strings.TrimSpace(*req.Topic)); topic != "" {
			message.Topic = &topic
		}
	}

	if err := s.repo.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.CommunityMessageResponse{}, err
	}

	kind := "message"
	if parent != nil {
		kind = "reply"
	}
	visibility := "public"
	if message.IsAnonymous {
		visibility = "anonymous"
	}
	observability.CommunityMessages().WithLabelValues(kind, visibility).Inc()

	s.notifyParticipants(spanCtx, actor, message, parent)
	s.publish(spanCtx, dto.FeedMessageCreated, message)

	return s.single(spanCtx, actor, message)
}

func (s *communityService) Edit(ctx context.Context, actor authz.Actor, id uint, req dto.CommunityMessageUpdateRequest) (dto.CommunityMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CommunityMessageResponse{}, err
	}

	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.CommunityMessageResponse{}, err
	}
	if !authz.CanEditMessage(message, actor) {
		return dto.CommunityMessageResponse{}, ErrMessageForbidden
	}

	content, err := s.cleanContent(req.Content)
	if err != nil {
		return dto.CommunityMessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "community.edit", trace.WithAttributes(attribute.Int64("community.message_id", int64(id))))
	defer span.End()

	editedAt := s.now().UTC()
	if err := s.repo.UpdateContent(spanCtx, id, content, editedAt); err != nil {
		span.RecordError(err)
		return dto.CommunityMessageResponse{}, err
	}
	message.Content = content
	message.EditedAt = &editedAt

	s.publish(spanCtx, dto.FeedMessageUpdated, message)
	return s.single(spanCtx, actor, message)
}

func (s *communityService) Delete(ctx context.Context, actor authz.Actor, id uint) error {
	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !authz.CanDeleteMessage(message, actor) {
		return ErrMessageForbidden
	}

	spanCtx, span := s.tracer.Start(ctx, "community.delete", trace.WithAttributes(attribute.Int64("community.message_id", int64(id))))
	defer span.End()

	if err := s.repo.DeleteThread(spanCtx, id); err != nil {
		span.RecordError(err)
		return err
	}

	if message.AuthorID != actor.ID {
		s.audit(spanCtx, actor, "community.message_deleted", message.ID, map[string]interface{}{
			"parent_id": message.ParentID,
		})
	}
	s.publish(spanCtx, dto.FeedMessageDeleted, message)
	return nil
}

func (s *communityService) TogglePin(ctx context.Context, actor authz.Actor, id uint) (dto.CommunityMessageResponse, error) {
	if !authz.CanPin(actor) {
		return dto.CommunityMessageResponse{}, ErrForbidden
	}

	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.CommunityMessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "community.toggle_pin", trace.WithAttributes(attribute.Int64("community.message_id", int64(id))))
	defer span.End()

	pinned := !message.IsPinned
	if err := s.repo.SetPinned(spanCtx, id, pinned); err != nil {
		span.RecordError(err)
		return dto.CommunityMessageResponse{}, err
	}
	message.IsPinned = pinned

	s.audit(spanCtx, actor, "community.message_pinned", message.ID, map[string]interface{}{"pinned": pinned})
	s.publish(spanCtx, dto.FeedMessagePinned, message)
	return s.single(spanCtx, actor, message)
}

func (s *communityService) ToggleReaction(ctx context.Context, actor authz.Actor, id uint, req dto.ReactionToggleRequest) (dto.ReactionToggleResponse, error) {
	if !actor.Authenticated() {
		return dto.ReactionToggleResponse{}, ErrUnauthenticated
	}
	req.ReactionType = strings.ToLower(strings.TrimSpace(req.ReactionType))
	if !models.IsReactionType(req.ReactionType) {
		return dto.ReactionToggleResponse{}, ErrInvalidReaction
	}

	message, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return dto.ReactionToggleResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "community.toggle_reaction", trace.WithAttributes(
		attribute.Int64("community.message_id", int64(id)),
		attribute.String("community.reaction", req.ReactionType),
	))
	defer span.End()

	// the unique index is authoritative; the lock only absorbs double clicks
	release, err := s.deps.Lock.Acquire(spanCtx, fmt.Sprintf("reaction:%d:%d:%s", id, actor.ID, req.ReactionType))
	if err != nil {
		return dto.ReactionToggleResponse{}, err
	}
	defer release()

	active, err := s.repo.ToggleReaction(spanCtx, id, actor.ID, req.ReactionType)
	if err != nil {
		span.RecordError(err)
		return dto.ReactionToggleResponse{}, err
	}

	state := "removed"
	if active {
		state = "added"
	}
	observability.ReactionToggles().WithLabelValues(req.ReactionType, state).Inc()

	summaries, err := s.reactionSummaries(spanCtx, actor, id)
	if err != nil {
		return dto.ReactionToggleResponse{}, err
	}

	s.publish(spanCtx, dto.FeedReactionChanged, message)
	return dto.ReactionToggleResponse{
		MessageID:    id,
		ReactionType: req.ReactionType,
		Active:       active,
		Reactions:    summaries,
	}, nil
}

// QuickReact is the double-click shortcut for the heart reaction.
func (s *communityService) QuickReact(ctx context.Context, actor authz.Actor, id uint) (dto.ReactionToggleResponse, error) {
	return s.ToggleReaction(ctx, actor, id, dto.ReactionToggleRequest{ReactionType: models.ReactionHeart})
}

func (s *communityService) MarkRead(ctx context.Context, actor authz.Actor, ids []uint) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	ids = uniqueIDs(ids, 0)
	if len(ids) == 0 {
		return nil
	}
	return s.repo.MarkRead(ctx, ids, actor.ID, s.now().UTC())
}

func (s *communityService) UnreadCount(ctx context.Context, actor authz.Actor) (dto.UnreadCountResponse, error) {
	if !actor.Authenticated() {
		return dto.UnreadCountResponse{}, ErrUnauthenticated
	}
	count, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		return dto.UnreadCountResponse{}, err
	}
	return dto.UnreadCountResponse{Unread: count}, nil
}

func (s *communityService) cleanContent(raw string) (string, error) {
	content := plainText(s.sanitizer, raw)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

func (s *communityService) single(ctx context.Context, viewer authz.Actor, message models.CommunityMessage) (dto.CommunityMessageResponse, error) {
	items, err := s.enrich(ctx, viewer, []models.CommunityMessage{message})
	if err != nil {
		return dto.CommunityMessageResponse{}, err
	}
	return items[0], nil
}

// enrich loads reactions, reply counts, read markers and author profiles concurrently.
func (s *communityService) enrich(ctx context.Context, viewer authz.Actor, messages []models.CommunityMessage) ([]dto.CommunityMessageResponse, error) {
	if len(messages) == 0 {
		return []dto.CommunityMessageResponse{}, nil
	}

	ids := make([]uint, 0, len(messages))
	parentIDs := make([]uint, 0, len(messages))
	authorIDs := make([]uint, 0, len(messages))
	for _, message := range messages {
		ids = append(ids, message.ID)
		if !message.IsReply() {
			parentIDs = append(parentIDs, message.ID)
		}
		if !message.IsAnonymous {
			authorIDs = append(authorIDs, message.AuthorID)
		}
	}

	var (
		counts   []repository.ReactionCount
		mine     []models.MessageReaction
		replies  map[uint]int64
		readIDs  map[uint]bool
		profiles map[uint]models.Profile
	)
	group, gc := errgroup.WithContext(ctx)

	group.Go(func() error {
		var err error
		counts, err = s.repo.ReactionCounts(gc, ids)
		return err
	})
	group.Go(func() error {
		var err error
		replies, err = s.repo.ReplyCounts(gc, parentIDs)
		return err
	})
	group.Go(func() error {
		var err error
		profiles, err = s.profiles.FindByIDs(gc, uniqueIDs(authorIDs, 0))
		return err
	})
	if viewer.Authenticated() {
		group.Go(func() error {
			var err error
			mine, err = s.repo.ReactionsByUser(gc, ids, viewer.ID)
			return err
		})
		group.Go(func() error {
			var err error
			readIDs, err = s.repo.ReadMessageIDs(gc, ids, viewer.ID)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("load message details: %w", err)
	}

	summaries := buildReactionSummaries(counts, mine)
	out := make([]dto.CommunityMessageResponse, 0, len(messages))
	for _, message := range messages {
		caps := authz.ForMessage(message, viewer)
		mentions := []uint(message.Mentions)
		if mentions == nil {
			mentions = []uint{}
		}
		reactions := summaries[message.ID]
		if reactions == nil {
			reactions = []dto.ReactionSummary{}
		}
		out = append(out, dto.CommunityMessageResponse{
			ID:          message.ID,
			ParentID:    message.ParentID,
			Content:     message.Content,
			IsAnonymous: message.IsAnonymous,
			IsPinned:    message.IsPinned,
			Topic:       message.Topic,
			Mentions:    mentions,
			Author:      messageAuthor(message, profiles),
			Reactions:   reactions,
			ReplyCount:  replies[message.ID],
			IsRead:      message.AuthorID == viewer.ID || readIDs[message.ID],
			Capabilities: dto.MessageCapabilities{
				CanEdit:   caps.CanEdit,
				CanDelete: caps.CanDelete,
				CanPin:    caps.CanPin,
				CanReply:  caps.CanReply,
			},
			EditedAt:  message.EditedAt,
			CreatedAt: message.CreatedAt,
		})
	}
	return out, nil
}

func (s *communityService) reactionSummaries(ctx context.Context, viewer authz.Actor, messageID uint) ([]dto.ReactionSummary, error) {
	ids := []uint{messageID}
	counts, err := s.repo.ReactionCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	mine, err := s.repo.ReactionsByUser(ctx, ids, viewer.ID)
	if err != nil {
		return nil, err
	}
	summaries := buildReactionSummaries(counts, mine)[messageID]
	if summaries == nil {
		summaries = []dto.ReactionSummary{}
	}
	return summaries, nil
}

// buildReactionSummaries groups counts per message in the fixed reaction display order.
func buildReactionSummaries(counts []repository.ReactionCount, mine []models.MessageReaction) map[uint][]dto.ReactionSummary {
	type key struct {
		id   uint
		kind string
	}
	totals := make(map[key]int64, len(counts))
	messages := make(map[uint]struct{})
	for _, count := range counts {
		totals[key{count.MessageID, count.ReactionType}] += count.Count
		messages[count.MessageID] = struct{}{}
	}
	reacted := make(map[key]bool, len(mine))
	for _, reaction := range mine {
		reacted[key{reaction.MessageID, reaction.ReactionType}] = true
	}

	out := make(map[uint][]dto.ReactionSummary, len(messages))
	for id := range messages {
		for _, kind := range models.ReactionTypes {
			total := totals[key{id, kind}]
			if total == 0 {
				continue
			}
			out[id] = append(out[id], dto.ReactionSummary{
				Type:        kind,
				Count:       total,
				ReactedByMe: reacted[key{id, kind}],
			})
		}
	}
	return out
}

func messageAuthor(message models.CommunityMessage, profiles map[uint]models.Profile) dto.MessageAuthor {
	if message.IsAnonymous {
		return dto.MessageAuthor{DisplayName: models.AnonymousDisplayName}
	}

	authorID := message.AuthorID
	profile, ok := profiles[authorID]
	if !ok {
		return dto.MessageAuthor{
			ID:             &authorID,
			DisplayName:    "Student #" + strconv.FormatUint(uint64(authorID), 10),
			Role:           models.RoleStudent,
			ProfileLink:    true,
			ProfileMissing: true,
		}
	}

	role := authz.NormalizeRole(profile.Role)
	return dto.MessageAuthor{
		ID:          &authorID,
		DisplayName: profile.FullName,
		AvatarURL:   profile.AvatarURL,
		Role:        role,
		Badge:       roleBadge(role),
		ProfileLink: true,
	}
}

func roleBadge(role string) string {
	switch role {
	case models.RoleAdmin:
		return "Admin"
	case models.RoleModerator:
		return "Moderator"
	default:
		return ""
	}
}

// notifyParticipants is best effort; failures are logged and never fail the post.
func (s *communityService) notifyParticipants(ctx context.Context, actor authz.Actor, message models.CommunityMessage, parent *models.CommunityMessage) {
	if s.deps.Notifier == nil {
		return
	}

	link := fmt.Sprintf("/community/messages/%d", message.ID)
	if parent != nil {
		link = fmt.Sprintf("/community/messages/%d", parent.ID)
	}
	sender := "Someone"
	if !message.IsAnonymous {
		sender = "A community member"
		if profile, err := s.profiles.FindByID(ctx, actor.ID); err == nil && profile.FullName != "" {
			sender = profile.FullName
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Uint("user_id", actor.ID).Msg("failed to load sender profile")
		}
	}

	notified := map[uint]struct{}{actor.ID: {}}
	if parent != nil && parent.AuthorID != actor.ID {
		notified[parent.AuthorID] = struct{}{}
		s.notify(ctx, dto.NotificationCreateRequest{
			UserID:   strconv.FormatUint(uint64(parent.AuthorID), 10),
			Type:     dto.NotificationReply,
			Message:  sender + " replied to your message",
			Link:     link,
			Metadata: map[string]interface{}{"message_id": message.ID, "parent_id": parent.ID},
		})
	}

	for _, mentioned := range message.Mentions {
		if _, done := notified[mentioned]; done {
			continue
		}
		notified[mentioned] = struct{}{}
		s.notify(ctx, dto.NotificationCreateRequest{
			UserID:   strconv.FormatUint(uint64(mentioned), 10),
			Type:     dto.NotificationMention,
			Message:  sender + " mentioned you in the community",
			Link:     link,
			Metadata: map[string]interface{}{"message_id": message.ID},
		})
	}
}

func (s *communityService) notify(ctx context.Context, payload dto.NotificationCreateRequest) {
	if _, err := s.deps.Notifier.Publish(ctx, payload); err != nil {
		s.logger.Warn().Err(err).Str("user_id", payload.UserID).Str("type", payload.Type).Msg("failed to publish community notification")
	}
}

func (s *communityService) publish(ctx context.Context, kind string, message models.CommunityMessage) {
	if s.deps.Feed == nil {
		return
	}
	event := dto.LiveFeedEvent{
		Type:      kind,
		MessageID: message.ID,
		ParentID:  message.ParentID,
		At:        s.now().UTC(),
	}
	if message.Topic != nil {
		event.Topic = *message.Topic
	}
	s.deps.Feed.Publish(ctx, event)
}

func (s *communityService) audit(ctx context.Context, actor authz.Actor, action string, id uint, metadata map[string]interface{}) {
	if s.deps.Activity == nil {
		return
	}
	entityID := id
	if _, err := s.deps.Activity.Record(ctx, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "community_message",
		EntityID:   &entityID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record community activity")
	}
}

// uniqueIDs drops zero values, duplicates and the excluded id while keeping order.
func uniqueIDs(ids []uint, exclude uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
