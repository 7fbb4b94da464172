package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/campus-portal-api/internal/authz"
	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/models"
	"github.com/noah-isme/campus-portal-api/internal/observability"
	"github.com/noah-isme/campus-portal-api/internal/repository"
)

// inboxBuffer is the per-stream backlog; a slow SSE client loses notifications past it.
const inboxBuffer = 16

// NotificationPublisher is the producer side used by other services.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// NotificationService stores notifications and streams them to connected users.
type NotificationService interface {
	NotificationPublisher
	Broadcast(ctx context.Context, actor authz.Actor, payload dto.NotificationBroadcastRequest) (dto.NotificationBroadcastResponse, error)
	List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Subscribe(userID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

// relay carries notifications between API nodes so a user connected to any node sees them.
type relay interface {
	name() string
	send(ctx context.Context, payload []byte) error
	listen(ctx context.Context, handle func([]byte)) error
}

type relayEnvelope struct {
	Origin       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

type notificationService struct {
	repo      repository.NotificationRepository
	relays    []relay
	validator *validator.Validate
	policy    *bluemonday.Policy
	inboxes   *inboxHub
	nodeID    string
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewNotificationService wires the store and the optional relays. Redis pub/sub uses the
// channel "<channelBase>:notifications"; NATS uses the same name with dots.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	logger = logger.With().Str("component", "notification_service").Logger()
	var relays []relay
	if channelBase != "" {
		if redisClient != nil {
			relays = append(relays, redisRelay{client: redisClient, channel: channelBase + ":notifications", logger: logger})
		}
		if natsConn != nil {
			relays = append(relays, natsRelay{conn: natsConn, subject: strings.ReplaceAll(channelBase, ":", ".") + ".notifications"})
		}
	}

	return &notificationService{
		repo:      repo,
		relays:    relays,
		validator: validate,
		policy:    bluemonday.StrictPolicy(),
		inboxes:   &inboxHub{streams: make(map[string]map[chan dto.NotificationResponse]struct{})},
		nodeID:    uuid.NewString(),
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/campus-portal-api/internal/service/notification"),
	}
}

// Start listens on every relay until ctx ends.
func (s *notificationService) Start(ctx context.Context) {
	for _, r := range s.relays {
		go func(r relay) {
			if err := r.listen(ctx, s.receive); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Str("relay", r.name()).Msg("notification relay stopped")
			}
		}(r)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}
	message, err := s.cleanMessage(payload.Message)
	if err != nil {
		return dto.NotificationResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.user_id", payload.UserID),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	row := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Message: message,
		Link:    strings.TrimSpace(payload.Link),
	}
	if len(payload.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(payload.Metadata)
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	out := dto.NewNotificationResponse(row)
	s.fanOut(ctx, out)
	return out, nil
}

// Broadcast stores one notification per distinct recipient. Staff only.
func (s *notificationService) Broadcast(ctx context.Context, actor authz.Actor, payload dto.NotificationBroadcastRequest) (dto.NotificationBroadcastResponse, error) {
	if !authz.CanManageContent(actor) {
		return dto.NotificationBroadcastResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationBroadcastResponse{}, err
	}
	message, err := s.cleanMessage(payload.Message)
	if err != nil {
		return dto.NotificationBroadcastResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "notifications.broadcast", trace.WithAttributes(
		attribute.Int("notification.recipients", len(payload.UserIDs)),
	))
	defer span.End()

	link := strings.TrimSpace(payload.Link)
	rows := make([]models.Notification, 0, len(payload.UserIDs))
	seen := make(map[string]bool, len(payload.UserIDs))
	for _, raw := range payload.UserIDs {
		userID := strings.TrimSpace(raw)
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		rows = append(rows, models.Notification{UserID: userID, Type: dto.NotificationBroadcast, Message: message, Link: link})
	}

	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		span.RecordError(err)
		return dto.NotificationBroadcastResponse{}, err
	}
	for _, row := range rows {
		s.fanOut(ctx, dto.NewNotificationResponse(row))
	}
	return dto.NotificationBroadcastResponse{Delivered: len(rows)}, nil
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	rows, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(rows), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.String("notification.user_id", userID),
	))
	defer span.End()

	row, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(row), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrUnauthenticated
	}
	return s.repo.MarkAllRead(ctx, userID)
}

// Subscribe opens a stream for userID. The returned release func is idempotent and
// closes the channel.
func (s *notificationService) Subscribe(userID string) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse, inboxBuffer)
	s.inboxes.add(userID, ch)
	observability.SSEClientsActive().Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.inboxes.remove(userID, ch)
			observability.SSEClientsActive().Dec()
		})
	}
}

func (s *notificationService) cleanMessage(raw string) (string, error) {
	message := plainText(s.policy, raw)
	if message == "" {
		return "", ErrEmptyContent
	}
	return message, nil
}

// fanOut delivers to local streams first; relay failures only cost remote delivery.
func (s *notificationService) fanOut(ctx context.Context, n dto.NotificationResponse) {
	s.inboxes.send(n)
	observability.NotificationsPublishedTotal().WithLabelValues(n.Type).Inc()
	if len(s.relays) == 0 {
		return
	}

	payload, err := json.Marshal(relayEnvelope{Origin: s.nodeID, Notification: n, SentAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode notification for relay")
		return
	}
	for _, r := range s.relays {
		if err := r.send(ctx, payload); err != nil {
			s.logger.Warn().Err(err).Str("relay", r.name()).Uint("notification_id", n.ID).Msg("relay notification")
		}
	}
}

// receive handles a relayed notification; our own sends come back and are skipped.
func (s *notificationService) receive(payload []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		s.logger.Warn().Err(err).Msg("invalid relayed notification")
		return
	}
	if env.Origin == s.nodeID {
		return
	}
	s.inboxes.send(env.Notification)
}

type redisRelay struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

func (r redisRelay) name() string { return "redis" }

func (r redisRelay) send(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r redisRelay) listen(ctx context.Context, handle func([]byte)) error {
	return subscribeLoop(ctx, r.client, r.channel, r.logger, handle)
}

type natsRelay struct {
	conn    *nats.Conn
	subject string
}

func (r natsRelay) name() string { return "nats" }

func (r natsRelay) send(_ context.Context, payload []byte) error {
	return r.conn.Publish(r.subject, payload)
}

// listen uses a plain subscription: every node needs every notification for its own
// streams, so a queue group would be wrong here.
func (r natsRelay) listen(ctx context.Context, handle func([]byte)) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) { handle(msg.Data) })
	if err != nil {
		return err
	}
	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return err
	}
	return ctx.Err()
}

// inboxHub maps user ids to their open streams on this node.
type inboxHub struct {
	mu      sync.RWMutex
	streams map[string]map[chan dto.NotificationResponse]struct{}
}

func (h *inboxHub) add(userID string, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.streams[userID]
	if set == nil {
		set = make(map[chan dto.NotificationResponse]struct{})
		h.streams[userID] = set
	}
	set[ch] = struct{}{}
}

func (h *inboxHub) remove(userID string, ch chan dto.NotificationResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.streams[userID]
	if !ok {
		return
	}
	if _, ok := set[ch]; ok {
		delete(set, ch)
		close(ch)
	}
	if len(set) == 0 {
		delete(h.streams, userID)
	}
}

func (h *inboxHub) send(n dto.NotificationResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.streams[n.UserID] {
		select {
		case ch <- n:
		default:
		}
	}
}
