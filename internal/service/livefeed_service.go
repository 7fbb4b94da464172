package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/observability"
)

const (
	// FeedTopicAll receives every change regardless of topic.
	FeedTopicAll = "all"

	feedSendBufferSize = 32
	feedKeepalive      = 30 * time.Second
)

// FeedConn is the subset of a websocket connection used by the live feed.
type FeedConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// FeedConnectionOptions wraps metadata extracted during the HTTP upgrade.
type FeedConnectionOptions struct {
	UserID        string
	Topic         string
	CorrelationID string
}

// FeedPublisher announces community changes to connected clients.
type FeedPublisher interface {
	Publish(ctx context.Context, event dto.LiveFeedEvent)
}

// LiveFeedService keeps clients of the community board in sync.
type LiveFeedService interface {
	FeedPublisher
	ServeConnection(conn FeedConn, opts FeedConnectionOptions)
	Start(ctx context.Context)
}

type liveFeedService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *feedHub
	nodeID      string
	keepalive   time.Duration
}

type feedHub struct {
	mu     sync.RWMutex
	topics map[string]map[*feedClient]struct{}
	log    zerolog.Logger
}

type feedClient struct {
	conn      FeedConn
	send      chan dto.LiveFeedEvent
	options   FeedConnectionOptions
	service   *liveFeedService
	closed    chan struct{}
	once      sync.Once
	keepalive time.Duration
}

type feedEnvelope struct {
	Source string            `json:"source"`
	Event  dto.LiveFeedEvent `json:"event"`
}

// NewLiveFeedService creates the live feed hub. Redis and NATS are optional.
func NewLiveFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, keepalive time.Duration, logger zerolog.Logger) LiveFeedService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":community"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".community"
	}
	if keepalive <= 0 {
		keepalive = feedKeepalive
	}

	return &liveFeedService{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "livefeed_service").Logger(),
		hub: &feedHub{
			topics: make(map[string]map[*feedClient]struct{}),
			log:    logger.With().Str("component", "livefeed_hub").Logger(),
		},
		nodeID:    uuid.NewString(),
		keepalive: keepalive,
	}
}

func (s *liveFeedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// ServeConnection blocks until the client disconnects.
func (s *liveFeedService) ServeConnection(conn FeedConn, opts FeedConnectionOptions) {
	opts.Topic = normalizeFeedTopic(opts.Topic)
	client := &feedClient{
		conn:      conn,
		send:      make(chan dto.LiveFeedEvent, feedSendBufferSize),
		options:   opts,
		service:   s,
		closed:    make(chan struct{}),
		keepalive: s.keepalive,
	}

	s.hub.register(client)
	observability.LiveFeedConnections().Inc()

	go client.writer()
	client.reader()
}

func (s *liveFeedService) Publish(ctx context.Context, event dto.LiveFeedEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	s.hub.broadcast(event)
	observability.LiveFeedEvents().WithLabelValues(event.Type, "local").Inc()

	payload, err := json.Marshal(feedEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal live feed event")
		return
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish live feed event to redis")
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish live feed event to nats")
		}
	}
}

func (s *liveFeedService) consumeRedis(ctx context.Context) {
	if err := subscribeLoop(ctx, s.redis, s.redisStream, s.logger, s.handleEnvelope); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Msg("live feed redis subscription stopped")
	}
}

func (s *liveFeedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats live feed subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain live feed nats subscription")
		}
	}()
}

func (s *liveFeedService) handleEnvelope(data []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid live feed event")
		return
	}
	if envelope.Source == s.nodeID {
		return
	}

	observability.LiveFeedEvents().WithLabelValues(envelope.Event.Type, "remote").Inc()
	s.hub.broadcast(envelope.Event)
}

func normalizeFeedTopic(topic string) string {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return FeedTopicAll
	}
	return topic
}

func (h *feedHub) register(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := client.options.Topic
	if _, exists := h.topics[topic]; !exists {
		h.topics[topic] = make(map[*feedClient]struct{})
	}
	h.topics[topic][client] = struct{}{}
	h.log.Debug().Str("topic", topic).Str("user_id", client.options.UserID).Msg("live feed client connected")
}

func (h *feedHub) unregister(client *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topic := client.options.Topic
	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
	h.log.Debug().Str("topic", topic).Str("user_id", client.options.UserID).Msg("live feed client disconnected")
}

func (h *feedHub) size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.topics {
		total += len(clients)
	}
	return total
}

// broadcast never blocks; a client whose buffer is full misses the event.
func (h *feedHub) broadcast(event dto.LiveFeedEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := []string{FeedTopicAll}
	if topic := normalizeFeedTopic(event.Topic); topic != FeedTopicAll {
		targets = append(targets, topic)
	}

	for _, topic := range targets {
		for client := range h.topics[topic] {
			select {
			case client.send <- event:
			default:
				h.log.Warn().Str("topic", topic).Str("user_id", client.options.UserID).Msg("dropping live feed event for slow client")
			}
		}
	}
}

// reader drains client frames so close and pong frames are processed.
func (c *feedClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("live feed read loop ended")
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()

	ticker := time.NewTicker(c.keepalive)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("live feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("live feed ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		observability.LiveFeedConnections().Dec()
		_ = c.conn.Close()
	})
}
