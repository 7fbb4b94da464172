package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce        sync.Once
	adminRequestsTotal  *prometheus.CounterVec
	adminLatencySeconds *prometheus.HistogramVec
	adminErrorsTotal    *prometheus.CounterVec

	communityMessagesTotal *prometheus.CounterVec
	reactionTogglesTotal   *prometheus.CounterVec
	liveFeedConnections    prometheus.Gauge
	liveFeedEventsTotal    *prometheus.CounterVec

	notificationsPublishedTotal *prometheus.CounterVec
	sseClientsActive            prometheus.Gauge

	gatewaySavesTotal      *prometheus.CounterVec
	gatewayKeyChecksTotal  *prometheus.CounterVec
	eventCreationsTotal    *prometheus.CounterVec
	walletFeesChargedTotal prometheus.Counter
	blogRequestsTotal      *prometheus.CounterVec
	blogLatencySeconds     prometheus.Histogram
	uploadRequestsTotal    *prometheus.CounterVec
	uploadRejectedTotal    *prometheus.CounterVec
	uploadLatencySeconds   prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used across the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		adminRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of admin API requests served.",
		}, []string{"method", "route", "status"})

		adminLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_latency_seconds",
			Help:    "Latency distribution for admin API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		adminErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_errors_total",
			Help: "Total number of error responses returned by admin endpoints.",
		}, []string{"method", "route", "status"})

		communityMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "community_messages_total",
			Help: "Community messages posted, split by kind and visibility.",
		}, []string{"kind", "visibility"})

		reactionTogglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "community_reaction_toggles_total",
			Help: "Reaction toggles by reaction type and resulting state.",
		}, []string{"reaction", "state"})

		liveFeedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "community_live_feed_connections",
			Help: "Open live feed websocket connections.",
		})

		liveFeedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "community_live_feed_events_total",
			Help: "Live feed change events delivered to the local hub.",
		}, []string{"type", "origin"})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Notifications published by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notifications_sse_clients",
			Help: "Active notification stream subscribers.",
		})

		gatewaySavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_saves_total",
			Help: "Payment gateway save attempts by provider, mode and outcome.",
		}, []string{"provider", "mode", "result"})

		gatewayKeyChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_key_checks_total",
			Help: "Inline secret key validations by provider and outcome.",
		}, []string{"provider", "result"})

		eventCreationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "event_creations_total",
			Help: "Event creation attempts by outcome.",
		}, []string{"result"})

		walletFeesChargedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallet_event_fees_charged_total",
			Help: "Sum of event creation fees debited from wallets.",
		})

		blogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_requests_total",
			Help: "Blog list requests by cache outcome.",
		}, []string{"cache"})

		blogLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "blog_list_latency_seconds",
			Help:    "Latency of blog list requests.",
			Buckets: prometheus.DefBuckets,
		})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Stored uploads by detected type.",
		}, []string{"type"})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency of upload processing.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		})

		prometheus.MustRegister(
			adminRequestsTotal, adminLatencySeconds, adminErrorsTotal,
			communityMessagesTotal, reactionTogglesTotal, liveFeedConnections, liveFeedEventsTotal,
			notificationsPublishedTotal, sseClientsActive,
			gatewaySavesTotal, gatewayKeyChecksTotal, eventCreationsTotal, walletFeesChargedTotal,
			blogRequestsTotal, blogLatencySeconds,
			uploadRequestsTotal, uploadRejectedTotal, uploadLatencySeconds,
		)
	})
}

// MetricsHandler serves the scrape endpoint. Collection errors are reported in the body
// rather than failing the whole scrape.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
}

// AdminRequests exposes the counter for admin requests.
func AdminRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return adminRequestsTotal
}

// AdminLatency exposes the latency histogram for admin requests.
func AdminLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return adminLatencySeconds
}

// AdminErrors exposes the counter for admin error responses.
func AdminErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return adminErrorsTotal
}

// CommunityMessages counts posted messages.
func CommunityMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return communityMessagesTotal
}

// ReactionToggles counts reaction toggles.
func ReactionToggles() *prometheus.CounterVec {
	RegisterMetrics()
	return reactionTogglesTotal
}

// LiveFeedConnections tracks open websocket feeds.
func LiveFeedConnections() prometheus.Gauge {
	RegisterMetrics()
	return liveFeedConnections
}

// LiveFeedEvents counts change events fanned out to local clients.
func LiveFeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return liveFeedEventsTotal
}

// NotificationsPublishedTotal counts published notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// SSEClientsActive tracks notification stream subscribers.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// GatewaySaves counts gateway save attempts.
func GatewaySaves() *prometheus.CounterVec {
	RegisterMetrics()
	return gatewaySavesTotal
}

// GatewayKeyChecks counts inline key validations.
func GatewayKeyChecks() *prometheus.CounterVec {
	RegisterMetrics()
	return gatewayKeyChecksTotal
}

// EventCreations counts event creation outcomes.
func EventCreations() *prometheus.CounterVec {
	RegisterMetrics()
	return eventCreationsTotal
}

// WalletFeesCharged sums charged creation fees.
func WalletFeesCharged() prometheus.Counter {
	RegisterMetrics()
	return walletFeesChargedTotal
}

// BlogRequests counts blog list requests.
func BlogRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return blogRequestsTotal
}

// BlogLatency observes blog list latency.
func BlogLatency() prometheus.Histogram {
	RegisterMetrics()
	return blogLatencySeconds
}

// UploadRequests counts stored uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadLatency observes upload processing time.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}
