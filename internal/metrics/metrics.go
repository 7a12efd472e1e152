package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook Metrics
var (
	// WebhookDeliveriesTotal tracks webhook deliveries by result
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total webhook deliveries by result (ok/invalid_signature/duplicate/malformed)",
		},
		[]string{"result"},
	)

	// WebhookChangesTotal tracks individual changes by field and outcome
	WebhookChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_changes_total",
			Help: "Total webhook changes by field and outcome (ok/malformed/unhandled_field/page_unresolved/user_unresolved/apply_error)",
		},
		[]string{"field", "outcome"},
	)

	// WebhookChangeDuration tracks per-change processing latency
	WebhookChangeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_change_duration_seconds",
			Help:    "Webhook change processing duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
	)

	// WebhookActionsTotal tracks domain actions applied by kind
	WebhookActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_actions_total",
			Help: "Total domain actions applied by kind (upsert_review/upsert_post/create_notification)",
		},
		[]string{"kind"},
	)
)

// Sentiment Metrics
var (
	// SentimentScoredTotal tracks classified texts by resulting label
	SentimentScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_scored_total",
			Help: "Total texts scored by resulting label (positive/negative/neutral)",
		},
		[]string{"label"},
	)
)

// Graph API Metrics
var (
	// GraphAPICallsTotal tracks Graph API calls by endpoint and status
	GraphAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_api_calls_total",
			Help: "Total Graph API calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// GraphAPICallDuration tracks Graph API call latency
	GraphAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graph_api_call_duration_seconds",
			Help:    "Graph API call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// GraphAPIRateLimited tracks calls delayed by the client-side limiter
	GraphAPIRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graph_api_rate_limited_total",
			Help: "Total Graph API calls delayed by the client-side rate limiter",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Notification Metrics
var (
	// NotificationsCreatedTotal tracks notifications created by severity
	NotificationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total notifications created by severity",
		},
		[]string{"severity"},
	)

	// NotificationPushesTotal tracks realtime pushes by result
	NotificationPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_pushes_total",
			Help: "Total realtime notification pushes by result (delivered/no_clients/error)",
		},
		[]string{"result"},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsCurrent tracks current active WebSocket connections
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
	)

	// WebSocketConnectionsTotal tracks connection attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total WebSocket connection attempts by result (success/error)",
		},
		[]string{"result"},
	)
)

// Sync Metrics
var (
	// SyncRunsTotal tracks mirror syncs by resource and result
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total mirror syncs by resource (pages/posts/reviews) and result",
		},
		[]string{"resource", "result"},
	)

	// SyncDuration tracks mirror sync duration by resource
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Mirror sync duration in seconds by resource",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"resource"},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Redis Metrics
var (
	// RedisOpsTotal tracks Redis commands by operation and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by command and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis command latency by operation
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed Redis connection attempts
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)

// HTTP Request Metrics
// Note: http_errors_total{status} is provided by the internal/errors package.
