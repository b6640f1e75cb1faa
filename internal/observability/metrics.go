package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialnet_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FriendshipOperations counts friendship manager calls by operation and result.
	FriendshipOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_friendship_operations_total",
		Help: "Total number of friendship operations by operation and result",
	}, []string{"operation", "result"})

	// CacheLookups counts cache-aside lookups by key family and outcome.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_cache_lookups_total",
		Help: "Total number of cache lookups by key family and outcome",
	}, []string{"family", "outcome"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialnet_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EventsPublished counts realtime events by type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialnet_events_published_total",
		Help: "Total number of realtime events published",
	}, []string{"event_type", "result"})
)

// ResultLabel converts an error into a metric result label.
func ResultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordFriendshipOperation increments the friendship counter for operation.
func RecordFriendshipOperation(operation string, err error) {
	FriendshipOperations.WithLabelValues(operation, ResultLabel(err)).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
