package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_cache_lookups_total",
		Help: "Total number of cache lookups by result",
	}, []string{"result"})

	// FeedBuildLatency records how long each read view takes to compose.
	FeedBuildLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_feed_build_latency_seconds",
		Help:    "Feed composition latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"view"})

	// FeedItems records the number of posts returned per view.
	FeedItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chirp_feed_items",
		Help:    "Number of posts returned per feed view",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	}, []string{"view"})

	// EngagementEvents counts state transitions by action and outcome.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chirp_engagement_events_total",
		Help: "Total engagement mutations by action and outcome",
	}, []string{"action", "outcome"})
)

// TrackFeed returns a function that records latency and size for a view when called.
func TrackFeed(view string) func(items int) {
	start := time.Now()
	return func(items int) {
		FeedBuildLatency.WithLabelValues(view).Observe(time.Since(start).Seconds())
		FeedItems.WithLabelValues(view).Observe(float64(items))
	}
}

// RecordEngagement increments the engagement counter, labelling the outcome from err.
func RecordEngagement(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EngagementEvents.WithLabelValues(action, outcome).Inc()
}
