package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MilestoneTransitions counts applied state changes.
	MilestoneTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestone_transitions_total",
			Help: "Milestone state transitions applied",
		},
		[]string{"from", "to"},
	)

	MilestonesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestones_created_total",
			Help: "Milestones created by proposal or direct assignment",
		},
		[]string{"state"},
	)

	// ReviewBatches counts teacher batches by kind (proposal / completion) and result.
	ReviewBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_batches_total",
			Help: "Teacher review batches by outcome",
		},
		[]string{"kind", "result"},
	)

	TeamProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "team_progress_percent",
			Help: "Last persisted progress of a team",
		},
		[]string{"team_id"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_queries_total",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"command"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "outcome"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events handed to the broker",
		},
		[]string{"routing_key", "result"},
	)
)

func IncrementTransition(from, to string) {
	MilestoneTransitions.WithLabelValues(from, to).Inc()
}

func IncrementMilestonesCreated(state string, n int) {
	MilestonesCreated.WithLabelValues(state).Add(float64(n))
}

func IncrementReviewBatch(kind, result string) {
	ReviewBatches.WithLabelValues(kind, result).Inc()
}

func SetTeamProgress(teamID string, progress int) {
	TeamProgress.WithLabelValues(teamID).Set(float64(progress))
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow query. Only the leading SQL keyword is used as a label
// to keep cardinality bounded.
func IncrementSlowQuery(command string) {
	SlowQueries.WithLabelValues(command).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordMQConsumeLatency(routingKey, outcome string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, outcome).Observe(float64(duration.Milliseconds()))
}

func IncrementOutboxPublished(routingKey, result string) {
	OutboxPublished.WithLabelValues(routingKey, result).Inc()
}
