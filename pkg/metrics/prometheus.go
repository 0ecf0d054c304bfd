// Package metrics provides Prometheus metrics for the surrender index bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var defaultIndexBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // read-only

// Manager owns every collector the bot exports.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	indexBuckets   []float64
	registry       prometheus.Registerer

	// Pipeline
	puntsScored      prometheus.Counter
	puntsDuplicate   prometheus.Counter
	puntsPublished   prometheus.Counter
	eventFailures    *prometheus.CounterVec
	surrenderIndex   prometheus.Histogram
	publications     *prometheus.CounterVec
	publishFailures  *prometheus.CounterVec
	rankStoreSize    *prometheus.GaugeVec
	rankStoreLatency prometheus.Histogram

	// Scheduler
	activeGames       prometheus.Gauge
	completedGames    prometheus.Counter
	cycleFailures     prometheus.Counter
	backoffSeconds    prometheus.Gauge
	pollCycleDuration prometheus.Histogram
	upstreamRetries   *prometheus.CounterVec

	// Cancellation
	cancellationCases *prometheus.CounterVec
	cancellationOpen  prometheus.Gauge

	// Notifications
	notificationsSent    prometheus.Counter
	notificationsDropped *prometheus.CounterVec
	notifyQueueSize      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "surrender",
		subsystem:      "bot",
		latencyBuckets: prometheus.DefBuckets,
		indexBuckets:   defaultIndexBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.puntsScored = m.counter("punts_scored_total", "Punts scored and appended to the season distribution")
	m.puntsDuplicate = m.counter("punts_duplicate_total", "Punt redeliveries suppressed by the identity resolver")
	m.puntsPublished = m.counter("punts_already_published_total", "Punts skipped because the published index already holds them")
	m.eventFailures = m.counterVec("event_failures_total", "Per-event faults that dropped a punt", "stage")
	m.surrenderIndex = m.histogram("surrender_index", "Distribution of persisted surrender index values", m.indexBuckets)
	m.publications = m.counterVec("publications_total", "Posts made per feed", "feed")
	m.publishFailures = m.counterVec("publish_failures_total", "Failed posts per feed", "feed")
	m.rankStoreSize = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "rank_store_values", Help: "Values held in each rank distribution",
	}, []string{"set"})
	m.rankStoreLatency = m.histogram("rank_store_flush_milliseconds", "Durable flush latency of the season distribution", m.latencyBuckets)

	m.activeGames = m.gauge("active_games", "Games inside the polling window")
	m.completedGames = m.counter("completed_games_total", "Games marked complete after a final status")
	m.cycleFailures = m.counter("cycle_failures_total", "Scheduler cycles that ended in an uncaught fault")
	m.backoffSeconds = m.gauge("backoff_seconds", "Current scheduler fault backoff")
	m.pollCycleDuration = m.histogram("poll_cycle_seconds", "Wall time spent fetching and processing one poll cycle",
		[]float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120})
	m.upstreamRetries = m.counterVec("upstream_retries_total", "Retried upstream requests", "endpoint")

	m.cancellationCases = m.counterVec("cancellation_cases_total", "Cancellation cases by terminal state", "state")
	m.cancellationOpen = m.gauge("cancellation_cases_open", "Cancellation cases still awaiting their vote")

	m.notificationsSent = m.counter("notifications_sent_total", "Operator notifications delivered")
	m.notificationsDropped = m.counterVec("notifications_dropped_total", "Operator notifications lost", "reason")
	m.notifyQueueSize = m.gauge("notify_queue_size", "Operator notifications waiting for delivery")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordPuntScored counts a persisted punt and observes its index.
func RecordPuntScored(index float64) {
	globalManager.puntsScored.Inc()
	globalManager.surrenderIndex.Observe(index)
}

// RecordDuplicate counts a suppressed redelivery.
func RecordDuplicate() {
	globalManager.puntsDuplicate.Inc()
}

// RecordAlreadyPublished counts a punt found in the published index.
func RecordAlreadyPublished() {
	globalManager.puntsPublished.Inc()
}

// RecordEventFailure counts a dropped punt by the stage that failed.
func RecordEventFailure(stage string) {
	globalManager.eventFailures.WithLabelValues(stage).Inc()
}

// RecordPublication counts a post on feed.
func RecordPublication(feed string) {
	globalManager.publications.WithLabelValues(feed).Inc()
}

// RecordPublishFailure counts a failed post on feed.
func RecordPublishFailure(feed string) {
	globalManager.publishFailures.WithLabelValues(feed).Inc()
}

// UpdateRankStoreSize sets the size of a rank distribution ("current" or "historical").
func UpdateRankStoreSize(set string, n int) {
	globalManager.rankStoreSize.WithLabelValues(set).Set(float64(n))
}

// RecordRankStoreFlush records how long a durable flush took.
func RecordRankStoreFlush(latencyMs float64) {
	globalManager.rankStoreLatency.Observe(latencyMs)
}

// UpdateActiveGames sets the number of games being polled.
func UpdateActiveGames(n int) {
	globalManager.activeGames.Set(float64(n))
}

// RecordGameCompleted counts a game leaving the polling set for good.
func RecordGameCompleted() {
	globalManager.completedGames.Inc()
}

// RecordCycleFailure counts a fault that reached the scheduler's outer loop.
func RecordCycleFailure() {
	globalManager.cycleFailures.Inc()
}

// UpdateBackoff sets the current fault backoff.
func UpdateBackoff(d time.Duration) {
	globalManager.backoffSeconds.Set(d.Seconds())
}

// RecordPollCycle observes the busy time of one poll cycle.
func RecordPollCycle(d time.Duration) {
	globalManager.pollCycleDuration.Observe(d.Seconds())
}

// RecordUpstreamRetry counts a retried upstream request.
func RecordUpstreamRetry(endpoint string) {
	globalManager.upstreamRetries.WithLabelValues(endpoint).Inc()
}

// RecordCancellationTerminal counts a case reaching a terminal state.
func RecordCancellationTerminal(state string) {
	globalManager.cancellationCases.WithLabelValues(state).Inc()
}

// AddOpenCancellations moves the open-case gauge by delta.
func AddOpenCancellations(delta int) {
	globalManager.cancellationOpen.Add(float64(delta))
}

// RecordNotificationSent counts a delivered operator notification.
func RecordNotificationSent() {
	globalManager.notificationsSent.Inc()
}

// RecordNotificationDropped counts a lost operator notification.
func RecordNotificationDropped(reason string) {
	globalManager.notificationsDropped.WithLabelValues(reason).Inc()
}

// UpdateNotifyQueueSize sets the notification backlog.
func UpdateNotifyQueueSize(n int) {
	globalManager.notifyQueueSize.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
