package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	apiRequestLabels = []string{"resource", "method", "status"}

	// APIRequestsTotal counts backend REST calls by resource and outcome.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_api_requests_total",
			Help: "Total number of backend API requests, labeled by resource, method and status class.",
		},
		apiRequestLabels,
	)
	APIRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_console_api_request_duration_seconds",
			Help:    "Histogram of backend API request durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		apiRequestLabels,
	)
	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_api_retries_total",
			Help: "Total number of retried backend GET requests.",
		},
		[]string{"resource"},
	)

	// Global metrics instance
	Metrics *metricsStore
)

// Query cache metrics
var (
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_cache_lookups_total",
			Help: "Total number of query cache lookups, labeled by resource and result (hit/miss).",
		},
		[]string{"resource", "result"},
	)
	cacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_cache_invalidated_entries_total",
			Help: "Total number of query cache entries dropped by invalidation.",
		},
		[]string{"resource"},
	)
	cacheSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_console_cache_subscribers",
		Help: "Current number of query cache subscribers.",
	})
)

// Polling and session metrics
var (
	pollFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_poll_fetches_total",
			Help: "Total number of conversation status fetches made by polling controllers.",
		},
		[]string{"result"},
	)
	activePollers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_console_active_pollers",
		Help: "Current number of running polling controllers.",
	})
	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_session_transitions_total",
			Help: "Total number of call session state transitions.",
		},
		[]string{"from", "to"},
	)
)

// Watcher, archive and publisher metrics
var (
	watchedConversations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_console_watched_conversations",
		Help: "Current number of conversations tracked by the watcher.",
	})
	statusEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_status_events_published_total",
			Help: "Total number of conversation status events published, labeled by status and result.",
		},
		[]string{"status", "result"},
	)

	archiveTasksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_console_archive_tasks_submitted_total",
		Help: "Total number of archive tasks submitted to the worker pool.",
	})
	archiveTasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_console_archive_tasks_processed_total",
			Help: "Total number of archive tasks processed, labeled by final status.",
		},
		[]string{"status"},
	)
	archiveProcessingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_console_archive_processing_duration_seconds",
		Help:    "Histogram of archive task durations.",
		Buckets: prometheus.DefBuckets,
	})
	archiveQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_console_archive_queue_length",
		Help: "Approximate number of tasks waiting in the archive worker pool queue.",
	})
)

// Labels for database operations
var (
	dbOperationLabels = []string{"operation", "entity", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voice_console_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)
)

// metricsStore marks the metrics as initialised. promauto handles registration.
type metricsStore struct{}

// InitMetrics enables metric collection. Call this function during application startup.
func InitMetrics(enabled bool) {
	if !enabled {
		metricsEnabled = false
		Metrics = nil
		return
	}

	metricsEnabled = true
	Metrics = &metricsStore{}
}

// Enabled reports whether metric collection is on.
func Enabled() bool {
	return metricsEnabled
}

// sanitizeLabel ensures a label is valid or returns a default value.
func sanitizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// StatusClass collapses an HTTP status code into 2xx/4xx/5xx, or "error" for transport failures.
func StatusClass(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// ObserveAPIRequest records one backend request.
func ObserveAPIRequest(resource, method string, statusCode int, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	status := StatusClass(statusCode)
	APIRequestsTotal.WithLabelValues(sanitizeLabel(resource), method, status).Inc()
	APIRequestDurationSeconds.WithLabelValues(sanitizeLabel(resource), method, status).Observe(duration.Seconds())
}

// IncAPIRetry counts a retried GET.
func IncAPIRetry(resource string) {
	if !metricsEnabled {
		return
	}
	APIRetriesTotal.WithLabelValues(sanitizeLabel(resource)).Inc()
}

// --- Cache Metric Helpers ---

// IncCacheLookup counts a cache lookup as a hit or a miss.
func IncCacheLookup(resource string, hit bool) {
	if Metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(sanitizeLabel(resource), result).Inc()
}

// AddCacheInvalidations counts entries dropped by one invalidation.
func AddCacheInvalidations(resource string, n int) {
	if Metrics == nil || n <= 0 {
		return
	}
	cacheInvalidationsTotal.WithLabelValues(sanitizeLabel(resource)).Add(float64(n))
}

// SetCacheSubscribers sets the current subscriber count.
func SetCacheSubscribers(n int) {
	if Metrics != nil {
		cacheSubscribers.Set(float64(n))
	}
}

// --- Polling / Session Metric Helpers ---

// IncPollFetch counts a status fetch; err marks it as failed.
func IncPollFetch(err error) {
	if Metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	pollFetchesTotal.WithLabelValues(result).Inc()
}

// IncActivePollers adjusts the running poller gauge by delta.
func IncActivePollers(delta int) {
	if Metrics != nil {
		activePollers.Add(float64(delta))
	}
}

// IncSessionTransition counts a call session state change.
func IncSessionTransition(from, to string) {
	if Metrics != nil {
		sessionTransitionsTotal.WithLabelValues(sanitizeLabel(from), sanitizeLabel(to)).Inc()
	}
}

// --- Watcher / Archive / Publisher Metric Helpers ---

// SetWatchedConversations sets the watcher gauge.
func SetWatchedConversations(n int) {
	if Metrics != nil {
		watchedConversations.Set(float64(n))
	}
}

// IncStatusEventPublished counts a status event publish attempt.
func IncStatusEventPublished(status string, err error) {
	if Metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = SanitizeErrorType(err.Error())
	}
	statusEventsPublishedTotal.WithLabelValues(sanitizeLabel(status), result).Inc()
}

// IncArchiveTasksSubmitted increments the counter for submitted archive tasks.
func IncArchiveTasksSubmitted() {
	if Metrics != nil {
		archiveTasksSubmittedTotal.Inc()
	}
}

// IncArchiveTasksProcessed increments the counter for processed archive tasks by status.
func IncArchiveTasksProcessed(status string) {
	if Metrics != nil {
		archiveTasksProcessedTotal.WithLabelValues(status).Inc()
	}
}

// ObserveArchiveProcessingDuration records the processing time for an archive task.
func ObserveArchiveProcessingDuration(duration time.Duration) {
	if Metrics != nil {
		archiveProcessingDurationSeconds.Observe(duration.Seconds())
	}
}

// SetArchiveQueueLength sets the current archive queue length.
func SetArchiveQueueLength(length int) {
	if Metrics != nil {
		archiveQueueLength.Set(float64(length))
	}
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// SanitizeErrorType maps specific errors or provides a default category.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"), strings.Contains(errStr, "connection"):
		return "database"
	case strings.Contains(errStr, "unauthorized"):
		return "unauthorized"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"), strings.Contains(errStr, "missing field"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "unmarshal"), strings.Contains(errStr, "json"):
		return "unmarshal"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
