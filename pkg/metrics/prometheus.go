// Package metrics provides Prometheus metrics for the tradesync service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the tradesync service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Event Source and reconciliation
	eventsPublished *prometheus.CounterVec
	eventsHandled   *prometheus.CounterVec
	eventsIgnored   *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	handlerLatency  *prometheus.HistogramVec
	alertsUpserted  *prometheus.CounterVec
	pendingActions  prometheus.Gauge

	// Supervised tasks
	tasksStarted *prometheus.CounterVec
	taskFailures *prometheus.CounterVec
	taskLatency  *prometheus.HistogramVec

	// Throttle
	throttleExecuted   *prometheus.CounterVec
	throttleSuppressed *prometheus.CounterVec

	// Queue Metrics - engine inbox
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Transport
	wsConnections       prometheus.Gauge
	wsMessages          *prometheus.CounterVec
	wsProtocolErrors    prometheus.Counter
	wsDroppedFrames     prometheus.Counter
	activeSubscriptions prometheus.Gauge
	subscriptionEvents  prometheus.Counter

	// Dispatcher
	dispatchRequests *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec

	// Feed
	feedMessages *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors by component
	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tradesync",
		subsystem:        "sync",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Event Source and reconciliation
	m.eventsPublished = m.counterVec("events_published_total", "Total number of events published to the event source", "event")
	m.eventsHandled = m.counterVec("events_handled_total", "Total number of events handled by the reconciliation engine", "event")
	m.eventsIgnored = m.counterVec("events_ignored_total", "Total number of events with no registered handler", "event")
	m.eventsDropped = m.counterVec("events_dropped_total", "Total number of events never reconciled because the engine inbox refused them", "event")
	m.handlerErrors = m.counterVec("handler_errors_total", "Total number of handler failures isolated by the engine", "event")
	m.handlerLatency = m.histogramVec("handler_latency_milliseconds", "Handler latency in milliseconds", "event")
	m.alertsUpserted = m.counterVec("alerts_upserted_total", "Total number of alerts created or replaced", "name")
	m.pendingActions = m.gauge("pending_actions", "Current number of pending actions")

	// Supervised tasks
	m.tasksStarted = m.counterVec("tasks_started_total", "Total number of supervised secondary loads started", "task")
	m.taskFailures = m.counterVec("task_failures_total", "Total number of supervised secondary loads that failed or panicked", "task")
	m.taskLatency = m.histogramVec("task_latency_milliseconds", "Secondary load latency in milliseconds", "task")

	// Throttle
	m.throttleExecuted = m.counterVec("throttle_executed_total", "Total number of throttled calls that ran", "resource")
	m.throttleSuppressed = m.counterVec("throttle_suppressed_total", "Total number of throttled calls that were dropped", "resource")

	// Queue Metrics - engine inbox
	m.queueSize = m.gauge("queue_size", "Current size of the engine inbox (backlog indicator)")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the engine inbox")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Current engine inbox utilization ratio (0.0 to 1.0)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of events enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of events dropped at enqueue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time an event spends in the engine inbox")

	// Worker Metrics
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds")
	m.workerErrorRate = m.counter("worker_errors_total", "Total number of worker processing errors")

	// Transport
	m.wsConnections = m.gauge("ws_connections", "Current number of open websocket connections")
	m.wsMessages = m.counterVec("ws_messages_total", "Total number of inbound websocket messages by method", "method")
	m.wsProtocolErrors = m.counter("ws_protocol_errors_total", "Total number of malformed inbound messages dropped")
	m.wsDroppedFrames = m.counter("ws_dropped_frames_total", "Total number of outbound frames dropped on a full send buffer")
	m.activeSubscriptions = m.gauge("active_subscriptions", "Current number of active event subscriptions")
	m.subscriptionEvents = m.counter("subscription_deliveries_total", "Total number of events delivered to subscribers")

	// Dispatcher
	m.dispatchRequests = m.counterVec("dispatch_requests_total", "Total number of dispatched requests by method and status", "method", "status")
	m.dispatchLatency = m.histogramVec("dispatch_latency_milliseconds", "Dispatch latency in milliseconds", "method")

	// Feed
	m.feedMessages = m.counterVec("feed_messages_total", "Total number of feed messages by source and status", "source", "status")

	// HTTP Performance Metrics
	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	// Errors by component
	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component and error type", "component", "error_type")

	// System Performance Metrics
	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Current system memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Current number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Garbage collection pause time in milliseconds")
}

// Event Source and reconciliation.

// RecordEventPublished increments the published counter for name.
func RecordEventPublished(name string) {
	globalManager.eventsPublished.WithLabelValues(name).Inc()
}

// RecordEventHandled increments the handled counter for name.
func RecordEventHandled(name string) {
	globalManager.eventsHandled.WithLabelValues(name).Inc()
}

// RecordEventIgnored increments the ignored counter for name.
func RecordEventIgnored(name string) {
	globalManager.eventsIgnored.WithLabelValues(name).Inc()
}

// RecordEventDropped increments the dropped counter for name.
func RecordEventDropped(name string) {
	globalManager.eventsDropped.WithLabelValues(name).Inc()
}

// RecordHandlerError increments the handler error counter for name.
func RecordHandlerError(name string) {
	globalManager.handlerErrors.WithLabelValues(name).Inc()
}

// RecordHandlerLatency records handler latency in milliseconds.
func RecordHandlerLatency(name string, latencyMs float64) {
	globalManager.handlerLatency.WithLabelValues(name).Observe(latencyMs)
}

// RecordAlertUpserted increments the alert counter for name.
func RecordAlertUpserted(name string) {
	globalManager.alertsUpserted.WithLabelValues(name).Inc()
}

// UpdatePendingActions sets the pending actions gauge.
func UpdatePendingActions(count int) {
	globalManager.pendingActions.Set(float64(count))
}

// Supervised tasks.

// RecordTaskStarted increments the started counter for task.
func RecordTaskStarted(task string) {
	globalManager.tasksStarted.WithLabelValues(task).Inc()
}

// RecordTaskFailure increments the failure counter for task.
func RecordTaskFailure(task string) {
	globalManager.taskFailures.WithLabelValues(task).Inc()
}

// RecordTaskLatency records task latency in milliseconds.
func RecordTaskLatency(task string, latencyMs float64) {
	globalManager.taskLatency.WithLabelValues(task).Observe(latencyMs)
}

// Throttle.

// RecordThrottleExecuted increments the executed counter for resource.
func RecordThrottleExecuted(resource string) {
	globalManager.throttleExecuted.WithLabelValues(resource).Inc()
}

// RecordThrottleSuppressed increments the suppressed counter for resource.
func RecordThrottleSuppressed(resource string) {
	globalManager.throttleSuppressed.WithLabelValues(resource).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Transport.

// UpdateWSConnections adds delta to the open connections gauge.
func UpdateWSConnections(delta int) {
	globalManager.wsConnections.Add(float64(delta))
}

// RecordWSMessage increments the inbound message counter for method.
func RecordWSMessage(method string) {
	globalManager.wsMessages.WithLabelValues(method).Inc()
}

// RecordWSProtocolError increments the protocol error counter.
func RecordWSProtocolError() {
	globalManager.wsProtocolErrors.Inc()
}

// RecordWSDroppedFrame increments the dropped frame counter.
func RecordWSDroppedFrame() {
	globalManager.wsDroppedFrames.Inc()
}

// UpdateActiveSubscriptions adds delta to the active subscriptions gauge.
func UpdateActiveSubscriptions(delta int) {
	globalManager.activeSubscriptions.Add(float64(delta))
}

// RecordSubscriptionDelivery increments the delivery counter.
func RecordSubscriptionDelivery() {
	globalManager.subscriptionEvents.Inc()
}

// Dispatcher.

// RecordDispatch records a dispatched request.
func RecordDispatch(method, status string, latencyMs float64) {
	globalManager.dispatchRequests.WithLabelValues(method, status).Inc()
	globalManager.dispatchLatency.WithLabelValues(method).Observe(latencyMs)
}

// RecordFeedMessage increments the feed counter.
func RecordFeedMessage(source, status string) {
	globalManager.feedMessages.WithLabelValues(source, status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
