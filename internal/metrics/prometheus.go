package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exposes metrics through a Prometheus registry.
type PrometheusRecorder struct {
	roiComputed       *prometheus.CounterVec
	waitlistOutcomes  *prometheus.CounterVec
	storeCallDuration *prometheus.HistogramVec
	notifications     *prometheus.CounterVec
	leadEvents        *prometheus.CounterVec
	leadQueueDepth    prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewPrometheus registers the application collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		roiComputed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roi_computations_total",
				Help: "Total number of ROI computations",
			},
			[]string{"cached"},
		),
		waitlistOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_submissions_total",
				Help: "Total number of waitlist submissions by outcome",
			},
			[]string{"outcome"},
		),
		storeCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waitlist_store_call_duration_seconds",
				Help:    "Duration of waitlist store calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_notifications_total",
				Help: "Total number of post-signup notifications",
			},
			[]string{"notifier", "status"},
		),
		leadEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_events_processed_total",
				Help: "Total number of lead stream events processed by status",
			},
			[]string{"status"},
		),
		leadQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lead_events_queue_depth",
				Help: "Pending plus unread lead stream events",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// IncROIComputed increments the ROI counter.
func (p *PrometheusRecorder) IncROIComputed(cached bool) {
	p.roiComputed.WithLabelValues(strconv.FormatBool(cached)).Inc()
}

// IncWaitlistOutcome increments the outcome counter.
func (p *PrometheusRecorder) IncWaitlistOutcome(outcome string) {
	p.waitlistOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveStoreCall records the duration of a store call.
func (p *PrometheusRecorder) ObserveStoreCall(stage string, duration time.Duration) {
	p.storeCallDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncNotification increments the notification counter.
func (p *PrometheusRecorder) IncNotification(notifier, status string) {
	p.notifications.WithLabelValues(notifier, status).Inc()
}

// IncLeadEventProcessed increments the lead event counter.
func (p *PrometheusRecorder) IncLeadEventProcessed(status string) {
	p.leadEvents.WithLabelValues(status).Inc()
}

// SetLeadQueueDepth sets the lead stream backlog gauge.
func (p *PrometheusRecorder) SetLeadQueueDepth(depth int64) {
	p.leadQueueDepth.Set(float64(depth))
}

// ObserveHTTPRequest records an HTTP request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
