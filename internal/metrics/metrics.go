// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Waitlist outcome labels.
const (
	OutcomeSuccess           = "success"
	OutcomeDuplicate         = "duplicate_email"
	OutcomeValidationFailed  = "validation_failed"
	OutcomePersistenceFailed = "persistence_failed"
	OutcomeInProgress        = "in_progress"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// ROI metrics
	IncROIComputed(cached bool)

	// Waitlist metrics
	IncWaitlistOutcome(outcome string)
	ObserveStoreCall(stage string, duration time.Duration) // stage: "precheck" or "insert"
	IncNotification(notifier, status string)               // status: "sent" or "failed"

	// Lead event stream metrics
	IncLeadEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	SetLeadQueueDepth(depth int64)

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
