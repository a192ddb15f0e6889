package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncROIComputed is a no-op.
func (n *NoopRecorder) IncROIComputed(cached bool) {}

// IncWaitlistOutcome is a no-op.
func (n *NoopRecorder) IncWaitlistOutcome(outcome string) {}

// ObserveStoreCall is a no-op.
func (n *NoopRecorder) ObserveStoreCall(stage string, duration time.Duration) {}

// IncNotification is a no-op.
func (n *NoopRecorder) IncNotification(notifier, status string) {}

// IncLeadEventProcessed is a no-op.
func (n *NoopRecorder) IncLeadEventProcessed(status string) {}

// SetLeadQueueDepth is a no-op.
func (n *NoopRecorder) SetLeadQueueDepth(depth int64) {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
