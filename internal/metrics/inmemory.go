package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ROIComputed         uint64
	ROICacheHits        uint64
	WaitlistOutcomes    map[string]uint64
	StoreCalls          map[string]uint64
	StoreCallTotalNs    int64
	NotificationsSent   uint64
	NotificationsFailed uint64
	LeadEvents          map[string]uint64
	LeadQueueDepth      int64
	HTTPRequests        uint64
	HTTPRoutes          map[string]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	roiComputed         uint64
	roiCacheHits        uint64
	storeCallTotalNs    int64
	notificationsSent   uint64
	notificationsFailed uint64
	httpRequests        uint64
	leadQueueDepth      int64

	mu       sync.Mutex
	outcomes map[string]uint64
	stages   map[string]uint64
	routes   map[string]uint64
	events   map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		outcomes: make(map[string]uint64),
		stages:   make(map[string]uint64),
		routes:   make(map[string]uint64),
		events:   make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	outcomes := make(map[string]uint64, len(m.outcomes))
	for k, v := range m.outcomes {
		outcomes[k] = v
	}
	stages := make(map[string]uint64, len(m.stages))
	for k, v := range m.stages {
		stages[k] = v
	}
	routes := make(map[string]uint64, len(m.routes))
	for k, v := range m.routes {
		routes[k] = v
	}
	events := make(map[string]uint64, len(m.events))
	for k, v := range m.events {
		events[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		ROIComputed:         atomic.LoadUint64(&m.roiComputed),
		ROICacheHits:        atomic.LoadUint64(&m.roiCacheHits),
		WaitlistOutcomes:    outcomes,
		StoreCalls:          stages,
		StoreCallTotalNs:    atomic.LoadInt64(&m.storeCallTotalNs),
		NotificationsSent:   atomic.LoadUint64(&m.notificationsSent),
		NotificationsFailed: atomic.LoadUint64(&m.notificationsFailed),
		LeadEvents:          events,
		LeadQueueDepth:      atomic.LoadInt64(&m.leadQueueDepth),
		HTTPRequests:        atomic.LoadUint64(&m.httpRequests),
		HTTPRoutes:          routes,
	}
}

// IncROIComputed increments the ROI counter and the memo hit counter.
func (m *InMemoryRecorder) IncROIComputed(cached bool) {
	atomic.AddUint64(&m.roiComputed, 1)
	if cached {
		atomic.AddUint64(&m.roiCacheHits, 1)
	}
}

// IncWaitlistOutcome increments the counter for outcome.
func (m *InMemoryRecorder) IncWaitlistOutcome(outcome string) {
	m.mu.Lock()
	m.outcomes[outcome]++
	m.mu.Unlock()
}

// ObserveStoreCall records a store call for stage.
func (m *InMemoryRecorder) ObserveStoreCall(stage string, duration time.Duration) {
	m.mu.Lock()
	m.stages[stage]++
	m.mu.Unlock()
	atomic.AddInt64(&m.storeCallTotalNs, duration.Nanoseconds())
}

// IncNotification increments the sent or failed notification counter.
func (m *InMemoryRecorder) IncNotification(notifier, status string) {
	if status == "sent" {
		atomic.AddUint64(&m.notificationsSent, 1)
		return
	}
	atomic.AddUint64(&m.notificationsFailed, 1)
}

// IncLeadEventProcessed counts stream events by status.
func (m *InMemoryRecorder) IncLeadEventProcessed(status string) {
	m.mu.Lock()
	m.events[status]++
	m.mu.Unlock()
}

// SetLeadQueueDepth stores the last reported stream backlog.
func (m *InMemoryRecorder) SetLeadQueueDepth(depth int64) {
	atomic.StoreInt64(&m.leadQueueDepth, depth)
}

// ObserveHTTPRequest counts requests, keyed "METHOD route".
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
	m.mu.Lock()
	m.routes[method+" "+route]++
	m.mu.Unlock()
}
