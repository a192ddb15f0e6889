package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	rec := NewInMemory()
	rec.IncROIComputed(false)
	rec.IncROIComputed(true)
	rec.IncWaitlistOutcome(OutcomeSuccess)
	rec.IncWaitlistOutcome(OutcomeSuccess)
	rec.IncWaitlistOutcome(OutcomeDuplicate)
	rec.ObserveStoreCall("precheck", time.Millisecond)
	rec.ObserveStoreCall("insert", 2*time.Millisecond)
	rec.IncNotification("mail", "sent")
	rec.IncNotification("events", "failed")
	rec.IncLeadEventProcessed("success")
	rec.IncLeadEventProcessed("dead_lettered")
	rec.SetLeadQueueDepth(7)
	rec.ObserveHTTPRequest("GET", "/healthz", 200, time.Millisecond)

	snap := rec.Snapshot()
	if snap.ROIComputed != 2 || snap.ROICacheHits != 1 {
		t.Errorf("ROI counters = %d/%d, want 2/1", snap.ROIComputed, snap.ROICacheHits)
	}
	if snap.WaitlistOutcomes[OutcomeSuccess] != 2 {
		t.Errorf("success outcomes = %d, want 2", snap.WaitlistOutcomes[OutcomeSuccess])
	}
	if snap.WaitlistOutcomes[OutcomeDuplicate] != 1 {
		t.Errorf("duplicate outcomes = %d, want 1", snap.WaitlistOutcomes[OutcomeDuplicate])
	}
	if snap.StoreCalls["precheck"] != 1 || snap.StoreCalls["insert"] != 1 {
		t.Errorf("StoreCalls = %v, want one per stage", snap.StoreCalls)
	}
	if snap.StoreCallTotalNs != int64(3*time.Millisecond) {
		t.Errorf("StoreCallTotalNs = %d, want %d", snap.StoreCallTotalNs, 3*time.Millisecond)
	}
	if snap.NotificationsSent != 1 || snap.NotificationsFailed != 1 {
		t.Errorf("notifications = %d/%d, want 1/1", snap.NotificationsSent, snap.NotificationsFailed)
	}
	if snap.LeadEvents["success"] != 1 || snap.LeadEvents["dead_lettered"] != 1 {
		t.Errorf("LeadEvents = %v", snap.LeadEvents)
	}
	if snap.LeadQueueDepth != 7 {
		t.Errorf("LeadQueueDepth = %d, want 7", snap.LeadQueueDepth)
	}
	if snap.HTTPRequests != 1 || snap.HTTPRoutes["GET /healthz"] != 1 {
		t.Errorf("HTTP = %d %v, want 1 request on GET /healthz", snap.HTTPRequests, snap.HTTPRoutes)
	}
}

func TestInMemoryRecorder_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	rec := NewInMemory()
	rec.IncWaitlistOutcome(OutcomeSuccess)
	snap := rec.Snapshot()
	snap.WaitlistOutcomes[OutcomeSuccess] = 99

	if got := rec.Snapshot().WaitlistOutcomes[OutcomeSuccess]; got != 1 {
		t.Errorf("recorder mutated through snapshot: got %d, want 1", got)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := NewPrometheus(reg)

	rec.IncWaitlistOutcome(OutcomeSuccess)
	rec.IncWaitlistOutcome(OutcomeSuccess)
	rec.IncROIComputed(true)
	rec.ObserveHTTPRequest("POST", "/api/v1/waitlist", 201, 5*time.Millisecond)

	expected := `
# HELP waitlist_submissions_total Total number of waitlist submissions by outcome
# TYPE waitlist_submissions_total counter
waitlist_submissions_total{outcome="success"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "waitlist_submissions_total"); err != nil {
		t.Errorf("unexpected waitlist metrics: %v", err)
	}

	if got := testutil.ToFloat64(rec.roiComputed.WithLabelValues("true")); got != 1 {
		t.Errorf("roi_computations_total{cached=true} = %v, want 1", got)
	}
	rec.SetLeadQueueDepth(3)
	if got := testutil.ToFloat64(rec.leadQueueDepth); got != 3 {
		t.Errorf("lead_events_queue_depth = %v, want 3", got)
	}
	if got := testutil.ToFloat64(rec.httpRequests.WithLabelValues("POST", "/api/v1/waitlist", "201")); got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}
}

func TestRecordersImplementInterface(t *testing.T) {
	t.Parallel()

	var _ Recorder = NewNoop()
	var _ Recorder = NewInMemory()
	var _ Recorder = NewPrometheus(prometheus.NewRegistry())
	var _ Snapshotter = NewInMemory()
}
