package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/model"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "lead_workers"

	// DefaultBatchSize is the max events read per call.
	DefaultBatchSize = 50

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxRetries is the max attempts per event.
	DefaultMaxRetries = 3

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = 2 * time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 15 * time.Second

	deadLetterMaxLen = 10000
)

// Handler acts on one lead event. waitlist.Notifier implementations
// satisfy it.
type Handler interface {
	Name() string
	Notify(ctx context.Context, lead *model.Lead) error
}

// Worker consumes lead events and hands them to a Handler.
// Events are acked only after the handler succeeds.
type Worker struct {
	redis           *redis.Client
	handler         Handler
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxRetries      int
	backoff         func(attempt int) time.Duration
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a lead event worker.
func NewWorker(client *redis.Client, handler Handler, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		handler:         handler,
		logger:          logger.With("component", "events.worker", "consumer_id", consumerID, "handler", handler.Name()),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxRetries:      DefaultMaxRetries,
		backoff:         func(attempt int) time.Duration { return time.Duration(1<<attempt) * time.Second },
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// SetClaimInterval overrides the default pending-claim interval.
func (w *Worker) SetClaimInterval(interval time.Duration) {
	if interval > 0 {
		w.claimInterval = interval
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("lead event worker started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()
		if draining {
			w.logger.Info("lead event worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("lead event worker stopping")
			return nil
		default:
		}

		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("process error", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight batch.
// It matches server.ShutdownFunc.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	w.logger.Info("lead event worker shutdown initiated")
	cancel()

	select {
	case <-done:
		w.logger.Info("lead event worker shutdown complete")
		return nil
	case <-ctx.Done():
		w.logger.Warn("lead event worker shutdown timed out")
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// processOnce reads one batch (reclaimed or new) and handles every message.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		if err := w.handleMessage(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// handleMessage processes one message. Poison messages are dead-lettered
// and acked; handler failures stay pending for a later claim.
func (w *Worker) handleMessage(ctx context.Context, msg redis.XMessage) error {
	lead, reason, detail := decodeMessage(msg)
	if lead == nil {
		w.deadLetter(ctx, msg, reason, detail)
		return w.ack(ctx, msg.ID)
	}

	if err := w.handleWithRetry(ctx, lead); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		w.logger.Error("lead event failed after retries",
			"message_id", msg.ID,
			"lead_id", lead.ID,
			"error", err,
		)
		w.metrics.IncLeadEventProcessed("failed")
		return nil
	}

	w.metrics.IncLeadEventProcessed("success")
	return w.ack(ctx, msg.ID)
}

func (w *Worker) handleWithRetry(ctx context.Context, lead *model.Lead) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		if lastErr = w.handler.Notify(ctx, lead); lastErr == nil {
			return nil
		}
		if attempt == w.maxRetries {
			break
		}

		backoff := w.backoff(attempt)
		w.logger.Warn("lead event handler failed, retrying",
			"attempt", attempt,
			"backoff_seconds", backoff.Seconds(),
			"error", lastErr,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// decodeMessage extracts a lead from msg. On failure it returns a nil lead
// and a dead-letter reason.
func decodeMessage(msg redis.XMessage) (*model.Lead, string, string) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return nil, "invalid_format", "payload field missing or not a string"
	}

	var payload LeadPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, "unmarshal_error", err.Error()
	}
	if err := ValidateLeadPayload(payload); err != nil {
		return nil, "validation_error", err.Error()
	}
	return payload.Lead(), "", ""
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetLeadQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering poison message",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: deadLetterMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"original_stream":  StreamKey,
			"reason":           reason,
			"detail":           detail,
			"payload":          fmt.Sprint(msg.Values["payload"]),
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		w.logger.Error("failed to write to dead-letter queue",
			"message_id", msg.ID,
			"error", err,
		)
	}

	w.metrics.IncLeadEventProcessed("dead_lettered")
}

func (w *Worker) ack(ctx context.Context, id string) error {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}
