// Package waitlist runs the lead-capture pipeline behind the landing page form.
package waitlist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/model"
)

// Default timeouts.
const (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultNotifyTimeout = 10 * time.Second
)

// Store is the persistence collaborator used by the workflow.
// Insert must return an error matching ErrDuplicateEmail when the email is taken.
type Store interface {
	Exists(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, lead *model.Lead) (string, error)
}

// Notifier is told about every lead that joined the waitlist.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, lead *model.Lead) error
}

// Submission is an immutable snapshot of the form fields.
type Submission struct {
	Email            string
	FullName         string
	BusinessType     string
	PetVolume        string
	CompanyName      string
	Phone            string
	Features         []string
	MarketingConsent bool
}

// State is a step of the submission pipeline.
type State string

const (
	StateIdle              State = "idle"
	StateValidating        State = "validating"
	StateCheckingDuplicate State = "checking_duplicate"
	StateInserting         State = "inserting"
)

// Outcome is the terminal result of a submission.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeDuplicateEmail    Outcome = "duplicate_email"
	OutcomeValidationFailed  Outcome = "validation_failed"
	OutcomePersistenceFailed Outcome = "persistence_failed"
)

// OutcomeOf maps a Submit error to its terminal outcome.
func OutcomeOf(err error) Outcome {
	var validationErr *ValidationError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrDuplicateEmail):
		return OutcomeDuplicateEmail
	case errors.As(err, &validationErr):
		return OutcomeValidationFailed
	default:
		return OutcomePersistenceFailed
	}
}

// Config tunes the workflow.
type Config struct {
	StoreTimeout  time.Duration
	NotifyTimeout time.Duration
	Notifiers     []Notifier
}

// Workflow validates a submission, rejects duplicates and persists the lead.
// Store calls run one after the other and are never retried.
type Workflow struct {
	store         Store
	notifiers     []Notifier
	storeTimeout  time.Duration
	notifyTimeout time.Duration
	logger        *slog.Logger
	metrics       metrics.Recorder

	now     func() time.Time
	newID   func() string
	observe func(State)

	pending sync.WaitGroup
}

// NewWorkflow creates a new Workflow.
func NewWorkflow(store Store, cfg Config, logger *slog.Logger, recorder metrics.Recorder) *Workflow {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Workflow{
		store:         store,
		notifiers:     cfg.Notifiers,
		storeTimeout:  cfg.StoreTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		logger:        logger,
		metrics:       recorder,
		now:           time.Now,
		newID:         func() string { return ulid.Make().String() },
		observe:       func(State) {},
	}
}

// Submit runs the pipeline for sub and returns the persisted lead.
//
// Errors are *ValidationError, ErrDuplicateEmail or *PersistenceError.
// Cancelling ctx does not abort a store call that already started.
func (w *Workflow) Submit(ctx context.Context, sub Submission) (*model.Lead, error) {
	lead, err := w.submit(ctx, sub)
	w.metrics.IncWaitlistOutcome(string(OutcomeOf(err)))
	return lead, err
}

func (w *Workflow) submit(ctx context.Context, sub Submission) (*model.Lead, error) {
	w.observe(StateValidating)
	if err := Validate(sub); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ID:               w.newID(),
		Email:            model.NormalizeEmail(sub.Email),
		FullName:         strings.TrimSpace(sub.FullName),
		BusinessType:     model.BusinessType(strings.TrimSpace(sub.BusinessType)),
		PetVolume:        model.PetVolume(strings.TrimSpace(sub.PetVolume)),
		CompanyName:      model.OptionalString(sub.CompanyName),
		Phone:            model.OptionalString(sub.Phone),
		Features:         normalizeFeatures(sub.Features),
		MarketingConsent: true,
	}

	w.observe(StateCheckingDuplicate)
	exists, err := w.exists(ctx, lead.Email)
	if err != nil {
		w.logger.Error("waitlist duplicate check failed", "stage", StagePrecheck, "error", err)
		return nil, &PersistenceError{Stage: StagePrecheck, Err: err}
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	w.observe(StateInserting)
	lead.CreatedAt = w.now().UTC()
	id, err := w.insert(ctx, lead)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		w.logger.Error("waitlist insert failed", "stage", StageInsert, "error", err)
		return nil, &PersistenceError{Stage: StageInsert, Err: err}
	}
	if id != "" {
		lead.ID = id
	}

	w.logger.Info("waitlist lead created",
		"lead_id", lead.ID,
		"business_type", lead.BusinessType,
		"pet_volume", lead.PetVolume,
	)
	w.notify(ctx, lead)
	return lead, nil
}

func (w *Workflow) exists(ctx context.Context, email string) (bool, error) {
	callCtx, cancel := w.storeContext(ctx)
	defer cancel()

	start := time.Now()
	exists, err := w.store.Exists(callCtx, email)
	w.metrics.ObserveStoreCall(string(StagePrecheck), time.Since(start))
	return exists, err
}

func (w *Workflow) insert(ctx context.Context, lead *model.Lead) (string, error) {
	callCtx, cancel := w.storeContext(ctx)
	defer cancel()

	start := time.Now()
	id, err := w.store.Insert(callCtx, lead)
	w.metrics.ObserveStoreCall(string(StageInsert), time.Since(start))
	return id, err
}

// storeContext detaches the call from caller cancellation and bounds it by storeTimeout.
func (w *Workflow) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), w.storeTimeout)
}

// notify runs every notifier in the background. Failures are logged only.
func (w *Workflow) notify(ctx context.Context, lead *model.Lead) {
	if len(w.notifiers) == 0 {
		return
	}
	snapshot := *lead
	base := context.WithoutCancel(ctx)
	for _, n := range w.notifiers {
		w.pending.Add(1)
		go func(n Notifier) {
			defer w.pending.Done()
			notifyCtx, cancel := context.WithTimeout(base, w.notifyTimeout)
			defer cancel()

			l := snapshot
			if err := n.Notify(notifyCtx, &l); err != nil {
				w.metrics.IncNotification(n.Name(), "failed")
				w.logger.Warn("waitlist notification failed",
					"notifier", n.Name(),
					"lead_id", l.ID,
					"error", err,
				)
				return
			}
			w.metrics.IncNotification(n.Name(), "sent")
		}(n)
	}
}

// Wait blocks until background notifications finish or ctx is done.
func (w *Workflow) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
