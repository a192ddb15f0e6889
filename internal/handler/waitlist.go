package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/guaupro/landing/internal/handler/dto"
	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/waitlist"
)

// DefaultSubmissionLockTTL bounds how long one email's submission lock is held.
// It covers a precheck and an insert that both run to the store timeout.
const DefaultSubmissionLockTTL = 2*waitlist.DefaultStoreTimeout + 5*time.Second

// Submitter runs the waitlist pipeline.
type Submitter interface {
	Submit(ctx context.Context, sub waitlist.Submission) (*model.Lead, error)
}

// SubmissionLocker serializes submissions for the same email across instances.
type SubmissionLocker interface {
	AcquireSubmissionLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// WaitlistHandler handles waitlist form submissions.
type WaitlistHandler struct {
	workflow Submitter
	locker   SubmissionLocker
	lockTTL  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewWaitlistHandler creates a new WaitlistHandler. A nil locker disables
// the cross-request submission lock.
func NewWaitlistHandler(workflow Submitter, locker SubmissionLocker, lockTTL time.Duration, logger *slog.Logger, recorder metrics.Recorder) *WaitlistHandler {
	if lockTTL <= 0 {
		lockTTL = DefaultSubmissionLockTTL
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &WaitlistHandler{
		workflow: workflow,
		locker:   locker,
		lockTTL:  lockTTL,
		logger:   logger,
		metrics:  recorder,
	}
}

// Submit handles POST /api/v1/waitlist
func (h *WaitlistHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.WaitlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	if email := model.NormalizeEmail(req.Email); email != "" && h.locker != nil {
		release, acquired, err := h.locker.AcquireSubmissionLock(ctx, email, h.lockTTL)
		switch {
		case err != nil:
			// The unique index still guards against double inserts.
			h.logger.Warn("submission lock unavailable", "error", err)
		case !acquired:
			h.metrics.IncWaitlistOutcome(metrics.OutcomeInProgress)
			h.handleWaitlistError(w, waitlist.ErrSubmissionInProgress)
			return
		default:
			defer release()
		}
	}

	lead, err := h.workflow.Submit(ctx, req.ToSubmission())
	if err != nil {
		h.handleWaitlistError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.WaitlistResponse{
		Status: "success",
		ID:     lead.ID,
	})
}

// handleWaitlistError maps workflow errors to HTTP responses.
func (h *WaitlistHandler) handleWaitlistError(w http.ResponseWriter, err error) {
	var (
		validationErr  *waitlist.ValidationError
		persistenceErr *waitlist.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr) && validationErr.IsConsent():
		writeFieldError(w, http.StatusUnprocessableEntity, "CONSENT_REQUIRED",
			"You must accept to receive communications to join the waitlist", validationErr.Field)
	case errors.As(err, &validationErr) && validationErr.Reason == waitlist.ReasonMissing:
		writeFieldError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"Please fill in all required fields", validationErr.Field)
	case errors.As(err, &validationErr):
		writeFieldError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"Please check the highlighted field", validationErr.Field)
	case errors.Is(err, waitlist.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "DUPLICATE_EMAIL", "This email is already on the waitlist")
	case errors.Is(err, waitlist.ErrSubmissionInProgress):
		writeError(w, http.StatusConflict, "SUBMISSION_IN_PROGRESS", "Your submission is already being processed")
	case errors.As(err, &persistenceErr):
		writeError(w, http.StatusServiceUnavailable, "SUBMISSION_FAILED",
			"We could not save your submission, please try again")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
