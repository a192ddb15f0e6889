package waitlist

import (
	"errors"
	"fmt"
)

// Workflow errors.
var (
	// ErrDuplicateEmail is returned when the email is already on the waitlist.
	// Store implementations return it (wrapped or bare) on a uniqueness violation.
	ErrDuplicateEmail = errors.New("email already on the waitlist")

	// ErrSubmissionInProgress is returned when the same email already has a submission in flight.
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// Reason explains why a field failed validation.
type Reason string

const (
	ReasonMissing         Reason = "missing"
	ReasonInvalid         Reason = "invalid"
	ReasonConsentRequired Reason = "consent_required"
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason Reason
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonConsentRequired {
		return "marketing consent is required"
	}
	return fmt.Sprintf("field %s is %s", e.Field, e.Reason)
}

// IsConsent reports whether the failure is the consent gate.
func (e *ValidationError) IsConsent() bool {
	return e.Reason == ReasonConsentRequired
}

// Stage names the store call that failed.
type Stage string

const (
	StagePrecheck Stage = "precheck"
	StageInsert   Stage = "insert"
)

// PersistenceError wraps a store failure with the stage it happened in.
// Err carries diagnostic detail and must not be shown to end users.
type PersistenceError struct {
	Stage Stage
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("waitlist %s failed: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
