package waitlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Exists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, lead *model.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Notify(ctx context.Context, lead *model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.FixedZone("CET", 3600))

func newTestWorkflow(store Store, notifiers ...Notifier) (*Workflow, *metrics.InMemoryRecorder) {
	rec := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorkflow(store, Config{StoreTimeout: time.Second, Notifiers: notifiers}, logger, rec)
	w.now = func() time.Time { return fixedNow }
	w.newID = func() string { return "01HZY0000000000000000000AA" }
	return w, rec
}

func validSubmission() Submission {
	return Submission{
		Email:            "  Laura@Example.com ",
		FullName:         "Laura García",
		BusinessType:     "daycare",
		PetVolume:        "11-30",
		CompanyName:      "Patitas Felices",
		Phone:            "+34 600 123 456",
		Features:         []string{"billing", "team", "billing"},
		MarketingConsent: true,
	}
}

func TestWorkflow_Success(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	var calls []string
	exists := store.On("Exists", mock.Anything, "laura@example.com").
		Return(false, nil).
		Run(func(mock.Arguments) { calls = append(calls, "exists") }).
		Once()
	insert := store.On("Insert", mock.Anything, mock.AnythingOfType("*model.Lead")).
		Return("lead-1", nil).
		Run(func(mock.Arguments) { calls = append(calls, "insert") }).
		Once()
	mock.InOrder(exists, insert)

	w, rec := newTestWorkflow(store)
	lead, err := w.Submit(context.Background(), validSubmission())

	require.NoError(t, err)
	assert.Equal(t, []string{"exists", "insert"}, calls)
	store.AssertExpectations(t)

	assert.Equal(t, "lead-1", lead.ID)
	assert.Equal(t, "laura@example.com", lead.Email)
	assert.Equal(t, "Laura García", lead.FullName)
	assert.Equal(t, model.BusinessDaycare, lead.BusinessType)
	assert.Equal(t, model.PetVolume11To30, lead.PetVolume)
	assert.Equal(t, "Patitas Felices", model.Deref(lead.CompanyName))
	assert.Equal(t, "+34 600 123 456", model.Deref(lead.Phone))
	assert.Equal(t, []string{"billing", "team"}, lead.Features)
	assert.True(t, lead.MarketingConsent)
	assert.Equal(t, fixedNow.UTC(), lead.CreatedAt)
	assert.Equal(t, time.UTC, lead.CreatedAt.Location())

	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.WaitlistOutcomes[metrics.OutcomeSuccess])
	assert.Equal(t, uint64(1), snap.StoreCalls["precheck"])
	assert.Equal(t, uint64(1), snap.StoreCalls["insert"])
}

func TestWorkflow_OptionalFieldsBecomeNil(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, "ana@example.com").Return(false, nil).Once()
	store.On("Insert", mock.Anything, mock.MatchedBy(func(l *model.Lead) bool {
		return l.CompanyName == nil && l.Phone == nil && l.Features == nil
	})).Return("", nil).Once()

	w, _ := newTestWorkflow(store)
	lead, err := w.Submit(context.Background(), Submission{
		Email:            "ana@example.com",
		FullName:         "Ana",
		BusinessType:     "grooming",
		PetVolume:        "1-10",
		CompanyName:      "   ",
		MarketingConsent: true,
	})

	require.NoError(t, err)
	assert.Equal(t, "01HZY0000000000000000000AA", lead.ID, "generated id kept when store returns none")
	store.AssertExpectations(t)
}

func TestWorkflow_ConsentGateMakesNoStoreCalls(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		sub  Submission
	}{
		{"complete form without consent", func() Submission { s := validSubmission(); s.MarketingConsent = false; return s }()},
		{"empty form without consent", Submission{}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := new(mockStore)
			w, _ := newTestWorkflow(store)

			_, err := w.Submit(context.Background(), tc.sub)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.True(t, vErr.IsConsent())
			assert.Equal(t, FieldMarketingConsent, vErr.Field)
			assert.Equal(t, OutcomeValidationFailed, OutcomeOf(err))
			store.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}
}

func TestWorkflow_ValidationFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		mutate     func(*Submission)
		wantField  string
		wantReason Reason
	}{
		{"missing email", func(s *Submission) { s.Email = " " }, FieldEmail, ReasonMissing},
		{"missing name", func(s *Submission) { s.FullName = "" }, FieldFullName, ReasonMissing},
		{"missing business type", func(s *Submission) { s.BusinessType = "" }, FieldBusinessType, ReasonMissing},
		{"missing pet volume", func(s *Submission) { s.PetVolume = "" }, FieldPetVolume, ReasonMissing},
		{"malformed email", func(s *Submission) { s.Email = "not-an-email" }, FieldEmail, ReasonInvalid},
		{"email with display name", func(s *Submission) { s.Email = "Laura <laura@example.com>" }, FieldEmail, ReasonInvalid},
		{"unknown business type", func(s *Submission) { s.BusinessType = "zoo" }, FieldBusinessType, ReasonInvalid},
		{"unknown pet volume", func(s *Submission) { s.PetVolume = "1000" }, FieldPetVolume, ReasonInvalid},
		{"short phone", func(s *Submission) { s.Phone = "12345" }, FieldPhone, ReasonInvalid},
		{"phone with letters", func(s *Submission) { s.Phone = "555-CALL-NOW" }, FieldPhone, ReasonInvalid},
		{"unknown feature", func(s *Submission) { s.Features = []string{"teleport"} }, FieldFeatures, ReasonInvalid},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := new(mockStore)
			w, rec := newTestWorkflow(store)
			sub := validSubmission()
			tc.mutate(&sub)

			_, err := w.Submit(context.Background(), sub)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.wantField, vErr.Field)
			assert.Equal(t, tc.wantReason, vErr.Reason)
			assert.Empty(t, store.Calls)
			assert.Equal(t, uint64(1), rec.Snapshot().WaitlistOutcomes[metrics.OutcomeValidationFailed])
		})
	}
}

func TestWorkflow_DuplicateSkipsInsert(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, "laura@example.com").Return(true, nil).Once()

	w, _ := newTestWorkflow(store)
	lead, err := w.Submit(context.Background(), validSubmission())

	assert.Nil(t, lead)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, OutcomeDuplicateEmail, OutcomeOf(err))
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestWorkflow_PrecheckFailureIsNotTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	backendErr := errors.New("connection refused")
	store := new(mockStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, backendErr).Once()

	w, _ := newTestWorkflow(store)
	_, err := w.Submit(context.Background(), validSubmission())

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StagePrecheck, pErr.Stage)
	assert.ErrorIs(t, err, backendErr)
	assert.Equal(t, OutcomePersistenceFailed, OutcomeOf(err))
	store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestWorkflow_InsertFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		insertErr   error
		wantOutcome Outcome
	}{
		{"backend error", errors.New("disk full"), OutcomePersistenceFailed},
		{"uniqueness violation", fmt.Errorf("insert lead: %w", ErrDuplicateEmail), OutcomeDuplicateEmail},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := new(mockStore)
			store.On("Exists", mock.Anything, mock.Anything).Return(false, nil).Once()
			store.On("Insert", mock.Anything, mock.Anything).Return("", tc.insertErr).Once()

			w, _ := newTestWorkflow(store)
			lead, err := w.Submit(context.Background(), validSubmission())

			assert.Nil(t, lead)
			assert.Equal(t, tc.wantOutcome, OutcomeOf(err))
			if tc.wantOutcome == OutcomePersistenceFailed {
				var pErr *PersistenceError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, StageInsert, pErr.Stage)
				assert.ErrorIs(t, err, tc.insertErr)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestWorkflow_StoreTimeout(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, mock.Anything).
		Return(false, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Once()

	w, _ := newTestWorkflow(store)
	w.storeTimeout = 20 * time.Millisecond

	_, err := w.Submit(context.Background(), validSubmission())

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StagePrecheck, pErr.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkflow_CallerCancellationDoesNotAbortStoreCall(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	store := new(mockStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).
		Return("lead-9", nil).
		Run(func(args mock.Arguments) {
			cancel()
			callCtx := args.Get(0).(context.Context)
			assert.NoError(t, callCtx.Err(), "store call context should survive caller cancellation")
		}).
		Once()

	w, _ := newTestWorkflow(store)
	lead, err := w.Submit(ctx, validSubmission())

	require.NoError(t, err)
	assert.Equal(t, "lead-9", lead.ID)
}

func TestWorkflow_RetryAfterCorrectionSucceeds(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, "laura@example.com").Return(false, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return("lead-2", nil).Once()

	w, _ := newTestWorkflow(store)
	sub := validSubmission()
	sub.FullName = ""

	_, err := w.Submit(context.Background(), sub)
	require.Equal(t, OutcomeValidationFailed, OutcomeOf(err))
	assert.Empty(t, store.Calls)

	sub.FullName = "Laura García"
	lead, err := w.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "lead-2", lead.ID)
	store.AssertExpectations(t)
}

func TestWorkflow_StateSequence(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return("lead-3", nil).Once()

	w, _ := newTestWorkflow(store)
	var states []State
	w.observe = func(s State) { states = append(states, s) }

	_, err := w.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, []State{StateValidating, StateCheckingDuplicate, StateInserting}, states)
}

func TestWorkflow_NotifiersRunAfterSuccess(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil).Once()
	store.On("Insert", mock.Anything, mock.Anything).Return("lead-4", nil).Once()

	ok := new(mockNotifier)
	ok.On("Notify", mock.Anything, mock.MatchedBy(func(l *model.Lead) bool { return l.ID == "lead-4" })).Return(nil).Once()
	failing := new(mockNotifier)
	failing.On("Notify", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	w, rec := newTestWorkflow(store, ok, failing)
	lead, err := w.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	require.NotNil(t, lead)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Wait(ctx))

	ok.AssertExpectations(t)
	failing.AssertExpectations(t)
	snap := rec.Snapshot()
	assert.Equal(t, uint64(1), snap.NotificationsSent)
	assert.Equal(t, uint64(1), snap.NotificationsFailed)
	assert.Equal(t, uint64(1), snap.WaitlistOutcomes[metrics.OutcomeSuccess])
}

func TestWorkflow_NoNotificationOnFailure(t *testing.T) {
	t.Parallel()

	store := new(mockStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(true, nil).Once()
	n := new(mockNotifier)

	w, _ := newTestWorkflow(store, n)
	_, err := w.Submit(context.Background(), validSubmission())
	require.ErrorIs(t, err, ErrDuplicateEmail)
	require.NoError(t, w.Wait(context.Background()))

	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeSuccess},
		{ErrDuplicateEmail, OutcomeDuplicateEmail},
		{&ValidationError{Field: FieldEmail, Reason: ReasonMissing}, OutcomeValidationFailed},
		{&PersistenceError{Stage: StageInsert, Err: errors.New("x")}, OutcomePersistenceFailed},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, OutcomeOf(tc.err), "OutcomeOf(%v)", tc.err)
	}
}
