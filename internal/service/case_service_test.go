package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
)

type mockCaseStore struct {
	cases          map[string]models.Case
	existing       map[string]bool
	existsCalls    int
	statusAffected int64
	statusCalls    int
}

func (m *mockCaseStore) Create(ctx context.Context, c *models.Case) error {
	if m.cases == nil {
		m.cases = make(map[string]models.Case)
	}
	if c.ID == "" {
		c.ID = "case-new"
	}
	m.cases[c.ID] = *c
	return nil
}

func (m *mockCaseStore) GetByID(ctx context.Context, id string) (*models.Case, error) {
	if c, ok := m.cases[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseStore) GetByNumber(ctx context.Context, number string) (*models.Case, error) {
	for _, c := range m.cases {
		if c.CaseNumber == number {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockCaseStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	m.existsCalls++
	if m.existing == nil {
		return false, nil
	}
	if taken, ok := m.existing[number]; ok {
		return taken, nil
	}
	// When a wildcard entry is present every candidate collides.
	return m.existing["*"], nil
}

func (m *mockCaseStore) UpdateStatus(ctx context.Context, id string, expected, target models.CaseStatus, ts time.Time) (int64, error) {
	m.statusCalls++
	if m.statusAffected == 1 {
		if c, ok := m.cases[id]; ok {
			c.Status = target
			m.cases[id] = c
		}
	}
	return m.statusAffected, nil
}

func (m *mockCaseStore) UpdateFields(ctx context.Context, c *models.Case) error {
	m.cases[c.ID] = *c
	return nil
}

func (m *mockCaseStore) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error) {
	var out []models.Case
	for _, c := range m.cases {
		out = append(out, c)
	}
	return out, nil
}

type mockActivityRecorder struct {
	activities []models.Activity
}

func (m *mockActivityRecorder) Create(ctx context.Context, activity *models.Activity) error {
	m.activities = append(m.activities, *activity)
	return nil
}

type mockNotifier struct {
	dispatched []notify.Message
	err        error
}

func (m *mockNotifier) Dispatch(ctx context.Context, channel notify.Channel, name, address, subject, body string, caseNumber *string) (*models.Communication, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.dispatched = append(m.dispatched, notify.Message{Channel: channel, To: address, Subject: subject, Body: body})
	return &models.Communication{ID: "comm-1"}, nil
}

func newCaseService(store *mockCaseStore, activities *mockActivityRecorder, n *mockNotifier) *CaseService {
	return NewCaseService(store, activities, n, nil, validator.New(), zap.NewNop())
}

func TestCaseServiceCreateAssignsNumber(t *testing.T) {
	store := &mockCaseStore{}
	activities := &mockActivityRecorder{}
	n := &mockNotifier{}
	svc := newCaseService(store, activities, n)

	c, err := svc.Create(context.Background(), dto.CreateCaseRequest{
		ClientName:  "Maria Santos",
		ClientEmail: "maria@example.com",
		ClientPhone: "+15550100",
		ServiceType: models.ServiceVisaApplication,
	}, "user-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^IMM-\d{4}-\d{5}$`), c.CaseNumber)
	assert.Equal(t, models.CaseStatusInitiated, c.Status)
	assert.Equal(t, models.TierStandard, c.Tier)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	require.Len(t, activities.activities, 1)
	assert.Equal(t, models.ActivityCreated, activities.activities[0].Type)
	require.NotEmpty(t, n.dispatched)
	assert.Equal(t, notify.ChannelEmail, n.dispatched[0].Channel)
}

func TestCaseServiceCreateNumberExhaustion(t *testing.T) {
	store := &mockCaseStore{existing: map[string]bool{"*": true}}
	svc := newCaseService(store, &mockActivityRecorder{}, &mockNotifier{})

	_, err := svc.Create(context.Background(), dto.CreateCaseRequest{
		ClientName:  "Maria Santos",
		ClientEmail: "maria@example.com",
		ClientPhone: "+15550100",
		ServiceType: models.ServiceVisaApplication,
	}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateCaseNumber))
	assert.Equal(t, caseNumberAttempts, store.existsCalls)
}

func TestCaseServiceTransitionHappyPath(t *testing.T) {
	store := &mockCaseStore{
		cases: map[string]models.Case{"case-1": {
			ID: "case-1", CaseNumber: "IMM-2026-00001", ClientName: "Maria Santos",
			ClientEmail: "maria@example.com", Status: models.CaseStatusInitiated,
		}},
		statusAffected: 1,
	}
	activities := &mockActivityRecorder{}
	n := &mockNotifier{}
	svc := newCaseService(store, activities, n)

	c, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{TargetStatus: models.CaseStatusDocumentsPending}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusDocumentsPending, c.Status)
	require.Len(t, activities.activities, 1)
	assert.Equal(t, models.ActivityStatusChange, activities.activities[0].Type)
	assert.NotEmpty(t, n.dispatched)
}

func TestCaseServiceTransitionSurvivesDeliveryFailure(t *testing.T) {
	store := &mockCaseStore{
		cases: map[string]models.Case{"case-1": {
			ID: "case-1", CaseNumber: "IMM-2026-00001", ClientName: "Maria Santos",
			ClientEmail: "maria@example.com", Status: models.CaseStatusInitiated,
		}},
		statusAffected: 1,
	}
	activities := &mockActivityRecorder{}
	n := &mockNotifier{err: appErrors.ErrDeliveryFailed}
	svc := newCaseService(store, activities, n)

	c, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{TargetStatus: models.CaseStatusDocumentsPending}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusDocumentsPending, c.Status)
	assert.Equal(t, models.CaseStatusDocumentsPending, store.cases["case-1"].Status)
	require.Len(t, activities.activities, 1)
	assert.Equal(t, models.ActivityStatusChange, activities.activities[0].Type)
	assert.Empty(t, n.dispatched)
}

func TestCaseServiceTransitionSkippingStageRejected(t *testing.T) {
	store := &mockCaseStore{
		cases:          map[string]models.Case{"case-1": {ID: "case-1", Status: models.CaseStatusInitiated}},
		statusAffected: 1,
	}
	svc := newCaseService(store, &mockActivityRecorder{}, &mockNotifier{})

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{TargetStatus: models.CaseStatusApproved}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	assert.Zero(t, store.statusCalls)
}

func TestCaseServiceTransitionTerminalRejected(t *testing.T) {
	store := &mockCaseStore{
		cases: map[string]models.Case{"case-1": {ID: "case-1", Status: models.CaseStatusCompleted}},
	}
	svc := newCaseService(store, &mockActivityRecorder{}, &mockNotifier{})

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{TargetStatus: models.CaseStatusInitiated}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTerminalState))
}

func TestCaseServiceTransitionConcurrentLoser(t *testing.T) {
	store := &mockCaseStore{
		cases:          map[string]models.Case{"case-1": {ID: "case-1", Status: models.CaseStatusInitiated}},
		statusAffected: 0,
	}
	svc := newCaseService(store, &mockActivityRecorder{}, &mockNotifier{})

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{TargetStatus: models.CaseStatusDocumentsPending}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, 1, store.statusCalls)
}

func TestCaseServiceTransitionSMSOptIn(t *testing.T) {
	store := &mockCaseStore{
		cases: map[string]models.Case{"case-1": {
			ID: "case-1", CaseNumber: "IMM-2026-00002", ClientName: "Amir Khan",
			ClientEmail: "amir@example.com", ClientPhone: "+15550101",
			SMSEnabled: true, Status: models.CaseStatusInProgress,
		}},
		statusAffected: 1,
	}
	n := &mockNotifier{}
	svc := newCaseService(store, &mockActivityRecorder{}, n)

	_, err := svc.Transition(context.Background(), "case-1", dto.TransitionCaseRequest{TargetStatus: models.CaseStatusApproved}, "user-1")
	require.NoError(t, err)
	require.Len(t, n.dispatched, 2)
	assert.Equal(t, notify.ChannelEmail, n.dispatched[0].Channel)
	assert.Equal(t, notify.ChannelSMS, n.dispatched[1].Channel)
}

func TestCaseServiceSuccessors(t *testing.T) {
	store := &mockCaseStore{
		cases: map[string]models.Case{"case-1": {ID: "case-1", Status: models.CaseStatusInProgress}},
	}
	svc := newCaseService(store, &mockActivityRecorder{}, &mockNotifier{})

	current, next, err := svc.Successors(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusInProgress, current)
	assert.ElementsMatch(t, []models.CaseStatus{models.CaseStatusApproved, models.CaseStatusRejected}, next)
}

func TestCaseServiceUpdateTerminalFrozen(t *testing.T) {
	store := &mockCaseStore{
		cases: map[string]models.Case{"case-1": {ID: "case-1", Status: models.CaseStatusRejected}},
	}
	svc := newCaseService(store, &mockActivityRecorder{}, &mockNotifier{})

	email := "new@example.com"
	_, err := svc.Update(context.Background(), "case-1", dto.UpdateCaseRequest{ClientEmail: &email}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTerminalState))
}
