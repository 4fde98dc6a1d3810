package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
)

type mockLeadStore struct {
	leads           map[string]models.Lead
	notes           []models.LeadNote
	convertAffected int64
	convertCalls    int
}

func (m *mockLeadStore) Create(ctx context.Context, lead *models.Lead) error {
	if m.leads == nil {
		m.leads = make(map[string]models.Lead)
	}
	if lead.ID == "" {
		lead.ID = "lead-new"
	}
	m.leads[lead.ID] = *lead
	return nil
}

func (m *mockLeadStore) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	if lead, ok := m.leads[id]; ok {
		return &lead, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeadStore) Update(ctx context.Context, lead *models.Lead) error {
	m.leads[lead.ID] = *lead
	return nil
}

func (m *mockLeadStore) MarkConverted(ctx context.Context, leadID, caseID string, ts time.Time) (int64, error) {
	m.convertCalls++
	if m.convertAffected == 1 {
		lead := m.leads[leadID]
		lead.Status = models.LeadStatusConverted
		lead.ConvertedCaseID = &caseID
		lead.ConvertedAt = &ts
		m.leads[leadID] = lead
	}
	return m.convertAffected, nil
}

func (m *mockLeadStore) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	var out []models.Lead
	for _, lead := range m.leads {
		out = append(out, lead)
	}
	return out, nil
}

func (m *mockLeadStore) AddNote(ctx context.Context, note *models.LeadNote) error {
	if note.ID == "" {
		note.ID = "note-new"
	}
	m.notes = append(m.notes, *note)
	return nil
}

func (m *mockLeadStore) ListNotes(ctx context.Context, leadID string) ([]models.LeadNote, error) {
	var out []models.LeadNote
	for _, note := range m.notes {
		if note.LeadID == leadID {
			out = append(out, note)
		}
	}
	return out, nil
}

type mockCaseOpener struct {
	opened  []models.Lead
	created *models.Case
	err     error
}

func (m *mockCaseOpener) OpenFromLead(ctx context.Context, lead *models.Lead, req dto.ConvertLeadRequest, actorID string) (*models.Case, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.opened = append(m.opened, *lead)
	c := &models.Case{
		ID:          "case-opened",
		CaseNumber:  "IMM-2026-00042",
		ClientName:  lead.FullName(),
		ClientEmail: lead.Email,
		ClientPhone: lead.Phone,
		ServiceType: req.ServiceType,
		Status:      models.CaseStatusInitiated,
		LeadID:      &lead.ID,
	}
	m.created = c
	return c, nil
}

func newLeadService(store *mockLeadStore, opener *mockCaseOpener, logger *zap.Logger) *LeadService {
	return NewLeadService(store, opener, &mockActivityRecorder{}, nil, validator.New(), logger)
}

func seededLead(status models.LeadStatus) models.Lead {
	return models.Lead{
		ID:        "lead-1",
		FirstName: "Diego",
		LastName:  "Alvarez",
		Email:     "diego@example.com",
		Phone:     "+15550100",
		Source:    models.LeadSourceReferral,
		Status:    status,
		Priority:  models.PriorityHigh,
	}
}

func TestLeadServiceCreate(t *testing.T) {
	store := &mockLeadStore{}
	svc := newLeadService(store, &mockCaseOpener{}, zap.NewNop())

	lead, err := svc.Create(context.Background(), dto.CreateLeadRequest{
		FirstName: "Diego",
		LastName:  "Alvarez",
		Email:     "diego@example.com",
		Phone:     "+15550100",
		Source:    models.LeadSourceWebsite,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusNew, lead.Status)
	assert.Equal(t, "Diego Alvarez", lead.FullName())
}

func TestLeadServiceConvert(t *testing.T) {
	store := &mockLeadStore{
		leads:           map[string]models.Lead{"lead-1": seededLead(models.LeadStatusQualified)},
		convertAffected: 1,
	}
	opener := &mockCaseOpener{}
	svc := newLeadService(store, opener, zap.NewNop())

	resp, err := svc.Convert(context.Background(), "lead-1", dto.ConvertLeadRequest{
		ServiceType: models.ServiceAsylum,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStatusConverted, resp.Lead.Status)
	require.NotNil(t, resp.Lead.ConvertedCaseID)
	assert.Equal(t, "case-opened", *resp.Lead.ConvertedCaseID)
	assert.Equal(t, "IMM-2026-00042", resp.Case.CaseNumber)
	require.Len(t, opener.opened, 1)
}

func TestLeadServiceConvertAlreadyConverted(t *testing.T) {
	lead := seededLead(models.LeadStatusConverted)
	store := &mockLeadStore{leads: map[string]models.Lead{"lead-1": lead}}
	opener := &mockCaseOpener{}
	svc := newLeadService(store, opener, zap.NewNop())

	_, err := svc.Convert(context.Background(), "lead-1", dto.ConvertLeadRequest{ServiceType: models.ServiceAsylum}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyConverted))
	assert.Empty(t, opener.opened)
}

func TestLeadServiceConvertRaceLost(t *testing.T) {
	store := &mockLeadStore{
		leads:           map[string]models.Lead{"lead-1": seededLead(models.LeadStatusQualified)},
		convertAffected: 0,
	}
	opener := &mockCaseOpener{}
	svc := newLeadService(store, opener, zap.NewNop())

	_, err := svc.Convert(context.Background(), "lead-1", dto.ConvertLeadRequest{ServiceType: models.ServiceGreenCard}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyConverted))
	assert.Equal(t, 1, store.convertCalls)
	// The case was created before the guard fired, so it exists but the
	// caller is told the lead was already converted.
	require.NotNil(t, opener.created)
}

func TestLeadServiceConvertClosedLead(t *testing.T) {
	store := &mockLeadStore{leads: map[string]models.Lead{"lead-1": seededLead(models.LeadStatusLost)}}
	svc := newLeadService(store, &mockCaseOpener{}, zap.NewNop())

	_, err := svc.Convert(context.Background(), "lead-1", dto.ConvertLeadRequest{ServiceType: models.ServiceAsylum}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestLeadServiceUpdateRejectsDirectConversion(t *testing.T) {
	store := &mockLeadStore{leads: map[string]models.Lead{"lead-1": seededLead(models.LeadStatusQualified)}}
	svc := newLeadService(store, &mockCaseOpener{}, zap.NewNop())

	converted := models.LeadStatusConverted
	_, err := svc.Update(context.Background(), "lead-1", dto.UpdateLeadRequest{Status: &converted}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestLeadServiceUpdateConvertedFrozen(t *testing.T) {
	store := &mockLeadStore{leads: map[string]models.Lead{"lead-1": seededLead(models.LeadStatusConverted)}}
	svc := newLeadService(store, &mockCaseOpener{}, zap.NewNop())

	name := "Santiago"
	_, err := svc.Update(context.Background(), "lead-1", dto.UpdateLeadRequest{FirstName: &name}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyConverted))
}

func TestLeadServiceNotes(t *testing.T) {
	store := &mockLeadStore{leads: map[string]models.Lead{"lead-1": seededLead(models.LeadStatusContacted)}}
	svc := newLeadService(store, &mockCaseOpener{}, zap.NewNop())

	note, err := svc.AddNote(context.Background(), "lead-1", dto.AddLeadNoteRequest{Content: "left voicemail"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", note.LeadID)
	assert.Equal(t, "user-1", note.AuthorID)

	notes, err := svc.ListNotes(context.Background(), "lead-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "left voicemail", notes[0].Content)
}

func TestLeadServiceGetMissing(t *testing.T) {
	svc := newLeadService(&mockLeadStore{}, &mockCaseOpener{}, zap.NewNop())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
