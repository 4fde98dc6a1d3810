package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/middleware"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
)

type caseServiceMock struct {
	createResp       *models.Case
	createErr        error
	getResp          *models.Case
	getErr           error
	listResp         []models.Case
	listErr          error
	transitionResp   *models.Case
	transitionErr    error
	lastFilter       models.CaseFilter
	lastTransition   dto.TransitionCaseRequest
	lastActorID      string
	transitionCalled bool
}

func (m *caseServiceMock) Create(ctx context.Context, req dto.CreateCaseRequest, actorID string) (*models.Case, error) {
	m.lastActorID = actorID
	return m.createResp, m.createErr
}

func (m *caseServiceMock) Get(ctx context.Context, id string) (*models.Case, error) {
	return m.getResp, m.getErr
}

func (m *caseServiceMock) GetByNumber(ctx context.Context, number string) (*models.Case, error) {
	return m.getResp, m.getErr
}

func (m *caseServiceMock) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, m.listErr
}

func (m *caseServiceMock) Update(ctx context.Context, id string, req dto.UpdateCaseRequest, actorID string) (*models.Case, error) {
	return m.getResp, m.getErr
}

func (m *caseServiceMock) Transition(ctx context.Context, id string, req dto.TransitionCaseRequest, actorID string) (*models.Case, error) {
	m.transitionCalled = true
	m.lastTransition = req
	m.lastActorID = actorID
	return m.transitionResp, m.transitionErr
}

func (m *caseServiceMock) Successors(ctx context.Context, id string) (models.CaseStatus, []models.CaseStatus, error) {
	return models.CaseStatusInProgress, []models.CaseStatus{models.CaseStatusApproved, models.CaseStatusRejected}, nil
}

func TestCaseHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &caseServiceMock{listResp: []models.Case{{ID: "case-1"}}}
	handler := NewCaseHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/cases?status=INITIATED,UNDER_REVIEW&priority=HIGH&page=2&limit=25", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.CaseStatus{models.CaseStatusInitiated, models.CaseStatusUnderReview}, mockSvc.lastFilter.Status)
	assert.Equal(t, models.PriorityHigh, mockSvc.lastFilter.Priority)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 25, mockSvc.lastFilter.PageSize)
}

func TestCaseHandlerTransitionUsesActorFromClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &caseServiceMock{transitionResp: &models.Case{ID: "case-1", Status: models.CaseStatusUnderReview}}
	handler := NewCaseHandler(mockSvc)

	payload, _ := json.Marshal(dto.TransitionCaseRequest{TargetStatus: models.CaseStatusUnderReview})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/cases/case-1/transition", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "case-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "attorney-1", Role: models.RoleAttorney})

	handler.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.transitionCalled)
	assert.Equal(t, models.CaseStatusUnderReview, mockSvc.lastTransition.TargetStatus)
	assert.Equal(t, "attorney-1", mockSvc.lastActorID)
}

func TestCaseHandlerTransitionConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &caseServiceMock{transitionErr: appErrors.ErrConflict}
	handler := NewCaseHandler(mockSvc)

	payload, _ := json.Marshal(dto.TransitionCaseRequest{TargetStatus: models.CaseStatusApproved})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/cases/case-1/transition", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "case-1"}}

	handler.Transition(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCaseHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCaseHandler(&caseServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/cases", bytes.NewBufferString(`{"client_name":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseHandlerSuccessors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCaseHandler(&caseServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/cases/case-1/transitions", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "case-1"}}

	handler.Successors(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			CurrentStatus string   `json:"current_status"`
			NextStatuses  []string `json:"next_statuses"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(models.CaseStatusInProgress), body.Data.CurrentStatus)
	assert.Len(t, body.Data.NextStatuses, 2)
}
