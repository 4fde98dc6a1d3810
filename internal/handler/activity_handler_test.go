package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlaw/immigration-crm-api/internal/models"
)

type activityListerMock struct {
	entries    []models.Activity
	err        error
	lastFilter models.ActivityFilter
}

func (m *activityListerMock) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	m.lastFilter = filter
	return m.entries, m.err
}

func TestActivityHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockLister := &activityListerMock{
		entries: []models.Activity{{ID: "act-1", EntityType: models.EntityCase, EntityID: "case-1"}},
	}
	handler := NewActivityHandler(mockLister)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/activities?entityType=case&entityId=case-1&page=3", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.EntityCase, mockLister.lastFilter.EntityType)
	assert.Equal(t, "case-1", mockLister.lastFilter.EntityID)
	assert.Equal(t, 3, mockLister.lastFilter.Page)
	assert.Equal(t, 50, mockLister.lastFilter.PageSize)
}
