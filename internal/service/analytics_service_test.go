package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
)

type mockLeadFunnel struct {
	counts map[models.LeadStatus]int
	calls  int
}

func (m *mockLeadFunnel) CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error) {
	m.calls++
	return m.counts, nil
}

type mockCaseBreakdown struct {
	counts map[models.CaseStatus]int
}

func (m *mockCaseBreakdown) CountByStatus(ctx context.Context) (map[models.CaseStatus]int, error) {
	return m.counts, nil
}

type mockDocumentCounter struct {
	pending int
}

func (m *mockDocumentCounter) CountPending(ctx context.Context) (int, error) {
	return m.pending, nil
}

type mockAppointmentCounter struct {
	upcoming int
}

func (m *mockAppointmentCounter) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	return m.upcoming, nil
}

type mockAnalyticsCache struct {
	entries map[string]dto.DashboardSummary
	deleted []string
}

func (m *mockAnalyticsCache) Get(ctx context.Context, key string, dest interface{}) error {
	entry, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*dto.DashboardSummary) = entry
	return nil
}

func (m *mockAnalyticsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]dto.DashboardSummary)
	}
	m.entries[key] = *value.(*dto.DashboardSummary)
	return nil
}

func (m *mockAnalyticsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.entries = nil
	return nil
}

func newAnalyticsService(leads *mockLeadFunnel, cases *mockCaseBreakdown, cache *mockAnalyticsCache) *AnalyticsService {
	return NewAnalyticsService(leads, cases, &mockDocumentCounter{pending: 4}, &mockAppointmentCounter{upcoming: 2}, cache, nil, time.Minute, zap.NewNop())
}

func TestAnalyticsDashboard(t *testing.T) {
	leads := &mockLeadFunnel{counts: map[models.LeadStatus]int{
		models.LeadStatusNew:       10,
		models.LeadStatusQualified: 5,
		models.LeadStatusConverted: 5,
	}}
	cases := &mockCaseBreakdown{counts: map[models.CaseStatus]int{
		models.CaseStatusInitiated:  3,
		models.CaseStatusInProgress: 2,
	}}
	svc := newAnalyticsService(leads, cases, &mockAnalyticsCache{})

	summary, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.UpcomingAppointments)
	assert.Equal(t, 4, summary.DocumentsPendingReview)
	assert.InDelta(t, 0.25, summary.ConversionRate, 1e-9)

	// Funnel stages come back in pipeline order, zeros included.
	require.Len(t, summary.LeadFunnel, len(leadFunnelOrder))
	assert.Equal(t, string(models.LeadStatusNew), summary.LeadFunnel[0].Status)
	assert.Equal(t, 10, summary.LeadFunnel[0].Count)
	assert.Equal(t, string(models.LeadStatusContacted), summary.LeadFunnel[1].Status)
	assert.Zero(t, summary.LeadFunnel[1].Count)

	require.Len(t, summary.CaseBreakdown, len(caseBreakdownOrder))
	assert.Equal(t, string(models.CaseStatusInitiated), summary.CaseBreakdown[0].Status)
	assert.Equal(t, 3, summary.CaseBreakdown[0].Count)
}

func TestAnalyticsDashboardCached(t *testing.T) {
	leads := &mockLeadFunnel{counts: map[models.LeadStatus]int{models.LeadStatusNew: 1}}
	cache := &mockAnalyticsCache{}
	svc := newAnalyticsService(leads, &mockCaseBreakdown{}, cache)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, leads.calls)

	// A second read is served from cache without touching the stores.
	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, leads.calls)
}

func TestAnalyticsDashboardNoLeads(t *testing.T) {
	svc := newAnalyticsService(&mockLeadFunnel{}, &mockCaseBreakdown{}, &mockAnalyticsCache{})

	summary, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.ConversionRate)
}

func TestAnalyticsInvalidate(t *testing.T) {
	leads := &mockLeadFunnel{counts: map[models.LeadStatus]int{models.LeadStatusNew: 1}}
	cache := &mockAnalyticsCache{}
	svc := newAnalyticsService(leads, &mockCaseBreakdown{}, cache)

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))
	assert.Contains(t, cache.deleted, "analytics:*")

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, leads.calls)
}
