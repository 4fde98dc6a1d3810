package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
)

type leadFunnelSource interface {
	CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error)
}

type caseBreakdownSource interface {
	CountByStatus(ctx context.Context) (map[models.CaseStatus]int, error)
}

type pendingDocumentCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type upcomingAppointmentCounter interface {
	CountUpcoming(ctx context.Context, now time.Time) (int, error)
}

type analyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const dashboardCacheKey = "analytics:dashboard"

// leadFunnelOrder fixes the display order of pipeline stages.
var leadFunnelOrder = []models.LeadStatus{
	models.LeadStatusNew,
	models.LeadStatusContacted,
	models.LeadStatusQualified,
	models.LeadStatusAppointmentScheduled,
	models.LeadStatusConverted,
	models.LeadStatusLost,
	models.LeadStatusArchived,
}

// caseBreakdownOrder mirrors the lifecycle order.
var caseBreakdownOrder = []models.CaseStatus{
	models.CaseStatusInitiated,
	models.CaseStatusDocumentsPending,
	models.CaseStatusUnderReview,
	models.CaseStatusDocumentsApproved,
	models.CaseStatusApplicationSubmitted,
	models.CaseStatusInProgress,
	models.CaseStatusApproved,
	models.CaseStatusRejected,
	models.CaseStatusCompleted,
}

// AnalyticsService computes dashboard aggregates with a short-lived Redis
// cache in front of the grouped count queries.
type AnalyticsService struct {
	leads        leadFunnelSource
	cases        caseBreakdownSource
	documents    pendingDocumentCounter
	appointments upcomingAppointmentCounter
	cache        analyticsCache
	metrics      *MetricsService
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewAnalyticsService constructs AnalyticsService.
func NewAnalyticsService(leads leadFunnelSource, cases caseBreakdownSource, documents pendingDocumentCounter, appointments upcomingAppointmentCounter, cache analyticsCache, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *AnalyticsService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		leads:        leads,
		cases:        cases,
		documents:    documents,
		appointments: appointments,
		cache:        cache,
		metrics:      metrics,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Dashboard returns the practice's headline numbers, cached for a short TTL.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*dto.DashboardSummary, error) {
	if s.cache != nil {
		var cached dto.DashboardSummary
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	summary, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops cached aggregates, used after bulk imports.
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeleteByPattern(ctx, "analytics:*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate analytics cache")
	}
	return nil
}

func (s *AnalyticsService) build(ctx context.Context) (*dto.DashboardSummary, error) {
	leadCounts, err := s.leads.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate leads")
	}
	caseCounts, err := s.cases.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate cases")
	}
	pendingDocs, err := s.documents.CountPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending documents")
	}
	upcoming, err := s.appointments.CountUpcoming(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count appointments")
	}

	summary := &dto.DashboardSummary{
		UpcomingAppointments:   upcoming,
		DocumentsPendingReview: pendingDocs,
	}

	totalLeads := 0
	for _, status := range leadFunnelOrder {
		count := leadCounts[status]
		totalLeads += count
		summary.LeadFunnel = append(summary.LeadFunnel, dto.StatusCount{Status: string(status), Count: count})
	}
	for _, status := range caseBreakdownOrder {
		summary.CaseBreakdown = append(summary.CaseBreakdown, dto.StatusCount{Status: string(status), Count: caseCounts[status]})
	}
	if totalLeads > 0 {
		summary.ConversionRate = float64(leadCounts[models.LeadStatusConverted]) / float64(totalLeads)
	}
	return summary, nil
}
