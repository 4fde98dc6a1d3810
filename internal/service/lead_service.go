package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
)

type leadStore interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	MarkConverted(ctx context.Context, leadID, caseID string, ts time.Time) (int64, error)
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error)
	AddNote(ctx context.Context, note *models.LeadNote) error
	ListNotes(ctx context.Context, leadID string) ([]models.LeadNote, error)
}

type caseOpener interface {
	OpenFromLead(ctx context.Context, lead *models.Lead, req dto.ConvertLeadRequest, actorID string) (*models.Case, error)
}

// LeadService manages the intake pipeline and the one-way conversion of a
// lead into a case.
type LeadService struct {
	leads      leadStore
	cases      caseOpener
	activities activityRecorder
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLeadService constructs LeadService.
func NewLeadService(leads leadStore, cases caseOpener, activities activityRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LeadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{leads: leads, cases: cases, activities: activities, metrics: metrics, validator: validate, logger: logger}
}

// Create registers a new intake lead.
func (s *LeadService) Create(ctx context.Context, req dto.CreateLeadRequest, actorID string) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
	}
	lead := &models.Lead{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		AlternatePhone: req.AlternatePhone,
		Source:         req.Source,
		Status:         models.LeadStatusNew,
		Priority:       req.Priority,
		AssignedTo:     req.AssignedTo,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lead")
	}
	s.recordActivity(ctx, lead.ID, models.ActivityCreated, actorID,
		fmt.Sprintf("lead %s registered via %s", lead.FullName(), lead.Source))
	return lead, nil
}

// Get returns a lead by identifier.
func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}
	return lead, nil
}

// List returns leads with pagination metadata.
func (s *LeadService) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, *models.Pagination, error) {
	leads, err := s.leads.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leads")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return leads, &models.Pagination{Page: page, PageSize: size, TotalCount: len(leads)}, nil
}

// Update applies a partial edit. Converted, lost and archived leads are
// frozen; status may only move between non-terminal pipeline stages here,
// conversion has its own entry point.
func (s *LeadService) Update(ctx context.Context, id string, req dto.UpdateLeadRequest, actorID string) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
	}
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == models.LeadStatusConverted {
		return nil, appErrors.ErrAlreadyConverted
	}
	if lead.Status.IsTerminal() && (req.Status == nil || req.Status.IsTerminal()) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lead is closed")
	}
	if req.Status != nil {
		if *req.Status == models.LeadStatusConverted {
			return nil, appErrors.Clone(appErrors.ErrValidation, "conversion must go through the convert endpoint")
		}
		lead.Status = *req.Status
	}
	if req.FirstName != nil {
		lead.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		lead.LastName = *req.LastName
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Phone != nil {
		lead.Phone = *req.Phone
	}
	if req.AlternatePhone != nil {
		lead.AlternatePhone = req.AlternatePhone
	}
	if req.Priority != nil {
		lead.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		lead.AssignedTo = req.AssignedTo
	}
	if err := s.leads.Update(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lead")
	}
	s.recordActivity(ctx, lead.ID, models.ActivityUpdated, actorID,
		fmt.Sprintf("lead %s updated", lead.FullName()))
	return lead, nil
}

// Convert turns a qualified lead into a case. The case is created first, then
// the lead is marked converted under a guard; a racing second conversion sees
// zero affected rows and fails with a conflict while the first one wins.
func (s *LeadService) Convert(ctx context.Context, id string, req dto.ConvertLeadRequest, actorID string) (*dto.ConvertLeadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conversion payload")
	}
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Status == models.LeadStatusConverted || lead.ConvertedCaseID != nil {
		return nil, appErrors.ErrAlreadyConverted
	}
	if lead.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lead is closed")
	}

	c, err := s.cases.OpenFromLead(ctx, lead, req, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	affected, err := s.leads.MarkConverted(ctx, lead.ID, c.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark lead converted")
	}
	if affected == 0 {
		// A concurrent conversion won. The case created above is orphaned and
		// needs manual cleanup, so make it loud.
		s.logger.Error("conversion race lost after case creation",
			zap.String("lead_id", lead.ID),
			zap.String("orphaned_case_id", c.ID))
		return nil, appErrors.ErrAlreadyConverted
	}

	lead.Status = models.LeadStatusConverted
	lead.ConvertedCaseID = &c.ID
	lead.ConvertedAt = &now
	lead.UpdatedAt = now
	s.metrics.ObserveConversion()
	s.recordActivity(ctx, lead.ID, models.ActivityConverted, actorID,
		fmt.Sprintf("lead %s converted to case %s", lead.FullName(), c.CaseNumber))

	return &dto.ConvertLeadResponse{Lead: *lead, Case: *c}, nil
}

// AddNote appends a note to a lead.
func (s *LeadService) AddNote(ctx context.Context, leadID string, req dto.AddLeadNoteRequest, authorID string) (*models.LeadNote, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}
	lead, err := s.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	note := &models.LeadNote{
		LeadID:   lead.ID,
		AuthorID: authorID,
		Content:  req.Content,
		Pinned:   req.Pinned,
		Internal: req.Internal,
	}
	if err := s.leads.AddNote(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add note")
	}
	s.recordActivity(ctx, lead.ID, models.ActivityNoteAdded, authorID, "note added")
	return note, nil
}

// ListNotes returns a lead's notes.
func (s *LeadService) ListNotes(ctx context.Context, leadID string) ([]models.LeadNote, error) {
	if _, err := s.Get(ctx, leadID); err != nil {
		return nil, err
	}
	notes, err := s.leads.ListNotes(ctx, leadID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	return notes, nil
}

func (s *LeadService) recordActivity(ctx context.Context, leadID, activityType, actorID, description string) {
	activity := &models.Activity{
		EntityType:  models.EntityLead,
		EntityID:    leadID,
		Type:        activityType,
		Description: description,
	}
	if actorID != "" {
		activity.ActorID = &actorID
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record lead activity", zap.String("lead_id", leadID), zap.Error(err))
	}
}
