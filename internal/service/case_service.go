package service

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
)

type caseStore interface {
	Create(ctx context.Context, c *models.Case) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	GetByNumber(ctx context.Context, caseNumber string) (*models.Case, error)
	ExistsByNumber(ctx context.Context, caseNumber string) (bool, error)
	UpdateStatus(ctx context.Context, id string, expected, target models.CaseStatus, ts time.Time) (int64, error)
	UpdateFields(ctx context.Context, c *models.Case) error
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error)
}

type activityRecorder interface {
	Create(ctx context.Context, activity *models.Activity) error
}

type notifier interface {
	Dispatch(ctx context.Context, channel notify.Channel, recipientName, recipientAddress, subject, body string, caseNumber *string) (*models.Communication, error)
}

const caseNumberAttempts = 5

// CaseService owns the case lifecycle: creation with a unique case number,
// the status transition engine and the client notifications that follow
// committed transitions.
type CaseService struct {
	cases      caseStore
	activities activityRecorder
	notifier   notifier
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCaseService constructs CaseService.
func NewCaseService(cases caseStore, activities activityRecorder, notifier notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CaseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseService{cases: cases, activities: activities, notifier: notifier, metrics: metrics, validator: validate, logger: logger}
}

// Create opens a new case in the INITIATED status with a freshly assigned
// case number.
func (s *CaseService) Create(ctx context.Context, req dto.CreateCaseRequest, actorID string) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	if !models.ValidServiceType(req.ServiceType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown service type")
	}

	number, err := s.assignCaseNumber(ctx)
	if err != nil {
		return nil, err
	}

	tier := req.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	c := &models.Case{
		CaseNumber:     number,
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		ClientPhone:    req.ClientPhone,
		PassportNumber: req.PassportNumber,
		PassportExpiry: req.PassportExpiry,
		ServiceType:    req.ServiceType,
		Tier:           tier,
		Priority:       priority,
		Status:         models.CaseStatusInitiated,
		AssignedTo:     req.AssignedTo,
		SMSEnabled:     req.SMSEnabled,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}

	s.recordActivity(ctx, models.EntityCase, c.ID, models.ActivityCreated, actorID,
		fmt.Sprintf("case %s opened for %s", c.CaseNumber, c.ClientName))
	s.notifyClient(ctx, c, "Your case has been opened",
		fmt.Sprintf("Dear %s, your %s case %s has been opened. We will be in touch with next steps.", c.ClientName, c.ServiceType, c.CaseNumber))
	return c, nil
}

// OpenFromLead opens a case seeded from a converting lead's contact snapshot.
// Called by the conversion workflow after the lead has been vetted.
func (s *CaseService) OpenFromLead(ctx context.Context, lead *models.Lead, req dto.ConvertLeadRequest, actorID string) (*models.Case, error) {
	if !models.ValidServiceType(req.ServiceType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown service type")
	}
	number, err := s.assignCaseNumber(ctx)
	if err != nil {
		return nil, err
	}

	tier := req.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	priority := req.Priority
	if priority == "" {
		priority = lead.Priority
	}
	assignedTo := req.AssignedTo
	if assignedTo == nil {
		assignedTo = lead.AssignedTo
	}

	c := &models.Case{
		CaseNumber:  number,
		ClientName:  lead.FullName(),
		ClientEmail: lead.Email,
		ClientPhone: lead.Phone,
		ServiceType: req.ServiceType,
		Tier:        tier,
		Priority:    priority,
		Status:      models.CaseStatusInitiated,
		AssignedTo:  assignedTo,
		LeadID:      &lead.ID,
		SMSEnabled:  req.SMSEnabled,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}

	s.recordActivity(ctx, models.EntityCase, c.ID, models.ActivityCreated, actorID,
		fmt.Sprintf("case %s opened from lead %s", c.CaseNumber, lead.ID))
	s.notifyClient(ctx, c, "Welcome to Harbor Law",
		fmt.Sprintf("Dear %s, thank you for retaining us. Your %s case %s has been opened.", c.ClientName, c.ServiceType, c.CaseNumber))
	return c, nil
}

// Get returns a case by identifier.
func (s *CaseService) Get(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

// GetByNumber returns a case by its case number.
func (s *CaseService) GetByNumber(ctx context.Context, number string) (*models.Case, error) {
	c, err := s.cases.GetByNumber(ctx, number)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

// List returns cases with pagination metadata.
func (s *CaseService) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, *models.Pagination, error) {
	cases, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return cases, &models.Pagination{Page: page, PageSize: size, TotalCount: len(cases)}, nil
}

// Update applies a partial edit to mutable case fields. The case number and
// status are never touched here.
func (s *CaseService) Update(ctx context.Context, id string, req dto.UpdateCaseRequest, actorID string) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, appErrors.ErrTerminalState
	}

	if req.ClientEmail != nil {
		c.ClientEmail = *req.ClientEmail
	}
	if req.ClientPhone != nil {
		c.ClientPhone = *req.ClientPhone
	}
	if req.PassportNumber != nil {
		c.PassportNumber = req.PassportNumber
	}
	if req.PassportExpiry != nil {
		c.PassportExpiry = req.PassportExpiry
	}
	if req.Tier != nil {
		c.Tier = *req.Tier
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.AssignedTo != nil {
		c.AssignedTo = req.AssignedTo
	}
	if req.SMSEnabled != nil {
		c.SMSEnabled = *req.SMSEnabled
	}
	if err := s.cases.UpdateFields(ctx, c); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update case")
	}
	s.recordActivity(ctx, models.EntityCase, c.ID, models.ActivityUpdated, actorID,
		fmt.Sprintf("case %s details updated", c.CaseNumber))
	return c, nil
}

// Transition advances a case to the requested status. The move must be a
// permitted successor of the current status, and the update is guarded so a
// concurrent transition loses cleanly instead of double-applying.
func (s *CaseService) Transition(ctx context.Context, id string, req dto.TransitionCaseRequest, actorID string) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	if !req.TargetStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown target status")
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, appErrors.ErrTerminalState
	}
	if !c.Status.CanTransitionTo(req.TargetStatus) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move case from %s to %s", c.Status, req.TargetStatus))
	}

	now := time.Now().UTC()
	affected, err := s.cases.UpdateStatus(ctx, c.ID, c.Status, req.TargetStatus, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition case")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "case was modified concurrently, reload and retry")
	}

	previous := c.Status
	c.Status = req.TargetStatus
	c.UpdatedAt = now
	s.metrics.ObserveTransition(string(req.TargetStatus))

	description := fmt.Sprintf("case %s moved from %s to %s", c.CaseNumber, previous, req.TargetStatus)
	if req.Note != "" {
		description += ": " + req.Note
	}
	s.recordActivity(ctx, models.EntityCase, c.ID, models.ActivityStatusChange, actorID, description)
	s.notifyClient(ctx, c, fmt.Sprintf("Case %s status update", c.CaseNumber),
		fmt.Sprintf("Dear %s, your case %s is now %s.", c.ClientName, c.CaseNumber, c.Status))
	return c, nil
}

// Successors lists the statuses a case may move to next.
func (s *CaseService) Successors(ctx context.Context, id string) (models.CaseStatus, []models.CaseStatus, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return c.Status, c.Status.Successors(), nil
}

// assignCaseNumber draws random candidates until one is free. Exhausting the
// attempt budget surfaces as a duplicate error rather than an infinite loop.
func (s *CaseService) assignCaseNumber(ctx context.Context) (string, error) {
	year := time.Now().UTC().Year()
	for i := 0; i < caseNumberAttempts; i++ {
		candidate := fmt.Sprintf("IMM-%d-%05d", year, rand.Intn(100000))
		exists, err := s.cases.ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign case number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", appErrors.ErrDuplicateCaseNumber
}

// recordActivity appends to the audit trail. Failures are logged, never fatal.
func (s *CaseService) recordActivity(ctx context.Context, entityType, entityID, activityType, actorID, description string) {
	activity := &models.Activity{
		EntityType:  entityType,
		EntityID:    entityID,
		Type:        activityType,
		Description: description,
	}
	if actorID != "" {
		activity.ActorID = &actorID
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("entity_id", entityID),
			zap.String("type", activityType),
			zap.Error(err))
	}
}

// notifyClient fans out email, plus SMS when the client opted in. Delivery
// problems never bubble up into the transition that triggered them.
func (s *CaseService) notifyClient(ctx context.Context, c *models.Case, subject, body string) {
	if s.notifier == nil {
		return
	}
	if c.ClientEmail != "" {
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelEmail, c.ClientName, c.ClientEmail, subject, body, &c.CaseNumber); err != nil {
			s.logger.Warn("case email dispatch failed", zap.String("case_number", c.CaseNumber), zap.Error(err))
		}
	}
	if c.SMSEnabled && c.ClientPhone != "" {
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelSMS, c.ClientName, c.ClientPhone, "", body, &c.CaseNumber); err != nil {
			s.logger.Warn("case sms dispatch failed", zap.String("case_number", c.CaseNumber), zap.Error(err))
		}
	}
}
