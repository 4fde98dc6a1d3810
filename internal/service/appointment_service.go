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
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
)

type appointmentStore interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	Decide(ctx context.Context, id string, status models.AppointmentStatus, notes string, ts time.Time) (int64, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

// AppointmentService schedules meetings and records their outcomes.
type AppointmentService struct {
	appointments appointmentStore
	activities   activityRecorder
	notifier     notifier
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewAppointmentService constructs AppointmentService.
func NewAppointmentService(appointments appointmentStore, activities activityRecorder, notifier notifier, validate *validator.Validate, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{appointments: appointments, activities: activities, notifier: notifier, validator: validate, logger: logger}
}

// Create schedules a new appointment and sends the client a confirmation.
func (s *AppointmentService) Create(ctx context.Context, req dto.CreateAppointmentRequest, actorID string) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	if (req.Location == nil) == (req.MeetingLink == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "provide either a location or a meeting link")
	}
	if req.ScheduledAt.Before(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointments cannot be scheduled in the past")
	}

	appt := &models.Appointment{
		CaseID:          req.CaseID,
		LeadID:          req.LeadID,
		ClientName:      req.ClientName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		Title:           req.Title,
		Type:            req.Type,
		Status:          models.AppointmentStatusScheduled,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
		MeetingLink:     req.MeetingLink,
		Notes:           req.Notes,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.recordActivity(ctx, appt.ID, models.ActivityCreated, actorID,
		fmt.Sprintf("appointment %q scheduled for %s", appt.Title, appt.ScheduledAt.Format(time.RFC3339)))

	if s.notifier != nil && appt.ClientEmail != "" {
		where := ""
		if appt.Location != nil {
			where = " at " + *appt.Location
		} else if appt.MeetingLink != nil {
			where = ", join via " + *appt.MeetingLink
		}
		body := fmt.Sprintf("Dear %s, your appointment %q is confirmed for %s%s.",
			appt.ClientName, appt.Title, appt.ScheduledAt.Format("Mon, 02 Jan 2006 15:04 MST"), where)
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelEmail, appt.ClientName, appt.ClientEmail, "Appointment confirmation", body, nil); err != nil {
			s.logger.Warn("appointment confirmation dispatch failed", zap.String("appointment_id", appt.ID), zap.Error(err))
		}
	}
	return appt, nil
}

// Get returns an appointment by identifier.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

// List returns appointments matching the filter.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	appts, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appts, nil
}

// Decide records the outcome of a scheduled appointment. Outcomes are
// terminal; deciding twice conflicts.
func (s *AppointmentService) Decide(ctx context.Context, id string, req dto.DecideAppointmentRequest, actorID string) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if !req.Status.IsDecided() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be COMPLETED, CANCELLED or NO_SHOW")
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.IsDecided() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appointment outcome already recorded")
	}

	now := time.Now().UTC()
	affected, err := s.appointments.Decide(ctx, appt.ID, req.Status, req.Notes, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record outcome")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appointment was decided concurrently")
	}

	appt.Status = req.Status
	if req.Notes != "" {
		appt.Notes = req.Notes
	}
	appt.UpdatedAt = now

	s.recordActivity(ctx, appt.ID, models.ActivityStatusChange, actorID,
		fmt.Sprintf("appointment %q marked %s", appt.Title, appt.Status))

	if s.notifier != nil && req.Status == models.AppointmentStatusCancelled && appt.ClientEmail != "" {
		body := fmt.Sprintf("Dear %s, your appointment %q scheduled for %s has been cancelled. Please contact us to reschedule.",
			appt.ClientName, appt.Title, appt.ScheduledAt.Format("Mon, 02 Jan 2006 15:04 MST"))
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelEmail, appt.ClientName, appt.ClientEmail, "Appointment cancelled", body, nil); err != nil {
			s.logger.Warn("cancellation dispatch failed", zap.String("appointment_id", appt.ID), zap.Error(err))
		}
	}
	return appt, nil
}

func (s *AppointmentService) recordActivity(ctx context.Context, appointmentID, activityType, actorID, description string) {
	activity := &models.Activity{
		EntityType:  models.EntityAppointment,
		EntityID:    appointmentID,
		Type:        activityType,
		Description: description,
	}
	if actorID != "" {
		activity.ActorID = &actorID
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record appointment activity", zap.String("appointment_id", appointmentID), zap.Error(err))
	}
}
