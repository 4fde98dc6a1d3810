package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/jobs"
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
)

type communicationStore interface {
	Create(ctx context.Context, comm *models.Communication) error
	UpdateStatus(ctx context.Context, id string, status models.CommunicationStatus) error
	List(ctx context.Context, filter models.CommunicationFilter) ([]models.Communication, error)
}

// deliveryJob is the queue payload for one outbound message.
type deliveryJob struct {
	CommunicationID string
	Message         notify.Message
}

// NotificationConfig tunes the delivery worker pool.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService dispatches outbound email and SMS through a retrying
// in-memory queue and records every attempt in the communications log.
// Delivery is best effort: a failed send marks the logged entry failed but
// never surfaces back into the business operation that requested it.
type NotificationService struct {
	comms     communicationStore
	senders   map[notify.Channel]notify.Sender
	queue     *jobs.Queue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs the dispatcher and its queue. Start must
// be called before messages flow.
func NewNotificationService(comms communicationStore, senders map[notify.Channel]notify.Sender, cfg NotificationConfig, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{
		comms:     comms,
		senders:   senders,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDrop:     s.handleDrop,
	})
	return s
}

// Start launches delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Send validates a one-off outbound request, logs it and queues delivery.
func (s *NotificationService) Send(ctx context.Context, req dto.SendNotificationRequest) (*models.Communication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	var channel notify.Channel
	switch req.Channel {
	case models.CommChannelEmail:
		channel = notify.ChannelEmail
	case models.CommChannelSMS:
		channel = notify.ChannelSMS
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "channel is not dispatchable")
	}
	return s.Dispatch(ctx, channel, "", req.Recipient, req.Subject, req.Body, req.CaseNumber)
}

// Dispatch logs an outbound message and hands it to the delivery queue.
// Callers treat the returned error as advisory; the owning business operation
// has already committed by the time delivery is attempted.
func (s *NotificationService) Dispatch(ctx context.Context, channel notify.Channel, recipientName, recipientAddress, subject, body string, caseNumber *string) (*models.Communication, error) {
	comm := &models.Communication{
		ID:               uuid.NewString(),
		Channel:          models.CommunicationChannel(channel),
		Direction:        models.CommDirectionOutbound,
		Subject:          subject,
		Content:          body,
		Status:           models.CommStatusSent,
		RecipientName:    recipientName,
		RecipientAddress: recipientAddress,
		CaseNumber:       caseNumber,
	}
	if err := s.comms.Create(ctx, comm); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log notification")
	}

	job := jobs.Job{
		ID:   comm.ID,
		Type: string(channel),
		Payload: deliveryJob{
			CommunicationID: comm.ID,
			Message: notify.Message{
				Channel: channel,
				To:      recipientAddress,
				Subject: subject,
				Body:    body,
			},
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("communication_id", comm.ID),
			zap.String("channel", string(channel)),
			zap.Error(err))
		s.markFailed(comm.ID)
		return comm, appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, appErrors.ErrDeliveryFailed.Message)
	}
	return comm, nil
}

// Log records an inbound or manually entered communication without dispatch.
func (s *NotificationService) Log(ctx context.Context, req dto.LogCommunicationRequest) (*models.Communication, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid communication payload")
	}
	status := models.CommStatusSent
	if req.Direction == models.CommDirectionInbound {
		status = models.CommStatusReceived
	}
	comm := &models.Communication{
		ID:               uuid.NewString(),
		Channel:          req.Channel,
		Direction:        req.Direction,
		Subject:          req.Subject,
		Content:          req.Content,
		Status:           status,
		RecipientName:    req.RecipientName,
		RecipientAddress: req.RecipientAddress,
		CaseNumber:       req.CaseNumber,
	}
	if err := s.comms.Create(ctx, comm); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log communication")
	}
	return comm, nil
}

// List returns the communications log.
func (s *NotificationService) List(ctx context.Context, filter models.CommunicationFilter) ([]models.Communication, error) {
	comms, err := s.comms.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list communications")
	}
	return comms, nil
}

// deliver is the queue handler for one attempt.
func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(deliveryJob)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	sender, ok := s.senders[payload.Message.Channel]
	if !ok || sender == nil {
		s.metrics.ObserveDelivery(string(payload.Message.Channel), "skipped")
		s.logger.Warn("no sender configured for channel",
			zap.String("channel", string(payload.Message.Channel)),
			zap.String("communication_id", payload.CommunicationID))
		s.markFailed(payload.CommunicationID)
		return nil
	}
	if err := sender.Send(ctx, payload.Message); err != nil {
		s.metrics.ObserveDelivery(string(payload.Message.Channel), "error")
		return appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, appErrors.ErrDeliveryFailed.Message)
	}
	s.metrics.ObserveDelivery(string(payload.Message.Channel), "delivered")
	updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.comms.UpdateStatus(updateCtx, payload.CommunicationID, models.CommStatusDelivered); err != nil {
		s.logger.Warn("failed to mark communication delivered",
			zap.String("communication_id", payload.CommunicationID), zap.Error(err))
	}
	return nil
}

// handleDrop runs when delivery retries are exhausted.
func (s *NotificationService) handleDrop(job jobs.Job, err error) {
	payload, ok := job.Payload.(deliveryJob)
	if !ok {
		return
	}
	s.metrics.ObserveDelivery(string(payload.Message.Channel), "dropped")
	s.logger.Error("notification delivery abandoned",
		zap.String("communication_id", payload.CommunicationID),
		zap.String("channel", string(payload.Message.Channel)),
		zap.Error(err))
	s.markFailed(payload.CommunicationID)
}

func (s *NotificationService) markFailed(communicationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.comms.UpdateStatus(ctx, communicationID, models.CommStatusFailed); err != nil {
		s.logger.Warn("failed to mark communication failed",
			zap.String("communication_id", communicationID), zap.Error(err))
	}
}
