package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
)

type reminderRuleStore interface {
	Create(ctx context.Context, rule *models.ReminderRule) error
	GetByID(ctx context.Context, id string) (*models.ReminderRule, error)
	Update(ctx context.Context, rule *models.ReminderRule) error
	List(ctx context.Context) ([]models.ReminderRule, error)
	ListActive(ctx context.Context) ([]models.ReminderRule, error)
}

type dedupeStore interface {
	MarkDispatched(ctx context.Context, entityID, ruleID string, day time.Time) (bool, error)
	ClearDispatched(ctx context.Context, entityID, ruleID string, day time.Time) error
}

type passportDeadlineSource interface {
	WithPassportExpiringOn(ctx context.Context, day time.Time, limit int) ([]models.Case, error)
	GetByID(ctx context.Context, id string) (*models.Case, error)
}

type documentDeadlineSource interface {
	PendingDueOn(ctx context.Context, day time.Time, limit int) ([]models.Document, error)
}

type appointmentSource interface {
	ScheduledOn(ctx context.Context, day time.Time, limit int) ([]models.Appointment, error)
}

// Rules are authored with either {name} or {{name}} tokens; both forms bind
// to the same variable set.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}|\{([a-zA-Z0-9_]+)\}`)

// ReminderConfig tunes the evaluation loop.
type ReminderConfig struct {
	Interval time.Duration
	BatchMax int
}

// ReminderService evaluates declarative reminder rules against upcoming
// deadlines and dispatches at most one notification per entity, rule and day.
type ReminderService struct {
	rules        reminderRuleStore
	dedupe       dedupeStore
	cases        passportDeadlineSource
	documents    documentDeadlineSource
	appointments appointmentSource
	notifier     notifier
	metrics      *MetricsService
	cfg          ReminderConfig
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReminderService constructs ReminderService.
func NewReminderService(rules reminderRuleStore, dedupe dedupeStore, cases passportDeadlineSource, documents documentDeadlineSource, appointments appointmentSource, notifier notifier, metrics *MetricsService, cfg ReminderConfig, validate *validator.Validate, logger *zap.Logger) *ReminderService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.BatchMax <= 0 {
		cfg.BatchMax = 500
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		rules:        rules,
		dedupe:       dedupe,
		cases:        cases,
		documents:    documents,
		appointments: appointments,
		notifier:     notifier,
		metrics:      metrics,
		cfg:          cfg,
		validator:    validate,
		logger:       logger,
	}
}

// CreateRule registers a new reminder rule after verifying its template
// renders with the placeholder set its type provides.
func (s *ReminderService) CreateRule(ctx context.Context, req dto.CreateReminderRuleRequest) (*models.ReminderRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	switch req.Type {
	case models.ReminderPassportExpiry, models.ReminderAppointment, models.ReminderDocumentDeadline:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown reminder type")
	}
	if _, err := renderTemplate(req.MessageTemplate, sampleVars(req.Type)); err != nil {
		return nil, err
	}
	rule := &models.ReminderRule{
		Name:             req.Name,
		Type:             req.Type,
		TriggerCondition: req.TriggerCondition,
		DaysBefore:       req.DaysBefore,
		MessageTemplate:  req.MessageTemplate,
		Active:           req.Active,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}
	return rule, nil
}

// GetRule returns a rule by identifier.
func (s *ReminderService) GetRule(ctx context.Context, id string) (*models.ReminderRule, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reminder rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}
	return rule, nil
}

// ListRules returns every configured rule.
func (s *ReminderService) ListRules(ctx context.Context) ([]models.ReminderRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	return rules, nil
}

// UpdateRule mutates an existing rule.
func (s *ReminderService) UpdateRule(ctx context.Context, id string, req dto.UpdateReminderRuleRequest) (*models.ReminderRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.DaysBefore != nil {
		rule.DaysBefore = *req.DaysBefore
	}
	if req.MessageTemplate != nil {
		if _, err := renderTemplate(*req.MessageTemplate, sampleVars(rule.Type)); err != nil {
			return nil, err
		}
		rule.MessageTemplate = *req.MessageTemplate
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
	}
	return rule, nil
}

// Run evaluates on a fixed interval until the context is cancelled.
func (s *ReminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.logger.Info("reminder evaluation loop started", zap.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder evaluation loop stopped")
			return
		case <-ticker.C:
			if _, err := s.Evaluate(ctx, time.Now().UTC()); err != nil {
				s.logger.Error("reminder evaluation failed", zap.Error(err))
			}
		}
	}
}

// Evaluate runs one pass over all active rules. Each matched entity gets at
// most one dispatch per rule per day; re-running a pass is always safe.
func (s *ReminderService) Evaluate(ctx context.Context, now time.Time) (*dto.EvaluationResult, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active rules")
	}

	result := &dto.EvaluationResult{EvaluatedAt: now, RulesTotal: len(rules)}
	for _, rule := range rules {
		targetDay := now.AddDate(0, 0, rule.DaysBefore)
		switch rule.Type {
		case models.ReminderPassportExpiry:
			s.evaluatePassportRule(ctx, rule, targetDay, result)
		case models.ReminderDocumentDeadline:
			s.evaluateDocumentRule(ctx, rule, targetDay, result)
		case models.ReminderAppointment:
			s.evaluateAppointmentRule(ctx, rule, targetDay, result)
		default:
			s.logger.Warn("skipping rule with unknown type",
				zap.String("rule_id", rule.ID), zap.String("type", string(rule.Type)))
		}
	}

	s.logger.Info("reminder evaluation pass complete",
		zap.Int("rules", result.RulesTotal),
		zap.Int("matched", result.Matched),
		zap.Int("dispatched", result.Dispatched),
		zap.Int("deduped", result.Deduped),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ReminderService) evaluatePassportRule(ctx context.Context, rule models.ReminderRule, day time.Time, result *dto.EvaluationResult) {
	cases, err := s.cases.WithPassportExpiringOn(ctx, day, s.cfg.BatchMax)
	if err != nil {
		s.logger.Error("passport rule query failed", zap.String("rule_id", rule.ID), zap.Error(err))
		result.Failed++
		return
	}
	for i := range cases {
		c := &cases[i]
		vars := map[string]string{
			"client_name": c.ClientName,
			"case_number": c.CaseNumber,
			"days_before": strconv.Itoa(rule.DaysBefore),
			"date":        day.Format("2006-01-02"),
		}
		if c.PassportExpiry != nil {
			vars["date"] = c.PassportExpiry.Format("2006-01-02")
		}
		s.dispatchReminder(ctx, rule, c.ID, day, vars,
			fmt.Sprintf("Passport expiry reminder for case %s", c.CaseNumber),
			c.ClientName, c.ClientEmail, c.ClientPhone, c.SMSEnabled, &c.CaseNumber, result)
	}
}

func (s *ReminderService) evaluateDocumentRule(ctx context.Context, rule models.ReminderRule, day time.Time, result *dto.EvaluationResult) {
	docs, err := s.documents.PendingDueOn(ctx, day, s.cfg.BatchMax)
	if err != nil {
		s.logger.Error("document rule query failed", zap.String("rule_id", rule.ID), zap.Error(err))
		result.Failed++
		return
	}
	for i := range docs {
		doc := &docs[i]
		c, err := s.cases.GetByID(ctx, doc.CaseID)
		if err != nil {
			s.logger.Warn("document reminder skipped, case lookup failed",
				zap.String("document_id", doc.ID), zap.Error(err))
			result.Failed++
			continue
		}
		vars := map[string]string{
			"client_name": c.ClientName,
			"case_number": c.CaseNumber,
			"file_name":   doc.FileName,
			"days_before": strconv.Itoa(rule.DaysBefore),
			"date":        day.Format("2006-01-02"),
		}
		if doc.DueDate != nil {
			vars["date"] = doc.DueDate.Format("2006-01-02")
		}
		s.dispatchReminder(ctx, rule, doc.ID, day, vars,
			fmt.Sprintf("Document deadline reminder for case %s", c.CaseNumber),
			c.ClientName, c.ClientEmail, c.ClientPhone, c.SMSEnabled, &c.CaseNumber, result)
	}
}

func (s *ReminderService) evaluateAppointmentRule(ctx context.Context, rule models.ReminderRule, day time.Time, result *dto.EvaluationResult) {
	appts, err := s.appointments.ScheduledOn(ctx, day, s.cfg.BatchMax)
	if err != nil {
		s.logger.Error("appointment rule query failed", zap.String("rule_id", rule.ID), zap.Error(err))
		result.Failed++
		return
	}
	for i := range appts {
		appt := &appts[i]
		vars := map[string]string{
			"client_name": appt.ClientName,
			"title":       appt.Title,
			"days_before": strconv.Itoa(rule.DaysBefore),
			"date":        appt.ScheduledAt.Format("2006-01-02"),
			"time":        appt.ScheduledAt.Format("15:04"),
		}
		var caseNumber *string
		if appt.CaseID != nil {
			if c, err := s.cases.GetByID(ctx, *appt.CaseID); err == nil {
				vars["case_number"] = c.CaseNumber
				caseNumber = &c.CaseNumber
			}
		}
		s.dispatchReminder(ctx, rule, appt.ID, day, vars,
			fmt.Sprintf("Appointment reminder: %s", appt.Title),
			appt.ClientName, appt.ClientEmail, appt.ClientPhone, appt.ClientPhone != "", caseNumber, result)
	}
}

// dispatchReminder claims the dedupe marker, renders the template and sends.
// A terminal failure releases the marker so the next pass can retry.
func (s *ReminderService) dispatchReminder(ctx context.Context, rule models.ReminderRule, entityID string, day time.Time, vars map[string]string, subject, name, email, phone string, sms bool, caseNumber *string, result *dto.EvaluationResult) {
	result.Matched++

	created, err := s.dedupe.MarkDispatched(ctx, entityID, rule.ID, day)
	if err != nil {
		s.logger.Error("dedupe marker failed",
			zap.String("rule_id", rule.ID), zap.String("entity_id", entityID), zap.Error(err))
		result.Failed++
		return
	}
	if !created {
		s.metrics.ObserveReminderMatch(true)
		result.Deduped++
		return
	}
	s.metrics.ObserveReminderMatch(false)

	if email == "" && (!sms || phone == "") {
		// Nothing to deliver to. Keep the marker so the match stays quiet
		// for the rest of the day instead of re-failing every pass.
		s.logger.Warn("reminder match has no reachable contact",
			zap.String("rule_id", rule.ID), zap.String("entity_id", entityID))
		result.Skipped++
		return
	}

	body, err := renderTemplate(rule.MessageTemplate, vars)
	if err != nil {
		s.logger.Error("reminder template failed to render",
			zap.String("rule_id", rule.ID), zap.String("entity_id", entityID), zap.Error(err))
		result.Failed++
		s.releaseMarker(ctx, rule.ID, entityID, day)
		return
	}

	sent := false
	if email != "" {
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelEmail, name, email, subject, body, caseNumber); err != nil {
			s.logger.Warn("reminder email dispatch failed",
				zap.String("rule_id", rule.ID), zap.String("entity_id", entityID), zap.Error(err))
		} else {
			sent = true
		}
	}
	if sms && phone != "" {
		if _, err := s.notifier.Dispatch(ctx, notify.ChannelSMS, name, phone, "", body, caseNumber); err != nil {
			s.logger.Warn("reminder sms dispatch failed",
				zap.String("rule_id", rule.ID), zap.String("entity_id", entityID), zap.Error(err))
		} else {
			sent = true
		}
	}

	if sent {
		result.Dispatched++
		return
	}
	result.Failed++
	s.releaseMarker(ctx, rule.ID, entityID, day)
}

func (s *ReminderService) releaseMarker(ctx context.Context, ruleID, entityID string, day time.Time) {
	if err := s.dedupe.ClearDispatched(ctx, entityID, ruleID, day); err != nil {
		s.logger.Warn("failed to release dedupe marker",
			zap.String("rule_id", ruleID), zap.String("entity_id", entityID), zap.Error(err))
	}
}

// renderTemplate substitutes {placeholder} tokens. Any token without a
// binding fails the render; a reminder with missing data must not go out.
func renderTemplate(template string, vars map[string]string) (string, error) {
	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		groups := placeholderPattern.FindStringSubmatch(token)
		key := groups[1]
		if key == "" {
			key = groups[2]
		}
		value, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return token
		}
		return value
	})
	if len(missing) > 0 {
		return "", appErrors.Clone(appErrors.ErrTemplateRender,
			fmt.Sprintf("unbound placeholders: %s", strings.Join(missing, ", ")))
	}
	return rendered, nil
}

// sampleVars returns the placeholder bindings a rule type guarantees, used to
// vet templates at write time.
func sampleVars(t models.ReminderType) map[string]string {
	vars := map[string]string{
		"client_name": "Client Name",
		"days_before": "7",
		"date":        "2026-01-01",
	}
	switch t {
	case models.ReminderPassportExpiry:
		vars["case_number"] = "IMM-2026-00000"
	case models.ReminderDocumentDeadline:
		vars["case_number"] = "IMM-2026-00000"
		vars["file_name"] = "document.pdf"
	case models.ReminderAppointment:
		// Not every appointment has a linked case, so case_number is not a
		// guaranteed binding for this rule type.
		vars["title"] = "Consultation"
		vars["time"] = "09:00"
	}
	return vars
}
