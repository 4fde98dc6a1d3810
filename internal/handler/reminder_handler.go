package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/response"
)

type reminderService interface {
	CreateRule(ctx context.Context, req dto.CreateReminderRuleRequest) (*models.ReminderRule, error)
	GetRule(ctx context.Context, id string) (*models.ReminderRule, error)
	ListRules(ctx context.Context) ([]models.ReminderRule, error)
	UpdateRule(ctx context.Context, id string, req dto.UpdateReminderRuleRequest) (*models.ReminderRule, error)
	Evaluate(ctx context.Context, now time.Time) (*dto.EvaluationResult, error)
}

// ReminderHandler exposes reminder rule management and on-demand evaluation.
type ReminderHandler struct {
	reminders reminderService
}

// NewReminderHandler constructs ReminderHandler.
func NewReminderHandler(reminders reminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

// ListRules godoc
// @Summary List reminder rules
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reminders/rules [get]
func (h *ReminderHandler) ListRules(c *gin.Context) {
	rules, err := h.reminders.ListRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// GetRule godoc
// @Summary Get reminder rule detail
// @Tags Reminders
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /reminders/rules/{id} [get]
func (h *ReminderHandler) GetRule(c *gin.Context) {
	rule, err := h.reminders.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// CreateRule godoc
// @Summary Create reminder rule
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body dto.CreateReminderRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /reminders/rules [post]
func (h *ReminderHandler) CreateRule(c *gin.Context) {
	var req dto.CreateReminderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.reminders.CreateRule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Update reminder rule
// @Tags Reminders
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body dto.UpdateReminderRuleRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /reminders/rules/{id} [put]
func (h *ReminderHandler) UpdateRule(c *gin.Context) {
	var req dto.UpdateReminderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.reminders.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Evaluate godoc
// @Summary Run reminder evaluation now
// @Tags Reminders
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reminders/evaluate [post]
func (h *ReminderHandler) Evaluate(c *gin.Context) {
	result, err := h.reminders.Evaluate(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
