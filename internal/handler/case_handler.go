package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/response"
)

type caseService interface {
	Create(ctx context.Context, req dto.CreateCaseRequest, actorID string) (*models.Case, error)
	Get(ctx context.Context, id string) (*models.Case, error)
	GetByNumber(ctx context.Context, number string) (*models.Case, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateCaseRequest, actorID string) (*models.Case, error)
	Transition(ctx context.Context, id string, req dto.TransitionCaseRequest, actorID string) (*models.Case, error)
	Successors(ctx context.Context, id string) (models.CaseStatus, []models.CaseStatus, error)
}

// CaseHandler exposes case lifecycle endpoints.
type CaseHandler struct {
	cases caseService
}

// NewCaseHandler constructs CaseHandler.
func NewCaseHandler(cases caseService) *CaseHandler {
	return &CaseHandler{cases: cases}
}

// List godoc
// @Summary List cases
// @Tags Cases
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param serviceType query string false "Service type"
// @Param priority query string false "Priority"
// @Param assignedTo query string false "Assigned staff member"
// @Param search query string false "Search by case number, client name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	filter := parseCaseFilter(c)
	cases, pagination, err := h.cases.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, pagination)
}

// Get godoc
// @Summary Get case detail
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	caseRecord, err := h.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, caseRecord, nil)
}

// GetByNumber godoc
// @Summary Get case by case number
// @Tags Cases
// @Produce json
// @Param number path string true "Case number"
// @Success 200 {object} response.Envelope
// @Router /case-numbers/{number} [get]
func (h *CaseHandler) GetByNumber(c *gin.Context) {
	caseRecord, err := h.cases.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, caseRecord, nil)
}

// Create godoc
// @Summary Open case
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	caseRecord, err := h.cases.Create(c.Request.Context(), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, caseRecord)
}

// Update godoc
// @Summary Update case details
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.UpdateCaseRequest true "Case payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [put]
func (h *CaseHandler) Update(c *gin.Context) {
	var req dto.UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	caseRecord, err := h.cases.Update(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, caseRecord, nil)
}

// Transition godoc
// @Summary Advance case status
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.TransitionCaseRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /cases/{id}/transition [post]
func (h *CaseHandler) Transition(c *gin.Context) {
	var req dto.TransitionCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	caseRecord, err := h.cases.Transition(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, caseRecord, nil)
}

// Successors godoc
// @Summary List permitted next statuses
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/transitions [get]
func (h *CaseHandler) Successors(c *gin.Context) {
	current, next, err := h.cases.Successors(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"current_status": current, "next_statuses": next}, nil)
}

func parseCaseFilter(c *gin.Context) models.CaseFilter {
	var filter models.CaseFilter
	if statuses := c.Query("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			filter.Status = append(filter.Status, models.CaseStatus(strings.TrimSpace(s)))
		}
	}
	filter.ServiceType = models.ServiceType(c.Query("serviceType"))
	filter.Priority = models.Priority(c.Query("priority"))
	filter.AssignedTo = c.Query("assignedTo")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	return filter
}
