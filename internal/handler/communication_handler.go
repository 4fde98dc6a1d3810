package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborlaw/immigration-crm-api/internal/dto"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	"github.com/harborlaw/immigration-crm-api/internal/service"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/response"
)

// CommunicationHandler exposes the communication log and ad-hoc sending.
type CommunicationHandler struct {
	notifications *service.NotificationService
}

// NewCommunicationHandler constructs CommunicationHandler.
func NewCommunicationHandler(notifications *service.NotificationService) *CommunicationHandler {
	return &CommunicationHandler{notifications: notifications}
}

// List godoc
// @Summary List communications
// @Tags Communications
// @Produce json
// @Param channel query string false "Channel"
// @Param direction query string false "Direction"
// @Param status query string false "Status"
// @Param caseNumber query string false "Case number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /communications [get]
func (h *CommunicationHandler) List(c *gin.Context) {
	var filter models.CommunicationFilter
	filter.Channel = models.CommunicationChannel(c.Query("channel"))
	filter.Direction = models.CommunicationDirection(c.Query("direction"))
	filter.Status = models.CommunicationStatus(c.Query("status"))
	filter.CaseNumber = c.Query("caseNumber")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	comms, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comms, nil)
}

// Send godoc
// @Summary Send an outbound notification
// @Tags Communications
// @Accept json
// @Produce json
// @Param payload body dto.SendNotificationRequest true "Notification payload"
// @Success 201 {object} response.Envelope
// @Router /communications/send [post]
func (h *CommunicationHandler) Send(c *gin.Context) {
	var req dto.SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	comm, err := h.notifications.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comm)
}

// Log godoc
// @Summary Log an inbound or manually handled communication
// @Tags Communications
// @Accept json
// @Produce json
// @Param payload body dto.LogCommunicationRequest true "Communication payload"
// @Success 201 {object} response.Envelope
// @Router /communications/log [post]
func (h *CommunicationHandler) Log(c *gin.Context) {
	var req dto.LogCommunicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	comm, err := h.notifications.Log(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comm)
}
