package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harborlaw/immigration-crm-api/internal/service"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/response"
)

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Dashboard godoc
// @Summary Practice dashboard summary
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	summary, err := h.analytics.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Invalidate godoc
// @Summary Drop cached analytics aggregates
// @Tags Analytics
// @Produce json
// @Success 204
// @Router /analytics/cache [delete]
func (h *AnalyticsHandler) Invalidate(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	if err := h.analytics.Invalidate(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
