package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harborlaw/immigration-crm-api/internal/models"
	"github.com/harborlaw/immigration-crm-api/pkg/response"
)

type activityLister interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
}

// ActivityHandler exposes the audit trail feed.
type ActivityHandler struct {
	activities activityLister
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activities activityLister) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List activity entries
// @Tags Activities
// @Produce json
// @Param entityType query string false "Entity type (lead, case, document, appointment)"
// @Param entityId query string false "Entity ID"
// @Param type query string false "Activity type"
// @Param actorId query string false "Actor ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	var filter models.ActivityFilter
	filter.EntityType = c.Query("entityType")
	filter.EntityID = c.Query("entityId")
	filter.Type = c.Query("type")
	filter.ActorID = c.Query("actorId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	activities, err := h.activities.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}
