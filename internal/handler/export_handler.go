package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/harborlaw/immigration-crm-api/internal/service"
	appErrors "github.com/harborlaw/immigration-crm-api/pkg/errors"
	"github.com/harborlaw/immigration-crm-api/pkg/response"
)

// ExportHandler exposes case roster export generation and download.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// GenerateCases godoc
// @Summary Generate a case roster export
// @Tags Exports
// @Produce json
// @Param format query string false "csv or pdf" default(csv)
// @Param status query string false "Comma separated statuses"
// @Param serviceType query string false "Service type"
// @Param priority query string false "Priority"
// @Param assignedTo query string false "Assigned staff member"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /exports/cases [post]
func (h *ExportHandler) GenerateCases(c *gin.Context) {
	filter := parseCaseFilter(c)
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	download, err := h.exports.GenerateCases(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, download, nil)
}

// Download godoc
// @Summary Download a generated export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, relPath, err := h.exports.OpenSigned(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	name := filepath.Base(relPath)
	mime := "application/octet-stream"
	switch filepath.Ext(name) {
	case ".csv":
		mime = "text/csv"
	case ".pdf":
		mime = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mime, file, nil)
}
