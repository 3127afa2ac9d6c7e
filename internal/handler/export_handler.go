package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/service"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/response"
)

// ExportHandler serves schedule downloads, both synchronous and queued.
type ExportHandler struct {
	exports *service.ExportService
	jobs    *service.ExportJobService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(exports *service.ExportService, jobs *service.ExportJobService) *ExportHandler {
	return &ExportHandler{exports: exports, jobs: jobs}
}

// TeacherSchedule godoc
// @Summary Download a teacher's weekly schedule
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param teacherId path string true "Teacher ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} file
// @Router /teachers/{teacherId}/schedule/export [get]
func (h *ExportHandler) TeacherSchedule(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))

	result, err := h.exports.TeacherSchedule(c.Request.Context(), c.Param("teacherId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// EnqueueTeacherSchedule godoc
// @Summary Queue an async schedule export
// @Tags Exports
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 202 {object} response.Envelope{data=service.ExportJob}
// @Router /exports/teachers/{teacherId}/schedule/jobs [post]
func (h *ExportHandler) EnqueueTeacherSchedule(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))

	job, err := h.jobs.Enqueue(c.Request.Context(), c.Param("teacherId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Inspect an export job
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope{data=service.ExportJob}
// @Router /exports/jobs/{id} [get]
func (h *ExportHandler) JobStatus(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a completed export via signed token
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}

	result, err := h.jobs.ResolveDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
