package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/dto"
	"github.com/klil-music/conservatory-api/internal/service"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/response"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// TimeBlockHandler exposes teacher availability blocks and the slot search.
type TimeBlockHandler struct {
	blocks *service.TimeBlockService
}

// NewTimeBlockHandler constructs a time block handler.
func NewTimeBlockHandler(blocks *service.TimeBlockService) *TimeBlockHandler {
	return &TimeBlockHandler{blocks: blocks}
}

// Get godoc
// @Summary Get availability block
// @Tags Time Blocks
// @Produce json
// @Param id path string true "Block ID"
// @Success 200 {object} response.Envelope
// @Router /blocks/{id} [get]
func (h *TimeBlockHandler) Get(c *gin.Context) {
	block, err := h.blocks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, block, nil)
}

// ListByTeacher godoc
// @Summary List a teacher's availability blocks
// @Tags Time Blocks
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param day query string false "Restrict to one day"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/blocks [get]
func (h *TimeBlockHandler) ListByTeacher(c *gin.Context) {
	var day *timeutil.Day
	if name := c.Query("day"); name != "" {
		parsed, err := timeutil.ParseDay(name)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day filter"))
			return
		}
		day = &parsed
	}

	blocks, err := h.blocks.ListByTeacher(c.Request.Context(), c.Param("teacherId"), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

// Create godoc
// @Summary Declare availability block
// @Tags Time Blocks
// @Accept json
// @Produce json
// @Param payload body service.CreateTimeBlockRequest true "Block payload"
// @Success 201 {object} response.Envelope
// @Router /blocks [post]
func (h *TimeBlockHandler) Create(c *gin.Context) {
	var req service.CreateTimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time block payload"))
		return
	}
	block, err := h.blocks.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// Update godoc
// @Summary Edit an availability block
// @Tags Time Blocks
// @Accept json
// @Produce json
// @Param id path string true "Block ID"
// @Param payload body service.UpdateTimeBlockRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /blocks/{id} [put]
func (h *TimeBlockHandler) Update(c *gin.Context) {
	var req service.UpdateTimeBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time block payload"))
		return
	}
	block, err := h.blocks.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, block, nil)
}

// Delete godoc
// @Summary Delete availability block
// @Tags Time Blocks
// @Produce json
// @Param id path string true "Block ID"
// @Success 204 {object} response.Envelope
// @Router /blocks/{id} [delete]
func (h *TimeBlockHandler) Delete(c *gin.Context) {
	if err := h.blocks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignLesson godoc
// @Summary Place a lesson inside a block
// @Tags Time Blocks
// @Accept json
// @Produce json
// @Param id path string true "Block ID"
// @Param payload body dto.AssignLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blocks/{id}/lessons [post]
func (h *TimeBlockHandler) AssignLesson(c *gin.Context) {
	var req dto.AssignLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	assignment, err := h.blocks.AssignLesson(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// RemoveLesson godoc
// @Summary Remove a lesson from a block
// @Tags Time Blocks
// @Produce json
// @Param id path string true "Block ID"
// @Param lessonId path string true "Assignment or student ID"
// @Success 204 {object} response.Envelope
// @Router /blocks/{id}/lessons/{lessonId} [delete]
func (h *TimeBlockHandler) RemoveLesson(c *gin.Context) {
	if err := h.blocks.RemoveLesson(c.Request.Context(), c.Param("id"), c.Param("lessonId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Utilization godoc
// @Summary Block utilization for a teacher
// @Tags Time Blocks
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/blocks/utilization [get]
func (h *TimeBlockHandler) Utilization(c *gin.Context) {
	report, err := h.blocks.Utilization(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SearchSlots godoc
// @Summary Search available lesson placements
// @Description Ranks candidate lesson start times across a teacher's availability blocks.
// @Tags Time Blocks
// @Accept json
// @Produce json
// @Param payload body dto.SlotSearchRequest true "Search payload"
// @Success 200 {object} response.Envelope
// @Router /blocks/search [post]
func (h *TimeBlockHandler) SearchSlots(c *gin.Context) {
	var req dto.SlotSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid search payload"))
		return
	}
	result, err := h.blocks.SearchAvailableSlots(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
