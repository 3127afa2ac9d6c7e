package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/dto"
	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/service"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/response"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// SlotHandler exposes weekly lesson slot management.
type SlotHandler struct {
	slots *service.SlotService
}

// NewSlotHandler constructs a slot handler.
func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// List godoc
// @Summary List lesson slots
// @Tags Slots
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param student_id query string false "Filter by student"
// @Param day query string false "Filter by day name"
// @Param active query bool false "Filter by active status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	filter := models.SlotFilter{
		TeacherID: c.Query("teacher_id"),
		StudentID: c.Query("student_id"),
		Active:    boolQuery(c, "active"),
	}
	if name := c.Query("day"); name != "" {
		day, err := timeutil.ParseDay(name)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day filter"))
			return
		}
		filter.DayOfWeek = &day
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	slots, pagination, err := h.slots.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Get slot detail
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Create lesson slot
// @Description Creates a weekly slot after checking the teacher's schedule for collisions.
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body service.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, conflicts, err := h.slots.Create(c.Request.Context(), req)
	if err != nil {
		respondWithConflicts(c, err, conflicts)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update lesson slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.UpdateSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id} [put]
func (h *SlotHandler) Update(c *gin.Context) {
	var req service.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, conflicts, err := h.slots.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondWithConflicts(c, err, conflicts)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Assign godoc
// @Summary Assign student to slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.AssignSlotRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id}/assign [post]
func (h *SlotHandler) Assign(c *gin.Context) {
	var req dto.AssignSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	slot, err := h.slots.Assign(c.Request.Context(), c.Param("id"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Unassign godoc
// @Summary Clear slot assignment
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id}/assign [delete]
func (h *SlotHandler) Unassign(c *gin.Context) {
	slot, err := h.slots.Unassign(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Deactivate godoc
// @Summary Deactivate slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204 {object} response.Envelope
// @Router /slots/{id} [delete]
func (h *SlotHandler) Deactivate(c *gin.Context) {
	if err := h.slots.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Conflicts godoc
// @Summary Scan a teacher's week for conflicts
// @Tags Slots
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/conflicts [get]
func (h *SlotHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.slots.Conflicts(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	hasErrors := false
	for _, conflict := range conflicts {
		if conflict.Severity == models.SeverityError {
			hasErrors = true
			break
		}
	}
	response.JSON(c, http.StatusOK, dto.ConflictReport{
		TeacherID: c.Param("teacherId"),
		Conflicts: conflicts,
		HasErrors: hasErrors,
	}, nil)
}

// respondWithConflicts includes the detected conflicts alongside the error so
// clients can render what collided.
func respondWithConflicts(c *gin.Context, err error, conflicts []models.ScheduleConflict) {
	appErr := appErrors.FromError(err)
	if len(conflicts) == 0 {
		response.Error(c, appErr)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, response.Envelope{
		Error: appErr,
		Data:  gin.H{"conflicts": conflicts},
	})
}
