package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/middleware"
	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/service"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/response"
	"github.com/klil-music/conservatory-api/pkg/timeutil"
)

// ScheduleHandler serves the computed weekly schedule views.
type ScheduleHandler struct {
	availability *service.AvailabilityService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(availability *service.AvailabilityService) *ScheduleHandler {
	return &ScheduleHandler{availability: availability}
}

// TeacherWeek godoc
// @Summary Weekly schedule for a teacher
// @Tags Schedules
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/schedule [get]
func (h *ScheduleHandler) TeacherWeek(c *gin.Context) {
	week, fromCache, err := h.availability.TeacherWeek(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, week, nil, middleware.ExtractMeta(c))
}

// StudentWeek godoc
// @Summary Weekly schedule for a student
// @Tags Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/schedule [get]
func (h *ScheduleHandler) StudentWeek(c *gin.Context) {
	schedule, fromCache, err := h.availability.StudentWeek(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, fromCache)
	response.JSON(c, http.StatusOK, schedule, nil, middleware.ExtractMeta(c))
}

// OpenSlots godoc
// @Summary Bookable slots for a teacher
// @Tags Schedules
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param day query string false "Restrict to one day"
// @Param min_start query string false "Earliest acceptable start (HH:MM)"
// @Param max_end query string false "Latest acceptable end (HH:MM)"
// @Param duration query int false "Exact slot duration in minutes"
// @Param student_id query string false "Exclude slots colliding with this student's bookings"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [get]
func (h *ScheduleHandler) OpenSlots(c *gin.Context) {
	filter := models.AvailabilityFilter{
		MinStartTime:     c.Query("min_start"),
		MaxEndTime:       c.Query("max_end"),
		ExcludeStudentID: c.Query("student_id"),
	}
	if name := c.Query("day"); name != "" {
		day, err := timeutil.ParseDay(name)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day filter"))
			return
		}
		filter.DayOfWeek = &day
	}
	if duration, err := strconv.Atoi(c.Query("duration")); err == nil {
		filter.Duration = duration
	}

	open, err := h.availability.OpenSlots(c.Request.Context(), c.Param("teacherId"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, open, nil)
}

// CheckAssignment godoc
// @Summary Dry-run a slot booking
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Param student_id query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id}/check [get]
func (h *ScheduleHandler) CheckAssignment(c *gin.Context) {
	studentID := c.Query("student_id")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}
	check, err := h.availability.CheckAssignment(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
