package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/service"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/response"
)

// TheoryHandler exposes dated theory lesson management.
type TheoryHandler struct {
	theory *service.TheoryService
}

// NewTheoryHandler constructs a theory handler.
func NewTheoryHandler(theory *service.TheoryService) *TheoryHandler {
	return &TheoryHandler{theory: theory}
}

// List godoc
// @Summary List theory lessons
// @Tags Theory
// @Produce json
// @Param category query string false "Filter by category"
// @Param teacher_id query string false "Filter by teacher"
// @Param room query string false "Filter by room"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /theory [get]
func (h *TheoryHandler) List(c *gin.Context) {
	filter := models.TheoryLessonFilter{
		Category:  c.Query("category"),
		TeacherID: c.Query("teacher_id"),
		Room:      c.Query("room"),
	}
	if from, ok := dateQuery(c, "from"); ok {
		filter.FromDate = &from
	}
	if to, ok := dateQuery(c, "to"); ok {
		filter.ToDate = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	lessons, pagination, err := h.theory.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, pagination)
}

// Get godoc
// @Summary Get theory lesson
// @Tags Theory
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /theory/{id} [get]
func (h *TheoryHandler) Get(c *gin.Context) {
	lesson, err := h.theory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Create godoc
// @Summary Schedule a theory lesson
// @Tags Theory
// @Accept json
// @Produce json
// @Param payload body service.CreateTheoryLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theory [post]
func (h *TheoryHandler) Create(c *gin.Context) {
	var req service.CreateTheoryLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid theory lesson payload"))
		return
	}
	lesson, conflicts, err := h.theory.Create(c.Request.Context(), req)
	if err != nil {
		respondWithRoomConflicts(c, err, conflicts)
		return
	}
	response.Created(c, lesson)
}

// CreateRecurring godoc
// @Summary Schedule a weekly theory series
// @Tags Theory
// @Accept json
// @Produce json
// @Param payload body service.CreateRecurringTheoryRequest true "Series payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theory/recurring [post]
func (h *TheoryHandler) CreateRecurring(c *gin.Context) {
	var req service.CreateRecurringTheoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid recurring lesson payload"))
		return
	}
	lessons, conflicts, err := h.theory.CreateRecurring(c.Request.Context(), req)
	if err != nil {
		respondWithRoomConflicts(c, err, conflicts)
		return
	}
	response.Created(c, lessons)
}

// Update godoc
// @Summary Update theory lesson
// @Tags Theory
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body service.CreateTheoryLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /theory/{id} [put]
func (h *TheoryHandler) Update(c *gin.Context) {
	var req service.CreateTheoryLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid theory lesson payload"))
		return
	}
	lesson, conflicts, err := h.theory.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondWithRoomConflicts(c, err, conflicts)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete theory lesson
// @Tags Theory
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Router /theory/{id} [delete]
func (h *TheoryHandler) Delete(c *gin.Context) {
	if err := h.theory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RoomConflicts godoc
// @Summary Scan rooms for double bookings
// @Tags Theory
// @Produce json
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /theory/conflicts [get]
func (h *TheoryHandler) RoomConflicts(c *gin.Context) {
	from, okFrom := dateQuery(c, "from")
	to, okTo := dateQuery(c, "to")
	if !okFrom || !okTo {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to dates are required (YYYY-MM-DD)"))
		return
	}

	conflicts, err := h.theory.RoomConflicts(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

func dateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func respondWithRoomConflicts(c *gin.Context, err error, conflicts []models.RoomConflict) {
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
