package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/klil-music/conservatory-api/internal/models"
	"github.com/klil-music/conservatory-api/internal/service"
	appErrors "github.com/klil-music/conservatory-api/pkg/errors"
	"github.com/klil-music/conservatory-api/pkg/response"
)

// OrchestraHandler exposes ensemble management.
type OrchestraHandler struct {
	orchestras *service.OrchestraService
}

// NewOrchestraHandler constructs an orchestra handler.
func NewOrchestraHandler(orchestras *service.OrchestraService) *OrchestraHandler {
	return &OrchestraHandler{orchestras: orchestras}
}

// List godoc
// @Summary List orchestras
// @Tags Orchestras
// @Produce json
// @Param search query string false "Search by name"
// @Param conductor_id query string false "Filter by conductor"
// @Param active query bool false "Filter by active status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /orchestras [get]
func (h *OrchestraHandler) List(c *gin.Context) {
	filter := models.OrchestraFilter{
		Search:      strings.TrimSpace(c.Query("search")),
		ConductorID: c.Query("conductor_id"),
		Active:      boolQuery(c, "active"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	orchestras, pagination, err := h.orchestras.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orchestras, pagination)
}

// Get godoc
// @Summary Get orchestra detail
// @Tags Orchestras
// @Produce json
// @Param id path string true "Orchestra ID"
// @Success 200 {object} response.Envelope
// @Router /orchestras/{id} [get]
func (h *OrchestraHandler) Get(c *gin.Context) {
	orchestra, err := h.orchestras.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orchestra, nil)
}

// Create godoc
// @Summary Create orchestra
// @Tags Orchestras
// @Accept json
// @Produce json
// @Param payload body service.CreateOrchestraRequest true "Orchestra payload"
// @Success 201 {object} response.Envelope
// @Router /orchestras [post]
func (h *OrchestraHandler) Create(c *gin.Context) {
	var req service.CreateOrchestraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid orchestra payload"))
		return
	}
	orchestra, err := h.orchestras.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, orchestra)
}

// Update godoc
// @Summary Update orchestra
// @Tags Orchestras
// @Accept json
// @Produce json
// @Param id path string true "Orchestra ID"
// @Param payload body service.UpdateOrchestraRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Router /orchestras/{id} [put]
func (h *OrchestraHandler) Update(c *gin.Context) {
	var req service.UpdateOrchestraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid orchestra payload"))
		return
	}
	orchestra, err := h.orchestras.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orchestra, nil)
}

// AddMember godoc
// @Summary Add a student to an orchestra
// @Tags Orchestras
// @Accept json
// @Produce json
// @Param id path string true "Orchestra ID"
// @Param payload body map[string]string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /orchestras/{id}/members [post]
func (h *OrchestraHandler) AddMember(c *gin.Context) {
	var payload struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id required"))
		return
	}
	orchestra, err := h.orchestras.AddMember(c.Request.Context(), c.Param("id"), payload.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orchestra, nil)
}

// RemoveMember godoc
// @Summary Remove a student from an orchestra
// @Tags Orchestras
// @Produce json
// @Param id path string true "Orchestra ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /orchestras/{id}/members/{studentId} [delete]
func (h *OrchestraHandler) RemoveMember(c *gin.Context) {
	orchestra, err := h.orchestras.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orchestra, nil)
}

// Members godoc
// @Summary List orchestra members
// @Tags Orchestras
// @Produce json
// @Param id path string true "Orchestra ID"
// @Success 200 {object} response.Envelope
// @Router /orchestras/{id}/members [get]
func (h *OrchestraHandler) Members(c *gin.Context) {
	members, err := h.orchestras.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, members, nil)
}

// Deactivate godoc
// @Summary Deactivate orchestra
// @Tags Orchestras
// @Produce json
// @Param id path string true "Orchestra ID"
// @Success 204 {object} response.Envelope
// @Router /orchestras/{id} [delete]
func (h *OrchestraHandler) Deactivate(c *gin.Context) {
	if err := h.orchestras.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
