package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/service"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
	"github.com/sekola/sekola-api/pkg/response"
)

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	service     *service.StudentService
	enrollments *service.EnrollmentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc *service.StudentService, enrollments *service.EnrollmentService) *StudentHandler {
	return &StudentHandler{service: svc, enrollments: enrollments}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Name prefix search (case-insensitive)"
// @Param status query string false "Filter by status"
// @Param academicYearId query string false "Filter by current academic year"
// @Param classId query string false "Filter by current class"
// @Param sectionId query string false "Filter by current section"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var filter models.StudentFilter
	filter.Search = c.Query("search")
	if status := c.Query("status"); status != "" {
		filter.Status = models.StudentStatus(status)
	}
	filter.AcademicYearID = c.Query("academicYearId")
	filter.ClassID = c.Query("classId")
	filter.SectionID = c.Query("sectionId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.service.List(c.Request.Context(), sc, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.service.Get(c.Request.Context(), sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.service.Create(c.Request.Context(), sc, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.service.Update(c.Request.Context(), sc, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// EnrollmentHistory godoc
// @Summary List a student's enrollment history
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *StudentHandler) EnrollmentHistory(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.enrollments.History(c.Request.Context(), sc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
