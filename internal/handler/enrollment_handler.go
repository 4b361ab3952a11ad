package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/service"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
	"github.com/sekola/sekola-api/pkg/response"
)

// EnrollmentHandler exposes enrollment lifecycle endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param academicYearId query string false "Filter by academic year"
// @Param classId query string false "Filter by class"
// @Param sectionId query string false "Filter by section"
// @Param status query string false "Filter by status"
// @Param search query string false "Student name prefix search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var filter models.EnrollmentFilter
	filter.StudentID = c.Query("studentId")
	filter.AcademicYearID = c.Query("academicYearId")
	filter.ClassID = c.Query("classId")
	filter.SectionID = c.Query("sectionId")
	if status := c.Query("status"); status != "" {
		filter.Status = models.EnrollmentStatus(status)
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	enrollments, pagination, err := h.service.List(c.Request.Context(), sc, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, pagination)
}

// Assign godoc
// @Summary Assign student to an academic year
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.AssignEnrollmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AssignEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Assign(c.Request.Context(), sc, actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Transfer godoc
// @Summary Transfer student within the academic year
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.TransferEnrollmentRequest true "Transfer payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/transfer [post]
func (h *EnrollmentHandler) Transfer(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.TransferEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Transfer(c.Request.Context(), sc, actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Promote godoc
// @Summary Promote student to another academic year
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.PromoteEnrollmentRequest true "Promotion payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/promote [post]
func (h *EnrollmentHandler) Promote(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.PromoteEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Promote(c.Request.Context(), sc, actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Withdraw godoc
// @Summary Withdraw student from the academic year
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.WithdrawEnrollmentRequest true "Withdrawal payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.WithdrawEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Withdraw(c.Request.Context(), sc, actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Audits godoc
// @Summary List enrollment audit entries
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param action query string false "Filter by action"
// @Param from query string false "Effective from (RFC 3339)"
// @Param to query string false "Effective to (RFC 3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollment-audits [get]
func (h *EnrollmentHandler) Audits(c *gin.Context) {
	sc, err := scopeFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var filter models.EnrollmentAuditFilter
	filter.StudentID = c.Query("studentId")
	if action := c.Query("action"); action != "" {
		filter.Action = models.EnrollmentAction(action)
	}
	if from := c.Query("from"); from != "" {
		if val, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &val
		}
	}
	if to := c.Query("to"); to != "" {
		if val, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	audits, pagination, err := h.service.Audits(c.Request.Context(), sc, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, audits, pagination)
}
