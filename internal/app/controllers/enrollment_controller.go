package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/enrolladmin/internal/app/auth"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/middleware"
)

// EnrollmentController handles the enrollment ledger
type EnrollmentController struct {
	enrollmentService services.EnrollmentService
	authz             *appauth.AuthorizationService
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(enrollmentService services.EnrollmentService, authz *appauth.AuthorizationService) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
		authz:             authz,
	}
}

// Enroll enrolls an existing student into an offering
// @Summary Enroll a student
// @Description Checks, in order: the student is enrolled, the offering is open, no active enrollment exists for the pair, and a seat is free.
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EnrollRequest true "Student and offering"
// @Success 201 {object} dto.APIResponse{data=models.Enrollment} "Enrolled"
// @Failure 404 {object} dto.APIResponse "Student or offering not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition, OfferingClosed, DuplicateEnrollment or CapacityExceeded"
// @Router /enrollments [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	var req dto.EnrollRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	enrollment, err := c.enrollmentService.Enroll(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(enrollment, "Student enrolled successfully"))
}

// Withdraw moves an active enrollment to withdrawn
// @Summary Withdraw an enrollment
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment} "Withdrawn"
// @Failure 404 {object} dto.APIResponse "Enrollment not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition"
// @Router /enrollments/{id}/withdraw [post]
func (c *EnrollmentController) Withdraw(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.enrollmentService.Withdraw(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, "Enrollment withdrawn"))
}

// Complete moves an active enrollment to completed
// @Summary Complete an enrollment
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment} "Completed"
// @Failure 404 {object} dto.APIResponse "Enrollment not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition"
// @Router /enrollments/{id}/complete [post]
func (c *EnrollmentController) Complete(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.enrollmentService.Complete(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, "Enrollment completed"))
}

// GetEnrollment retrieves an enrollment by ID
// @Summary Get an enrollment
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Success 200 {object} dto.APIResponse{data=models.Enrollment} "Enrollment"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Enrollment not found"
// @Router /enrollments/{id} [get]
func (c *EnrollmentController) GetEnrollment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	enrollment, err := c.enrollmentService.GetEnrollment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if err := c.authz.ValidateStudentAccess(p, enrollment.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollment, ""))
}

// ListEnrollments lists enrollments. Students only see their own.
// @Summary List enrollments
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Student ID"
// @Param offeringId query int false "Offering ID"
// @Param status query string false "Status" Enums(enrolled, withdrawn, completed)
// @Success 200 {object} dto.APIResponse{data=[]models.Enrollment} "Enrollments"
// @Router /enrollments [get]
func (c *EnrollmentController) ListEnrollments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var query dto.EnrollmentListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	filter := query.Filter()
	scoped, err := c.authz.ScopeStudentID(p, filter.StudentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	filter.StudentID = scoped

	enrollments, err := c.enrollmentService.ListEnrollments(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(enrollments, ""))
}
