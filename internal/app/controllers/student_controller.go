package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/enrolladmin/internal/app/auth"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/middleware"
	"github.com/yigit/enrolladmin/internal/pkg/helpers"
)

// StudentController handles the student registry
type StudentController struct {
	studentService services.StudentService
	authz          *appauth.AuthorizationService
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService services.StudentService, authz *appauth.AuthorizationService, logger zerolog.Logger) *StudentController {
	return &StudentController{
		studentService: studentService,
		authz:          authz,
		logger:         logger,
	}
}

// RegisterStudent handles student registration
// @Summary Register a student
// @Description Creates the student, a login account and the first enrollment in one transaction. An initial pending payment and a referral can be recorded with it. Credentials are emailed after commit.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RegisterStudentRequest true "Registration"
// @Success 201 {object} dto.APIResponse{data=dto.RegisterStudentResponse} "Student registered"
// @Failure 400 {object} dto.APIResponse "Invalid request data or InvalidAmount"
// @Failure 404 {object} dto.APIResponse "Offering or referral not found"
// @Failure 409 {object} dto.APIResponse "EmailAlreadyExists, CapacityExceeded, DuplicateEnrollment or OfferingClosed"
// @Router /students/register [post]
func (c *StudentController) RegisterStudent(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req dto.RegisterStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.studentService.RegisterStudent(ctx.Request.Context(), &req, p.UserID)
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Int64("offeringID", req.OfferingID).Msg("Student registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Student registered successfully"))
}

// ListStudents lists the registry
// @Summary List students
// @Description Filters by competency, offering batch, status and a name or email search. Sorted by last name then first name.
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param competency query string false "Competency level" Enums(basic, common, core)
// @Param batch query string false "Offering batch of an active enrollment"
// @Param status query string false "Enrollment status" Enums(enrolled, graduated, dropped)
// @Param search query string false "Name, email or student number contains"
// @Param name_sort query string false "Sort direction" Enums(asc, desc)
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Student}} "Students"
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	var query dto.StudentListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}
	page := helpers.ParsePaginationParams(ctx)
	filter := query.Filter()
	filter.Offset, filter.Limit = page.Offset(), page.Limit()

	students, total, err := c.studentService.ListStudents(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      students,
		Pagination: helpers.NewPaginationInfo(total, page),
	}, ""))
}

// ExportStudents downloads the filtered registry as a spreadsheet
// @Summary Export students
// @Tags students
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param competency query string false "Competency level"
// @Param batch query string false "Offering batch"
// @Param status query string false "Enrollment status"
// @Param search query string false "Search"
// @Success 200 {file} file "XLSX workbook"
// @Router /students/export [get]
func (c *StudentController) ExportStudents(ctx *gin.Context) {
	var query dto.StudentListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}
	filter := query.Filter()
	sendWorkbook(ctx, "students", func(w io.Writer) error {
		return c.studentService.ExportStudents(ctx.Request.Context(), filter, w)
	})
}

// GetStudent returns one student. Students may only read their own profile.
// @Summary Get a student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.authz.ValidateStudentAccess(p, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.studentService.GetStudent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}

// UpdateStudent changes contact fields
// @Summary Update a student's contact details
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Student updated"
// @Failure 400 {object} dto.APIResponse "Invalid request data"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.studentService.UpdateStudent(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student updated successfully"))
}

// UpdateStudentStatus graduates or drops a student
// @Summary Change a student's status
// @Description enrolled to graduated requires graduation eligibility. enrolled to dropped withdraws every active enrollment.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body dto.UpdateStudentStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Student} "Status changed"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition or NotEligibleForGraduation"
// @Router /students/{id}/status [put]
func (c *StudentController) UpdateStudentStatus(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	student, err := c.studentService.UpdateStatus(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student status updated"))
}

// RecomputeEligibility re-derives graduation eligibility for every enrolled student
// @Summary Recompute graduation eligibility
// @Tags students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.EligibilityRecomputeResponse} "Recompute summary"
// @Failure 403 {object} dto.APIResponse "Forbidden - admin only"
// @Router /students/eligibility/recompute [post]
func (c *StudentController) RecomputeEligibility(ctx *gin.Context) {
	result, err := c.studentService.RecomputeEligibility(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, "Eligibility recomputed"))
}

// RecordAssessment records a competency assessment
// @Summary Record a competency assessment
// @Description Stores the assessment and moves the student to the assessed level
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param request body dto.RecordAssessmentRequest true "Assessment"
// @Success 201 {object} dto.APIResponse{data=models.CompetencyAssessment} "Assessment recorded"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Router /students/{id}/assessments [post]
func (c *StudentController) RecordAssessment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.RecordAssessmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	assessment, err := c.studentService.RecordAssessment(ctx.Request.Context(), id, &req, p.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(assessment, "Assessment recorded"))
}

// ListAssessments lists a student's assessments
// @Summary List competency assessments
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.CompetencyAssessment} "Assessments"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Router /students/{id}/assessments [get]
func (c *StudentController) ListAssessments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.authz.ValidateStudentAccess(p, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	assessments, err := c.studentService.ListAssessments(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assessments, ""))
}
