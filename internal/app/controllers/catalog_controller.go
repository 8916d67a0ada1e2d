package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/middleware"
)

// CatalogController handles courses and their offerings
type CatalogController struct {
	catalogService services.CatalogService
}

// NewCatalogController creates a new CatalogController
func NewCatalogController(catalogService services.CatalogService) *CatalogController {
	return &CatalogController{
		catalogService: catalogService,
	}
}

// CreateCourse handles course creation
// @Summary Create a course
// @Tags courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCourseRequest true "Course"
// @Success 201 {object} dto.APIResponse{data=models.Course} "Course created"
// @Failure 400 {object} dto.APIResponse "Invalid request data"
// @Failure 409 {object} dto.APIResponse "Course code already exists"
// @Router /courses [post]
func (c *CatalogController) CreateCourse(ctx *gin.Context) {
	var req dto.CreateCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.catalogService.CreateCourse(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(course, "Course created successfully"))
}

// ListCourses lists the catalog
// @Summary List courses
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active courses"
// @Success 200 {object} dto.APIResponse{data=[]models.Course} "Courses"
// @Router /courses [get]
func (c *CatalogController) ListCourses(ctx *gin.Context) {
	courses, err := c.catalogService.ListCourses(ctx.Request.Context(), ctx.Query("active") == "true")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(courses, ""))
}

// GetCourse retrieves a course by ID
// @Summary Get a course
// @Tags courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.APIResponse{data=models.Course} "Course"
// @Failure 404 {object} dto.APIResponse "Course not found"
// @Router /courses/{id} [get]
func (c *CatalogController) GetCourse(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.catalogService.GetCourse(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(course, ""))
}

// CreateOffering schedules a batch
// @Summary Create a course offering
// @Tags offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateOfferingRequest true "Offering"
// @Success 201 {object} dto.APIResponse{data=models.CourseOffering} "Offering created"
// @Failure 400 {object} dto.APIResponse "Invalid request data"
// @Failure 404 {object} dto.APIResponse "Course not found"
// @Failure 409 {object} dto.APIResponse "Batch already exists for the course"
// @Router /offerings [post]
func (c *CatalogController) CreateOffering(ctx *gin.Context) {
	var req dto.CreateOfferingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	offering, err := c.catalogService.CreateOffering(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(offering, "Offering created successfully"))
}

// ListOfferings lists offerings with their active enrollment counts
// @Summary List course offerings
// @Tags offerings
// @Produce json
// @Security BearerAuth
// @Param courseId query int false "Course ID"
// @Param status query string false "Offering status" Enums(open, closed)
// @Param batch query string false "Batch"
// @Success 200 {object} dto.APIResponse{data=[]models.CourseOffering} "Offerings"
// @Router /offerings [get]
func (c *CatalogController) ListOfferings(ctx *gin.Context) {
	var query dto.OfferingListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	offerings, err := c.catalogService.ListOfferings(ctx.Request.Context(), query.Filter())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(offerings, ""))
}

// GetOffering retrieves an offering by ID
// @Summary Get a course offering
// @Tags offerings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offering ID"
// @Success 200 {object} dto.APIResponse{data=models.CourseOffering} "Offering"
// @Failure 404 {object} dto.APIResponse "Offering not found"
// @Router /offerings/{id} [get]
func (c *CatalogController) GetOffering(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	offering, err := c.catalogService.GetOffering(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(offering, ""))
}

// UpdateOffering changes capacity or schedule
// @Summary Update a course offering
// @Tags offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offering ID"
// @Param request body dto.UpdateOfferingRequest true "Changes"
// @Success 200 {object} dto.APIResponse{data=models.CourseOffering} "Offering updated"
// @Failure 404 {object} dto.APIResponse "Offering not found"
// @Failure 409 {object} dto.APIResponse "CapacityBelowEnrolled"
// @Router /offerings/{id} [put]
func (c *CatalogController) UpdateOffering(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateOfferingRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	offering, err := c.catalogService.UpdateOffering(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(offering, "Offering updated successfully"))
}

// UpdateOfferingStatus opens or closes an offering
// @Summary Open or close a course offering
// @Tags offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offering ID"
// @Param request body dto.UpdateOfferingStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.CourseOffering} "Status changed"
// @Failure 404 {object} dto.APIResponse "Offering not found"
// @Router /offerings/{id}/status [put]
func (c *CatalogController) UpdateOfferingStatus(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateOfferingStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	offering, err := c.catalogService.UpdateOfferingStatus(ctx.Request.Context(), id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(offering, "Offering status updated"))
}
