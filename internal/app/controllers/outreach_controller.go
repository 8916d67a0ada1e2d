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

// OutreachController handles scholarship offers and referrals
type OutreachController struct {
	outreachService services.OutreachService
	authz           *appauth.AuthorizationService
}

// NewOutreachController creates a new OutreachController
func NewOutreachController(outreachService services.OutreachService, authz *appauth.AuthorizationService) *OutreachController {
	return &OutreachController{
		outreachService: outreachService,
		authz:           authz,
	}
}

// CreateScholarship publishes a scholarship offer
// @Summary Create a scholarship offer
// @Tags scholarships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateScholarshipRequest true "Offer"
// @Success 201 {object} dto.APIResponse{data=models.ScholarshipOffer} "Offer created"
// @Failure 400 {object} dto.APIResponse "Invalid request data"
// @Router /scholarships [post]
func (c *OutreachController) CreateScholarship(ctx *gin.Context) {
	var req dto.CreateScholarshipRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	offer, err := c.outreachService.CreateScholarship(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(offer, "Scholarship offer created"))
}

// ListScholarships lists scholarship offers
// @Summary List scholarship offers
// @Tags scholarships
// @Produce json
// @Security BearerAuth
// @Param active query bool false "Only active offers"
// @Success 200 {object} dto.APIResponse{data=[]models.ScholarshipOffer} "Offers"
// @Router /scholarships [get]
func (c *OutreachController) ListScholarships(ctx *gin.Context) {
	offers, err := c.outreachService.ListScholarships(ctx.Request.Context(), ctx.Query("active") == "true")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if offers == nil {
		offers = []*models.ScholarshipOffer{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(offers, ""))
}

// SetScholarshipActive shows or hides an offer
// @Summary Activate or deactivate a scholarship offer
// @Tags scholarships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offer ID"
// @Param request body dto.UpdateScholarshipActiveRequest true "Active flag"
// @Success 200 {object} dto.APIResponse{data=models.ScholarshipOffer} "Offer updated"
// @Failure 404 {object} dto.APIResponse "Offer not found"
// @Router /scholarships/{id}/active [put]
func (c *OutreachController) SetScholarshipActive(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateScholarshipActiveRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	offer, err := c.outreachService.SetScholarshipActive(ctx.Request.Context(), id, *req.Active)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(offer, "Scholarship offer updated"))
}

// CreateReferral records a referral by an existing student
// @Summary Create a referral
// @Tags referrals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateReferralRequest true "Referral"
// @Success 201 {object} dto.APIResponse{data=models.Referral} "Referral created"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Referring student not found"
// @Router /referrals [post]
func (c *OutreachController) CreateReferral(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req dto.CreateReferralRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	if err := c.authz.ValidateStudentAccess(p, req.ReferrerStudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	referral, err := c.outreachService.CreateReferral(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(referral, "Referral recorded"))
}

// ListReferrals lists referrals. Students only see the ones they made.
// @Summary List referrals
// @Tags referrals
// @Produce json
// @Security BearerAuth
// @Param referrerStudentId query int false "Referring student ID"
// @Param status query string false "Status" Enums(pending, enrolled, rejected)
// @Success 200 {object} dto.APIResponse{data=[]models.Referral} "Referrals"
// @Router /referrals [get]
func (c *OutreachController) ListReferrals(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var query dto.ReferralListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}

	filter := query.Filter()
	scoped, err := c.authz.ScopeStudentID(p, filter.ReferrerStudentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	filter.ReferrerStudentID = scoped

	referrals, err := c.outreachService.ListReferrals(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if referrals == nil {
		referrals = []*models.Referral{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(referrals, ""))
}

// UpdateReferralStatus resolves a referral
// @Summary Change a referral's status
// @Tags referrals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Referral ID"
// @Param request body dto.UpdateReferralStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Referral} "Referral updated"
// @Failure 404 {object} dto.APIResponse "Referral not found"
// @Router /referrals/{id}/status [put]
func (c *OutreachController) UpdateReferralStatus(ctx *gin.Context) {
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateReferralStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	referral, err := c.outreachService.UpdateReferralStatus(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(referral, "Referral status updated"))
}
