package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/middleware"
)

// DashboardController serves aggregate metrics
type DashboardController struct {
	dashboardService services.DashboardService
}

// NewDashboardController creates a new DashboardController
func NewDashboardController(dashboardService services.DashboardService) *DashboardController {
	return &DashboardController{
		dashboardService: dashboardService,
	}
}

// GetMetrics returns dashboard metrics
// @Summary Get dashboard metrics
// @Description The body holds the figures only. X-Metrics-Generated-At tells when they were computed, which may be earlier than the request when served from cache.
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.DashboardMetrics} "Metrics"
// @Header 200 {string} X-Metrics-Generated-At "RFC3339 timestamp of computation"
// @Router /dashboard/metrics [get]
func (c *DashboardController) GetMetrics(ctx *gin.Context) {
	snapshot, err := c.dashboardService.GetMetrics(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header(middleware.MetricsGeneratedAtHeader, snapshot.GeneratedAt.UTC().Format(time.RFC3339Nano))
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(snapshot.Metrics, ""))
}

// ClearCache drops the cached metrics snapshot
// @Summary Clear the metrics cache
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Cache cleared"
// @Router /dashboard/clear-cache [post]
func (c *DashboardController) ClearCache(ctx *gin.Context) {
	if err := c.dashboardService.ClearCache(ctx.Request.Context()); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Metrics cache cleared"))
}
