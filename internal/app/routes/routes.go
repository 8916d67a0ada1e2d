package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/enrolladmin/internal/app/controllers"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/middleware"
)

// Handlers groups everything the router dispatches to
type Handlers struct {
	Auth        *controllers.AuthController
	Students    *controllers.StudentController
	Catalog     *controllers.CatalogController
	Enrollments *controllers.EnrollmentController
	Payments    *controllers.PaymentController
	Documents   *controllers.DocumentController
	Outreach    *controllers.OutreachController
	Dashboard   *controllers.DashboardController
	// Realtime serves the dashboard change feed; nil disables the route
	Realtime gin.HandlerFunc
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
	}

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth(), authMiddleware.ActiveUserRequired())

	staff := authenticated.Group("")
	staff.Use(authMiddleware.StaffRequired())

	admin := authenticated.Group("")
	admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))

	authenticated.GET("/auth/me", h.Auth.Me)
	admin.POST("/users", h.Auth.CreateUser)

	// Students
	{
		staff.POST("/students/register", h.Students.RegisterStudent)
		staff.GET("/students", h.Students.ListStudents)
		staff.GET("/students/export", h.Students.ExportStudents)
		admin.POST("/students/eligibility/recompute", h.Students.RecomputeEligibility)
		authenticated.GET("/students/:id", h.Students.GetStudent)
		staff.PUT("/students/:id", h.Students.UpdateStudent)
		staff.PUT("/students/:id/status", h.Students.UpdateStudentStatus)
		staff.POST("/students/:id/assessments", h.Students.RecordAssessment)
		authenticated.GET("/students/:id/assessments", h.Students.ListAssessments)
	}

	// Catalog
	{
		authenticated.GET("/courses", h.Catalog.ListCourses)
		authenticated.GET("/courses/:id", h.Catalog.GetCourse)
		staff.POST("/courses", h.Catalog.CreateCourse)

		authenticated.GET("/offerings", h.Catalog.ListOfferings)
		authenticated.GET("/offerings/:id", h.Catalog.GetOffering)
		staff.POST("/offerings", h.Catalog.CreateOffering)
		staff.PUT("/offerings/:id", h.Catalog.UpdateOffering)
		staff.PUT("/offerings/:id/status", h.Catalog.UpdateOfferingStatus)
	}

	// Enrollments
	{
		authenticated.GET("/enrollments", h.Enrollments.ListEnrollments)
		authenticated.GET("/enrollments/:id", h.Enrollments.GetEnrollment)
		staff.POST("/enrollments", h.Enrollments.Enroll)
		staff.POST("/enrollments/:id/withdraw", h.Enrollments.Withdraw)
		staff.POST("/enrollments/:id/complete", h.Enrollments.Complete)
	}

	// Payments
	{
		authenticated.GET("/payments", h.Payments.ListPayments)
		staff.GET("/payments/summary", h.Payments.Summary)
		staff.GET("/payments/export", h.Payments.ExportPayments)
		authenticated.GET("/payments/:id", h.Payments.GetPayment)
		staff.POST("/payments", h.Payments.CreatePayment)
		staff.POST("/payments/upload-with-receipt", h.Payments.CreatePaymentWithReceipt)
		staff.PUT("/payments/:id/status", h.Payments.UpdatePaymentStatus)
	}

	// Documents
	{
		authenticated.GET("/documents", h.Documents.ListDocuments)
		authenticated.GET("/documents/:id", h.Documents.GetDocument)
		authenticated.GET("/documents/:id/file", h.Documents.DownloadDocument)
		staff.POST("/documents", h.Documents.UploadDocument)
		staff.PUT("/documents/:id/status", h.Documents.VerifyDocument)
		staff.POST("/documents/:id/resubmit", h.Documents.ResubmitDocument)
	}

	// Scholarships and referrals
	{
		authenticated.GET("/scholarships", h.Outreach.ListScholarships)
		staff.POST("/scholarships", h.Outreach.CreateScholarship)
		staff.PUT("/scholarships/:id/active", h.Outreach.SetScholarshipActive)

		authenticated.GET("/referrals", h.Outreach.ListReferrals)
		authenticated.POST("/referrals", h.Outreach.CreateReferral)
		staff.PUT("/referrals/:id/status", h.Outreach.UpdateReferralStatus)
	}

	// Dashboard
	{
		staff.GET("/dashboard/metrics", h.Dashboard.GetMetrics)
		staff.POST("/dashboard/clear-cache", h.Dashboard.ClearCache)
		if h.Realtime != nil {
			staff.GET("/dashboard/ws", h.Realtime)
		}
	}
}

// SetupStatic serves stored uploads under /uploads
func SetupStatic(router *gin.Engine, storagePath string) {
	router.Static("/uploads", storagePath)
}
