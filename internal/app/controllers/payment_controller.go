package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	appauth "github.com/yigit/enrolladmin/internal/app/auth"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/middleware"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/helpers"
)

// ReceiptFormField is the multipart field carrying a payment receipt
const ReceiptFormField = "receipt"

// PaymentController handles the payment ledger
type PaymentController struct {
	paymentService services.PaymentService
	authz          *appauth.AuthorizationService
	logger         zerolog.Logger
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(paymentService services.PaymentService, authz *appauth.AuthorizationService, logger zerolog.Logger) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		authz:          authz,
		logger:         logger,
	}
}

// CreatePayment records a payment
// @Summary Record a payment
// @Description Amount must be a positive decimal. New payments are pending.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreatePaymentRequest true "Payment"
// @Success 201 {object} dto.APIResponse{data=models.Payment} "Payment recorded"
// @Failure 400 {object} dto.APIResponse "InvalidAmount or invalid request data"
// @Failure 404 {object} dto.APIResponse "Student or enrollment not found"
// @Router /payments [post]
func (c *PaymentController) CreatePayment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	payment, err := c.paymentService.CreatePayment(ctx.Request.Context(), &req, p.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(payment, "Payment recorded successfully"))
}

// CreatePaymentWithReceipt records a payment together with its receipt file
// @Summary Record a payment with a receipt
// @Description The amount is checked first, then the file. Nothing is stored when either is rejected.
// @Tags payments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param studentId formData int true "Student ID"
// @Param enrollmentId formData int false "Enrollment ID"
// @Param paymentType formData string true "Payment type" Enums(tuition, registration, materials, assessment, other)
// @Param amount formData string true "Amount" example(250.00)
// @Param referenceNumber formData string false "Reference number"
// @Param notes formData string false "Notes"
// @Param receipt formData file true "Receipt (jpeg, png, gif, pdf, doc, docx, xls, xlsx)"
// @Success 201 {object} dto.APIResponse{data=models.Payment} "Payment recorded"
// @Failure 400 {object} dto.APIResponse "InvalidAmount, UnsupportedFileType or invalid form"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Failure 413 {object} dto.APIResponse "FileTooLarge"
// @Router /payments/upload-with-receipt [post]
func (c *PaymentController) CreatePaymentWithReceipt(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !middleware.Bind(ctx, &req) {
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(ctx.PostForm("amount")))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.ErrInvalidAmount.WithField("amount"))
		return
	}
	req.Amount = amount

	receipt, err := ctx.FormFile(ReceiptFormField)
	if err != nil {
		middleware.HandleAPIError(ctx, formFileError(err, ReceiptFormField))
		return
	}

	payment, err := c.paymentService.CreatePaymentWithReceipt(ctx.Request.Context(), &req, receipt, p.UserID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("studentID", req.StudentID).Str("filename", receipt.Filename).Msg("Payment with receipt rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(payment, "Payment recorded successfully"))
}

// UpdatePaymentStatus settles a pending payment
// @Summary Change a payment's status
// @Description Only pending payments can move, to complete, incomplete or failed.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Param request body dto.UpdatePaymentStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Payment} "Status changed"
// @Failure 404 {object} dto.APIResponse "Payment not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition"
// @Router /payments/{id}/status [put]
func (c *PaymentController) UpdatePaymentStatus(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdatePaymentStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	payment, err := c.paymentService.UpdateStatus(ctx.Request.Context(), id, &req, p.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(payment, "Payment status updated"))
}

// GetPayment retrieves a payment by ID
// @Summary Get a payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} dto.APIResponse{data=models.Payment} "Payment"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Payment not found"
// @Router /payments/{id} [get]
func (c *PaymentController) GetPayment(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	payment, err := c.paymentService.GetPayment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if err := c.authz.ValidateStudentAccess(p, payment.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(payment, ""))
}

// ListPayments lists the ledger. Students only see their own payments.
// @Summary List payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Student ID"
// @Param status query string false "Status" Enums(pending, complete, incomplete, failed)
// @Param type query string false "Payment type"
// @Param from query string false "Payment date from (YYYY-MM-DD)"
// @Param to query string false "Payment date to (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Payment}} "Payments"
// @Router /payments [get]
func (c *PaymentController) ListPayments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var query dto.PaymentListQuery
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
	page := helpers.ParsePaginationParams(ctx)
	filter.Offset, filter.Limit = page.Offset(), page.Limit()

	payments, total, err := c.paymentService.ListPayments(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      payments,
		Pagination: helpers.NewPaginationInfo(total, page),
	}, ""))
}

// Summary returns ledger totals
// @Summary Payment summary
// @Description totalRevenue sums complete payments. Pending payments are counted and summed separately.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.PaymentSummary} "Summary"
// @Router /payments/summary [get]
func (c *PaymentController) Summary(ctx *gin.Context) {
	summary, err := c.paymentService.Summary(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summary, ""))
}

// ExportPayments downloads the filtered ledger as a spreadsheet
// @Summary Export payments
// @Tags payments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param studentId query int false "Student ID"
// @Param status query string false "Status"
// @Param type query string false "Payment type"
// @Param from query string false "Payment date from (YYYY-MM-DD)"
// @Param to query string false "Payment date to (YYYY-MM-DD)"
// @Success 200 {file} file "XLSX workbook"
// @Router /payments/export [get]
func (c *PaymentController) ExportPayments(ctx *gin.Context) {
	var query dto.PaymentListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}
	filter := query.Filter()
	sendWorkbook(ctx, "payments", func(w io.Writer) error {
		return c.paymentService.ExportPayments(ctx.Request.Context(), filter, w)
	})
}
