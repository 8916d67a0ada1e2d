package controllers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/enrolladmin/internal/app/auth"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/services"
	"github.com/yigit/enrolladmin/internal/middleware"
)

// DocumentFormField is the multipart field carrying a document
const DocumentFormField = "file"

// DocumentController handles document uploads and verification
type DocumentController struct {
	documentService services.DocumentService
	authz           *appauth.AuthorizationService
	logger          zerolog.Logger
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(documentService services.DocumentService, authz *appauth.AuthorizationService, logger zerolog.Logger) *DocumentController {
	return &DocumentController{
		documentService: documentService,
		authz:           authz,
		logger:          logger,
	}
}

// UploadDocument stores a document for review
// @Summary Upload a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param studentId formData int true "Student ID"
// @Param documentType formData string true "Document type" Enums(birth_certificate, transcript, diploma, id_photo, medical, other)
// @Param file formData file true "Document (jpeg, png, gif, pdf, doc, docx, xls, xlsx)"
// @Success 201 {object} dto.APIResponse{data=models.Document} "Document uploaded"
// @Failure 400 {object} dto.APIResponse "UnsupportedFileType or invalid form"
// @Failure 404 {object} dto.APIResponse "Student not found"
// @Failure 413 {object} dto.APIResponse "FileTooLarge"
// @Router /documents [post]
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var form dto.UploadDocumentForm
	if !middleware.Bind(ctx, &form) {
		return
	}
	file, err := ctx.FormFile(DocumentFormField)
	if err != nil {
		middleware.HandleAPIError(ctx, formFileError(err, DocumentFormField))
		return
	}

	doc, err := c.documentService.UploadDocument(ctx.Request.Context(), &form, file, p.UserID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("studentID", form.StudentID).Str("filename", file.Filename).Msg("Document upload rejected")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(doc, "Document uploaded successfully"))
}

// VerifyDocument records the review outcome of a pending document
// @Summary Verify a document
// @Description Notes are required unless the outcome is verified. Only pending documents can be reviewed.
// @Tags documents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Param request body dto.VerifyDocumentRequest true "Review outcome"
// @Success 200 {object} dto.APIResponse{data=models.Document} "Document reviewed"
// @Failure 400 {object} dto.APIResponse "MissingVerificationNotes"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition"
// @Router /documents/{id}/status [put]
func (c *DocumentController) VerifyDocument(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.VerifyDocumentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	doc, err := c.documentService.VerifyDocument(ctx.Request.Context(), id, &req, p.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(doc, "Document status updated"))
}

// ResubmitDocument uploads a replacement for a document marked requires_update
// @Summary Resubmit a document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID being replaced"
// @Param file formData file true "Replacement document"
// @Success 201 {object} dto.APIResponse{data=models.Document} "New pending document"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Failure 409 {object} dto.APIResponse "InvalidTransition"
// @Router /documents/{id}/resubmit [post]
func (c *DocumentController) ResubmitDocument(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}
	file, err := ctx.FormFile(DocumentFormField)
	if err != nil {
		middleware.HandleAPIError(ctx, formFileError(err, DocumentFormField))
		return
	}

	doc, err := c.documentService.ResubmitDocument(ctx.Request.Context(), id, file, p.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(doc, "Document resubmitted"))
}

// GetDocument retrieves a document's metadata
// @Summary Get a document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=models.Document} "Document"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Router /documents/{id} [get]
func (c *DocumentController) GetDocument(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	doc, err := c.documentService.GetDocument(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if err := c.authz.ValidateStudentAccess(p, doc.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(doc, ""))
}

// DownloadDocument streams the stored file under its original name
// @Summary Download a document
// @Tags documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {file} file "Stored bytes"
// @Failure 403 {object} dto.APIResponse "Not your record"
// @Failure 404 {object} dto.APIResponse "Document or file not found"
// @Router /documents/{id}/file [get]
func (c *DocumentController) DownloadDocument(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseIDParam(ctx, "id")
	if !ok {
		return
	}

	doc, f, err := c.documentService.OpenDocumentFile(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer f.Close()
	if err := c.authz.ValidateStudentAccess(p, doc.StudentID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.File.OriginalName}))
	ctx.Header("Content-Type", doc.File.MimeType)
	http.ServeContent(ctx.Writer, ctx.Request, doc.File.OriginalName, doc.UpdatedAt, f)
}

// ListDocuments lists documents. Students only see their own.
// @Summary List documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Student ID"
// @Param status query string false "Status" Enums(pending, verified, requires_update, rejected)
// @Param type query string false "Document type"
// @Success 200 {object} dto.APIResponse{data=[]models.Document} "Documents"
// @Router /documents [get]
func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	p, ok := principal(ctx)
	if !ok {
		return
	}
	var query dto.DocumentListQuery
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

	docs, err := c.documentService.ListDocuments(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(docs, ""))
}
