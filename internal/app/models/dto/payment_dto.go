package dto

import (
	"github.com/shopspring/decimal"
	"github.com/yigit/enrolladmin/internal/app/models"
)

// CreatePaymentRequest records a payment. Amount is checked by the service so
// that a non-positive value is reported as InvalidAmount.
type CreatePaymentRequest struct {
	StudentID       int64              `json:"studentId" form:"studentId" binding:"required,gt=0"`
	EnrollmentID    *int64             `json:"enrollmentId,omitempty" form:"enrollmentId" binding:"omitempty,gt=0"`
	PaymentType     models.PaymentType `json:"paymentType" form:"paymentType" binding:"required,oneof=tuition registration materials assessment other"`
	Amount          decimal.Decimal    `json:"amount" form:"-" swaggertype:"string" example:"250.00"`
	ReferenceNumber *string            `json:"referenceNumber,omitempty" form:"referenceNumber" binding:"omitempty,max=100"`
	Notes           *string            `json:"notes,omitempty" form:"notes" binding:"omitempty,max=2000"`
}

// UpdatePaymentStatusRequest settles a pending payment
type UpdatePaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required,oneof=pending complete incomplete failed"`
	Notes  *string              `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// PaymentListQuery holds the list filters accepted on GET /payments
type PaymentListQuery struct {
	StudentID int64  `form:"studentId" binding:"omitempty,gt=0"`
	Status    string `form:"status" binding:"omitempty,oneof=pending complete incomplete failed"`
	Type      string `form:"type" binding:"omitempty,oneof=tuition registration materials assessment other"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// Filter converts the query into a repository filter
func (q PaymentListQuery) Filter() models.PaymentFilter {
	var f models.PaymentFilter
	if q.StudentID > 0 {
		id := q.StudentID
		f.StudentID = &id
	}
	if q.Status != "" {
		s := models.PaymentStatus(q.Status)
		f.Status = &s
	}
	if q.Type != "" {
		t := models.PaymentType(q.Type)
		f.Type = &t
	}
	// dates were checked by the binding
	f.From, _ = models.ParseDate(q.From)
	f.To, _ = models.ParseDate(q.To)
	return f
}

// VerifyDocumentRequest records a review outcome for a pending document
type VerifyDocumentRequest struct {
	Status models.DocumentStatus `json:"status" binding:"required,oneof=verified requires_update rejected"`
	Notes  string                `json:"notes" binding:"max=2000"`
}

// UploadDocumentForm is the non-file part of a document upload
type UploadDocumentForm struct {
	StudentID    int64               `form:"studentId" binding:"required,gt=0"`
	DocumentType models.DocumentType `form:"documentType" binding:"required,oneof=birth_certificate transcript diploma id_photo medical other"`
}

// DocumentListQuery holds the list filters accepted on GET /documents
type DocumentListQuery struct {
	StudentID int64  `form:"studentId" binding:"omitempty,gt=0"`
	Status    string `form:"status" binding:"omitempty,oneof=pending verified requires_update rejected"`
	Type      string `form:"type" binding:"omitempty,oneof=birth_certificate transcript diploma id_photo medical other"`
}

// Filter converts the query into a repository filter
func (q DocumentListQuery) Filter() models.DocumentFilter {
	var f models.DocumentFilter
	if q.StudentID > 0 {
		id := q.StudentID
		f.StudentID = &id
	}
	if q.Status != "" {
		s := models.DocumentStatus(q.Status)
		f.Status = &s
	}
	if q.Type != "" {
		t := models.DocumentType(q.Type)
		f.Type = &t
	}
	return f
}
