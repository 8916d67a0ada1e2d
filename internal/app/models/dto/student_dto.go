package dto

import (
	"github.com/shopspring/decimal"
	"github.com/yigit/enrolladmin/internal/app/models"
)

// InitialPaymentRequest is an optional pending payment recorded with a registration
type InitialPaymentRequest struct {
	PaymentType     models.PaymentType `json:"paymentType" binding:"required,oneof=tuition registration materials assessment other"`
	Amount          decimal.Decimal    `json:"amount" swaggertype:"string" example:"1500.00"`
	ReferenceNumber *string            `json:"referenceNumber,omitempty" binding:"omitempty,max=100"`
}

// RegisterStudentRequest creates a student together with the first enrollment
type RegisterStudentRequest struct {
	FirstName       string                 `json:"firstName" binding:"required,max=100"`
	LastName        string                 `json:"lastName" binding:"required,max=100"`
	Email           string                 `json:"email" binding:"required,email"`
	Phone           *string                `json:"phone,omitempty" binding:"omitempty,max=50,phone"`
	Address         *string                `json:"address,omitempty" binding:"omitempty,max=500"`
	BirthDate       string                 `json:"birthDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
	CompetencyLevel models.CompetencyLevel `json:"competencyLevel" binding:"required,oneof=basic common core"`
	OfferingID      int64                  `json:"offeringId" binding:"required,gt=0"`
	ReferralID      *int64                 `json:"referralId,omitempty" binding:"omitempty,gt=0"`
	InitialPayment  *InitialPaymentRequest `json:"initialPayment,omitempty"`
}

// RegisterStudentResponse is everything created by one registration
type RegisterStudentResponse struct {
	Student    *models.Student    `json:"student"`
	Enrollment *models.Enrollment `json:"enrollment"`
	Payment    *models.Payment    `json:"payment,omitempty"`
	User       *models.User       `json:"user"`
}

// UpdateStudentRequest changes contact fields. Omitted fields are left as is.
type UpdateStudentRequest struct {
	FirstName *string `json:"firstName,omitempty" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName,omitempty" binding:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" binding:"omitempty,max=50,phone"`
	Address   *string `json:"address,omitempty" binding:"omitempty,max=500"`
	BirthDate *string `json:"birthDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateStudentStatusRequest moves a student to graduated or dropped
type UpdateStudentStatusRequest struct {
	Status         models.StudentStatus `json:"status" binding:"required,oneof=enrolled graduated dropped"`
	GraduationDate string               `json:"graduationDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// StudentListQuery holds the list filters accepted on GET /students
type StudentListQuery struct {
	Competency string `form:"competency" binding:"omitempty,oneof=basic common core"`
	Batch      string `form:"batch"`
	Status     string `form:"status" binding:"omitempty,oneof=enrolled graduated dropped"`
	Search     string `form:"search" binding:"omitempty,max=100"`
	NameSort   string `form:"name_sort" binding:"omitempty,oneof=asc desc"`
}

// Filter converts the query into a repository filter
func (q StudentListQuery) Filter() models.StudentFilter {
	f := models.StudentFilter{NameSort: models.SortAsc}
	if q.Competency != "" {
		c := models.CompetencyLevel(q.Competency)
		f.Competency = &c
	}
	if q.Status != "" {
		s := models.StudentStatus(q.Status)
		f.Status = &s
	}
	if q.Batch != "" {
		b := q.Batch
		f.Batch = &b
	}
	if q.Search != "" {
		s := q.Search
		f.Search = &s
	}
	if q.NameSort == string(models.SortDesc) {
		f.NameSort = models.SortDesc
	}
	return f
}

// RecordAssessmentRequest records a competency assessment for a student
type RecordAssessmentRequest struct {
	Level models.CompetencyLevel `json:"level" binding:"required,oneof=basic common core"`
	Score *int                   `json:"score,omitempty" binding:"omitempty,gte=0,lte=100"`
	Notes *string                `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// EligibilityRecomputeResponse summarises a recompute run
type EligibilityRecomputeResponse struct {
	Checked  int `json:"checked"`
	Eligible int `json:"eligible"`
	Changed  int `json:"changed"`
}
