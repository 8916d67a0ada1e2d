package dto

import (
	"github.com/shopspring/decimal"
	"github.com/yigit/enrolladmin/internal/app/models"
)

// CreateScholarshipRequest publishes a scholarship offer
type CreateScholarshipRequest struct {
	Title            string          `json:"title" binding:"required,max=200"`
	Description      *string         `json:"description,omitempty" binding:"omitempty,max=2000"`
	Amount           decimal.Decimal `json:"amount" swaggertype:"string" example:"500.00"`
	SponsorName      string          `json:"sponsorName" binding:"required,max=200"`
	SponsorStudentID *int64          `json:"sponsorStudentId,omitempty" binding:"omitempty,gt=0"`
	Slots            *int            `json:"slots,omitempty" binding:"omitempty,gt=0"`
}

// UpdateScholarshipActiveRequest toggles whether an offer is shown
type UpdateScholarshipActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// CreateReferralRequest records a student recommending someone
type CreateReferralRequest struct {
	ReferrerStudentID int64   `json:"referrerStudentId" binding:"required,gt=0"`
	ReferredName      string  `json:"referredName" binding:"required,max=200"`
	ReferredEmail     string  `json:"referredEmail" binding:"required,email"`
	ReferredPhone     *string `json:"referredPhone,omitempty" binding:"omitempty,max=50,phone"`
	Notes             *string `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// UpdateReferralStatusRequest resolves a pending referral
type UpdateReferralStatusRequest struct {
	Status            models.ReferralStatus `json:"status" binding:"required,oneof=pending enrolled rejected"`
	ReferredStudentID *int64                `json:"referredStudentId,omitempty" binding:"omitempty,gt=0"`
	Notes             *string               `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// ReferralListQuery holds the list filters accepted on GET /referrals
type ReferralListQuery struct {
	ReferrerStudentID int64  `form:"referrerStudentId" binding:"omitempty,gt=0"`
	Status            string `form:"status" binding:"omitempty,oneof=pending enrolled rejected"`
}

// Filter converts the query into a repository filter
func (q ReferralListQuery) Filter() models.ReferralFilter {
	var f models.ReferralFilter
	if q.ReferrerStudentID > 0 {
		id := q.ReferrerStudentID
		f.ReferrerStudentID = &id
	}
	if q.Status != "" {
		s := models.ReferralStatus(q.Status)
		f.Status = &s
	}
	return f
}
