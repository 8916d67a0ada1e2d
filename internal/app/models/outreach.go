package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScholarshipOffer is a sponsored award students can be pointed at
type ScholarshipOffer struct {
	ID               int64           `json:"id" db:"id"`
	Title            string          `json:"title" db:"title"`
	Description      *string         `json:"description,omitempty" db:"description"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	SponsorName      string          `json:"sponsorName" db:"sponsor_name"`
	SponsorStudentID *int64          `json:"sponsorStudentId,omitempty" db:"sponsor_student_id"`
	Slots            *int            `json:"slots,omitempty" db:"slots"`
	IsActive         bool            `json:"isActive" db:"is_active"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time       `json:"updatedAt" db:"updated_at"`
}

// ReferralStatus tracks whether a referred person registered
type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "pending"
	ReferralEnrolled ReferralStatus = "enrolled"
	ReferralRejected ReferralStatus = "rejected"
)

// IsValid reports whether s is a known status
func (s ReferralStatus) IsValid() bool {
	return s == ReferralPending || s == ReferralEnrolled || s == ReferralRejected
}

// Referral records a student recommending a prospective student
type Referral struct {
	ID                int64          `json:"id" db:"id"`
	ReferrerStudentID int64          `json:"referrerStudentId" db:"referrer_student_id"`
	ReferredName      string         `json:"referredName" db:"referred_name"`
	ReferredEmail     string         `json:"referredEmail" db:"referred_email"`
	ReferredPhone     *string        `json:"referredPhone,omitempty" db:"referred_phone"`
	Status            ReferralStatus `json:"status" db:"status"`
	ReferredStudentID *int64         `json:"referredStudentId,omitempty" db:"referred_student_id"`
	Notes             *string        `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
}

// ReferralFilter narrows referral lists
type ReferralFilter struct {
	ReferrerStudentID *int64
	Status            *ReferralStatus
}

// CompetencyAssessment is a recorded evaluation that sets a student's level
type CompetencyAssessment struct {
	ID         int64           `json:"id" db:"id"`
	StudentID  int64           `json:"studentId" db:"student_id"`
	Level      CompetencyLevel `json:"level" db:"level"`
	Score      *int            `json:"score,omitempty" db:"score"`
	Notes      *string         `json:"notes,omitempty" db:"notes"`
	AssessedBy int64           `json:"assessedBy" db:"assessed_by"`
	AssessedAt time.Time       `json:"assessedAt" db:"assessed_at"`
}
