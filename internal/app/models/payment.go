package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType classifies what a payment is for
type PaymentType string

const (
	PaymentTuition      PaymentType = "tuition"
	PaymentRegistration PaymentType = "registration"
	PaymentMaterials    PaymentType = "materials"
	PaymentAssessment   PaymentType = "assessment"
	PaymentOther        PaymentType = "other"
)

// IsValid reports whether t is a known type
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTuition, PaymentRegistration, PaymentMaterials, PaymentAssessment, PaymentOther:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentComplete   PaymentStatus = "complete"
	PaymentIncomplete PaymentStatus = "incomplete"
	PaymentFailed     PaymentStatus = "failed"
)

// IsValid reports whether s is a known status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentComplete, PaymentIncomplete, PaymentFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to next. Only pending payments
// settle, and terminal states are never re-opened.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s != PaymentPending {
		return false
	}
	return next == PaymentComplete || next == PaymentIncomplete || next == PaymentFailed
}

// Money columns are NUMERIC(12,2): two decimal places, ten integer digits.
const MoneyScale = 2

var MaxMoneyAmount = decimal.RequireFromString("9999999999.99")

// FitsMoneyColumn reports whether amount can be stored without rounding or overflow
func FitsMoneyColumn(amount decimal.Decimal) bool {
	if amount.Exponent() < -MoneyScale && !amount.Equal(amount.Truncate(MoneyScale)) {
		return false
	}
	return amount.Abs().LessThanOrEqual(MaxMoneyAmount)
}

// Payment is one ledger entry against a student's account
type Payment struct {
	ID              int64           `json:"id" db:"id"`
	StudentID       int64           `json:"studentId" db:"student_id"`
	EnrollmentID    *int64          `json:"enrollmentId,omitempty" db:"enrollment_id"`
	PaymentType     PaymentType     `json:"paymentType" db:"payment_type"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Status          PaymentStatus   `json:"status" db:"status"`
	PaymentDate     time.Time       `json:"paymentDate" db:"payment_date"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty" db:"reference_number"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Receipt         *StoredFile     `json:"receipt,omitempty"`
	RecordedBy      int64           `json:"recordedBy" db:"recorded_by"`
	StatusUpdatedBy *int64          `json:"statusUpdatedBy,omitempty" db:"status_updated_by"`
	StatusUpdatedAt *time.Time      `json:"statusUpdatedAt,omitempty" db:"status_updated_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// PaymentFilter narrows payment lists
type PaymentFilter struct {
	StudentID *int64
	Status    *PaymentStatus
	Type      *PaymentType
	From      *time.Time
	To        *time.Time
	Offset    uint64
	Limit     int
}

// PaymentSummary aggregates the ledger
type PaymentSummary struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	PendingCount  int64           `json:"pendingCount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
}
