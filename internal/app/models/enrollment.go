package models

import "time"

// EnrollmentStatus tracks a student's seat in an offering
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentWithdrawn EnrollmentStatus = "withdrawn"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// IsValid reports whether s is a known status
func (s EnrollmentStatus) IsValid() bool {
	return s == EnrollmentEnrolled || s == EnrollmentWithdrawn || s == EnrollmentCompleted
}

// Enrollment associates a student with an offering. Rows are never mutated back
// to enrolled; re-enrollment after withdrawal inserts a new row.
type Enrollment struct {
	ID             int64            `json:"id" db:"id"`
	StudentID      int64            `json:"studentId" db:"student_id"`
	OfferingID     int64            `json:"offeringId" db:"offering_id"`
	Status         EnrollmentStatus `json:"status" db:"status"`
	EnrollmentDate time.Time        `json:"enrollmentDate" db:"enrollment_date"`
	WithdrawnAt    *time.Time       `json:"withdrawnAt,omitempty" db:"withdrawn_at"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`

	// Relations (populated when needed)
	Offering *CourseOffering `json:"offering,omitempty"`
}

// EnrollmentFilter narrows enrollment lists
type EnrollmentFilter struct {
	StudentID  *int64
	OfferingID *int64
	Status     *EnrollmentStatus
}
