package models

import "time"

// OfferingStatus controls whether an offering accepts new enrollments
type OfferingStatus string

const (
	OfferingOpen   OfferingStatus = "open"
	OfferingClosed OfferingStatus = "closed"
)

// IsValid reports whether s is a known status
func (s OfferingStatus) IsValid() bool {
	return s == OfferingOpen || s == OfferingClosed
}

// CourseOffering is a scheduled, capacity-bounded instance of a course
type CourseOffering struct {
	ID        int64          `json:"id" db:"id"`
	CourseID  int64          `json:"courseId" db:"course_id"`
	Batch     string         `json:"batch" db:"batch"`
	Capacity  int            `json:"capacity" db:"capacity"`
	StartDate time.Time      `json:"startDate" db:"start_date"`
	EndDate   time.Time      `json:"endDate" db:"end_date"`
	Status    OfferingStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time      `json:"updatedAt" db:"updated_at"`

	// ActiveEnrollmentCount is computed from enrollments in 'enrolled' status
	ActiveEnrollmentCount int `json:"activeEnrollmentCount" db:"active_enrollment_count"`

	// Relations (populated when needed)
	Course *Course `json:"course,omitempty"`
}

// RemainingSeats returns capacity minus active enrollments, never negative
func (o *CourseOffering) RemainingSeats() int {
	if n := o.Capacity - o.ActiveEnrollmentCount; n > 0 {
		return n
	}
	return 0
}

// OfferingFilter narrows offering lists
type OfferingFilter struct {
	CourseID *int64
	Status   *OfferingStatus
	Batch    *string
}
