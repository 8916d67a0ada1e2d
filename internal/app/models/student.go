package models

import (
	"fmt"
	"time"
)

// StudentStatus is the registry-level lifecycle of a student
type StudentStatus string

const (
	StudentEnrolled  StudentStatus = "enrolled"
	StudentGraduated StudentStatus = "graduated"
	StudentDropped   StudentStatus = "dropped"
)

// IsValid reports whether s is a known status
func (s StudentStatus) IsValid() bool {
	return s == StudentEnrolled || s == StudentGraduated || s == StudentDropped
}

// CanTransitionTo reports whether staff may move a student from s to next.
// Graduated and dropped are terminal.
func (s StudentStatus) CanTransitionTo(next StudentStatus) bool {
	return s == StudentEnrolled && (next == StudentGraduated || next == StudentDropped)
}

// Student is one row of the registry. Students are never deleted.
type Student struct {
	ID                 int64           `json:"id" db:"id"`
	StudentNumber      string          `json:"studentNumber" db:"student_number"`
	FirstName          string          `json:"firstName" db:"first_name"`
	LastName           string          `json:"lastName" db:"last_name"`
	Email              string          `json:"email" db:"email"`
	Phone              *string         `json:"phone,omitempty" db:"phone"`
	Address            *string         `json:"address,omitempty" db:"address"`
	BirthDate          *time.Time      `json:"birthDate,omitempty" db:"birth_date"`
	CompetencyLevel    CompetencyLevel `json:"competencyLevel" db:"competency_level"`
	EnrollmentStatus   StudentStatus   `json:"enrollmentStatus" db:"enrollment_status"`
	GraduationEligible bool            `json:"graduationEligible" db:"graduation_eligible"`
	EnrollmentDate     time.Time       `json:"enrollmentDate" db:"enrollment_date"`
	GraduationDate     *time.Time      `json:"graduationDate,omitempty" db:"graduation_date"`
	ReferralID         *int64          `json:"referralId,omitempty" db:"referral_id"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
}

// FullName returns "First Last"
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// FormatStudentNumber renders the registry number for a sequence value
func FormatStudentNumber(year int, seq int64) string {
	return fmt.Sprintf("STU-%d-%06d", year, seq)
}

// SortDirection orders list results
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// StudentFilter is the closed set of optional list filters
type StudentFilter struct {
	Competency *CompetencyLevel
	Status     *StudentStatus
	Batch      *string
	Search     *string
	NameSort   SortDirection
	Offset     uint64
	Limit      int
}

// EligibilityFacts are the ledger counts graduation eligibility is derived from
type EligibilityFacts struct {
	CompletedEnrollments int
	ActiveEnrollments    int
	PendingPayments      int
	OpenDocuments        int
}

// Eligible reports whether a student has finished coursework and has nothing outstanding
func (f EligibilityFacts) Eligible() bool {
	return f.CompletedEnrollments > 0 && f.ActiveEnrollments == 0 && f.PendingPayments == 0 && f.OpenDocuments == 0
}
