package repositories

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/enrolladmin/internal/app/models"
)

// psql builds Postgres flavored statements
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// UserRepository persists login accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

// StudentRepository persists the student registry
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	NextStudentSequence(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int64, error)
	Update(ctx context.Context, student *models.Student) error
	ListIDsByStatus(ctx context.Context, status models.StudentStatus) ([]int64, error)
	EligibilityFacts(ctx context.Context, studentID int64) (models.EligibilityFacts, error)
}

// CourseRepository persists the course catalog
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Course, error)
}

// OfferingRepository persists course offerings. Reads include the joined course
// and the computed active enrollment count.
type OfferingRepository interface {
	Create(ctx context.Context, offering *models.CourseOffering) error
	GetByID(ctx context.Context, id int64) (*models.CourseOffering, error)
	// GetByIDForUpdate locks the offering row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.CourseOffering, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]*models.CourseOffering, error)
	Update(ctx context.Context, offering *models.CourseOffering) error
}

// EnrollmentRepository persists the enrollment ledger
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id int64) (*models.Enrollment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error)
	HasActive(ctx context.Context, studentID, offeringID int64) (bool, error)
	CountActive(ctx context.Context, offeringID int64) (int, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	List(ctx context.Context, filter models.EnrollmentFilter) ([]*models.Enrollment, error)
}

// PaymentRepository persists the payment ledger
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error)
	Summary(ctx context.Context) (*models.PaymentSummary, error)
}

// DocumentRepository persists uploaded documents and their review state
type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Document, error)
	Update(ctx context.Context, document *models.Document) error
	List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error)
}

// ScholarshipRepository persists scholarship offers
type ScholarshipRepository interface {
	Create(ctx context.Context, offer *models.ScholarshipOffer) error
	GetByID(ctx context.Context, id int64) (*models.ScholarshipOffer, error)
	List(ctx context.Context, activeOnly bool) ([]*models.ScholarshipOffer, error)
	Update(ctx context.Context, offer *models.ScholarshipOffer) error
}

// ReferralRepository persists student referrals
type ReferralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	GetByID(ctx context.Context, id int64) (*models.Referral, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Referral, error)
	List(ctx context.Context, filter models.ReferralFilter) ([]*models.Referral, error)
	Update(ctx context.Context, referral *models.Referral) error
}

// AssessmentRepository persists competency assessments
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *models.CompetencyAssessment) error
	ListByStudent(ctx context.Context, studentID int64) ([]*models.CompetencyAssessment, error)
}

// DashboardRepository runs the read-side aggregations
type DashboardRepository interface {
	StudentStatusCounts(ctx context.Context) (map[models.StudentStatus]int64, error)
	CompetencyBreakdown(ctx context.Context) (map[models.CompetencyLevel]int64, error)
	// MonthlyEnrollments counts enrollments per "YYYY-MM" from since onwards
	MonthlyEnrollments(ctx context.Context, since time.Time) (map[string]int64, error)
	CountDocumentsByStatus(ctx context.Context, status models.DocumentStatus) (int64, error)
	CountOfferingsByStatus(ctx context.Context, status models.OfferingStatus) (int64, error)
}

// Repositories holds all the repository instances bound to one connection or transaction
type Repositories struct {
	Users        UserRepository
	Students     StudentRepository
	Courses      CourseRepository
	Offerings    OfferingRepository
	Enrollments  EnrollmentRepository
	Payments     PaymentRepository
	Documents    DocumentRepository
	Scholarships ScholarshipRepository
	Referrals    ReferralRepository
	Assessments  AssessmentRepository
	Dashboard    DashboardRepository
}

// TxFn runs against repositories bound to a single transaction
type TxFn func(ctx context.Context, repos *Repositories) error

// Store is the unit of work boundary. Writes made through the repositories passed
// to fn are committed together when fn returns nil and discarded otherwise.
type Store interface {
	Repositories() *Repositories
	WithTransaction(ctx context.Context, fn TxFn) error
}
