package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/dberrors"
)

const enrollmentColumns = `id, student_id, offering_id, status, enrollment_date, withdrawn_at, completed_at, created_at, updated_at`

// PgEnrollmentRepository handles database operations for the enrollment ledger
type PgEnrollmentRepository struct {
	db DBTX
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db DBTX) *PgEnrollmentRepository {
	return &PgEnrollmentRepository{db: db}
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.OfferingID, &e.Status, &e.EnrollmentDate, &e.WithdrawnAt, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an enrollment. The partial unique index on active
// (student, offering) pairs backs the duplicate check.
func (r *PgEnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (student_id, offering_id, status, enrollment_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, e.StudentID, e.OfferingID, e.Status, e.EnrollmentDate).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "enrollments_active_student_offering_key") {
			return apperrors.ErrDuplicateEnrollment
		}
		return fmt.Errorf("error creating enrollment: %w", err)
	}
	return nil
}

// GetByID retrieves an enrollment by ID
func (r *PgEnrollmentRepository) GetByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrEnrollmentNotFound)
	}
	return e, nil
}

// GetByIDForUpdate retrieves an enrollment and locks the row
func (r *PgEnrollmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Enrollment, error) {
	e, err := scanEnrollment(r.db.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrEnrollmentNotFound)
	}
	return e, nil
}

// HasActive reports whether the student already holds an enrolled row in the offering
func (r *PgEnrollmentRepository) HasActive(ctx context.Context, studentID, offeringID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND offering_id = $2 AND status = 'enrolled')`,
		studentID, offeringID).Scan(&exists)
	return exists, err
}

// CountActive counts enrolled rows of an offering
func (r *PgEnrollmentRepository) CountActive(ctx context.Context, offeringID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE offering_id = $1 AND status = 'enrolled'`, offeringID).Scan(&n)
	return n, err
}

// Update writes status and its timestamps
func (r *PgEnrollmentRepository) Update(ctx context.Context, e *models.Enrollment) error {
	err := r.db.QueryRow(ctx, `
		UPDATE enrollments SET status = $1, withdrawn_at = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`,
		e.Status, e.WithdrawnAt, e.CompletedAt, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		return notFound(err, apperrors.ErrEnrollmentNotFound)
	}
	return nil
}

// List retrieves enrollments, newest first
func (r *PgEnrollmentRepository) List(ctx context.Context, f models.EnrollmentFilter) ([]*models.Enrollment, error) {
	q := psql.Select(enrollmentColumns).From("enrollments").OrderBy("created_at DESC", "id DESC")
	if f.StudentID != nil {
		q = q.Where(squirrel.Eq{"student_id": *f.StudentID})
	}
	if f.OfferingID != nil {
		q = q.Where(squirrel.Eq{"offering_id": *f.OfferingID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]*models.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}
