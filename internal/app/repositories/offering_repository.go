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

// offering columns joined with the course and the computed active count
var offeringColumns = []string{
	"o.id", "o.course_id", "o.batch", "o.capacity", "o.start_date", "o.end_date", "o.status", "o.created_at", "o.updated_at",
	"(SELECT COUNT(*) FROM enrollments e WHERE e.offering_id = o.id AND e.status = 'enrolled') AS active_enrollment_count",
	"c.id", "c.code", "c.name", "c.description", "c.competency_level", "c.is_active", "c.created_at", "c.updated_at",
}

// PgOfferingRepository handles database operations for course offerings
type PgOfferingRepository struct {
	db DBTX
}

// NewOfferingRepository creates a new offering repository
func NewOfferingRepository(db DBTX) *PgOfferingRepository {
	return &PgOfferingRepository{db: db}
}

func scanOffering(row pgx.Row) (*models.CourseOffering, error) {
	var o models.CourseOffering
	var c models.Course
	err := row.Scan(&o.ID, &o.CourseID, &o.Batch, &o.Capacity, &o.StartDate, &o.EndDate, &o.Status, &o.CreatedAt, &o.UpdatedAt,
		&o.ActiveEnrollmentCount,
		&c.ID, &c.Code, &c.Name, &c.Description, &c.CompetencyLevel, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Course = &c
	return &o, nil
}

func offeringSelect() squirrel.SelectBuilder {
	return psql.Select(offeringColumns...).From("course_offerings o").Join("courses c ON c.id = o.course_id")
}

// Create creates a new offering
func (r *PgOfferingRepository) Create(ctx context.Context, o *models.CourseOffering) error {
	query := `
		INSERT INTO course_offerings (course_id, batch, capacity, start_date, end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, o.CourseID, o.Batch, o.Capacity, o.StartDate, o.EndDate, o.Status).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "course_offerings_course_batch_key"):
			return apperrors.ErrBatchExists
		case dberrors.IsForeignKeyViolation(err):
			return apperrors.ErrCourseNotFound
		}
		return fmt.Errorf("error creating offering: %w", err)
	}
	return nil
}

// GetByID retrieves an offering with its course and active count
func (r *PgOfferingRepository) GetByID(ctx context.Context, id int64) (*models.CourseOffering, error) {
	query, args, err := offeringSelect().Where(squirrel.Eq{"o.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	o, err := scanOffering(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, apperrors.ErrOfferingNotFound)
	}
	return o, nil
}

// GetByIDForUpdate locks the offering row first, so the active count read
// afterwards cannot change until the transaction ends.
func (r *PgOfferingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.CourseOffering, error) {
	if err := lockRow(ctx, r.db, "course_offerings", id, apperrors.ErrOfferingNotFound); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// List retrieves offerings ordered by start date
func (r *PgOfferingRepository) List(ctx context.Context, f models.OfferingFilter) ([]*models.CourseOffering, error) {
	q := offeringSelect().OrderBy("o.start_date DESC", "o.id")
	if f.CourseID != nil {
		q = q.Where(squirrel.Eq{"o.course_id": *f.CourseID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"o.status": *f.Status})
	}
	if f.Batch != nil {
		q = q.Where(squirrel.Eq{"o.batch": *f.Batch})
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

	offerings := make([]*models.CourseOffering, 0)
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		offerings = append(offerings, o)
	}
	return offerings, rows.Err()
}

// Update writes capacity, dates and status
func (r *PgOfferingRepository) Update(ctx context.Context, o *models.CourseOffering) error {
	err := r.db.QueryRow(ctx, `
		UPDATE course_offerings
		SET capacity = $1, start_date = $2, end_date = $3, status = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`,
		o.Capacity, o.StartDate, o.EndDate, o.Status, o.ID).Scan(&o.UpdatedAt)
	if err != nil {
		return notFound(err, apperrors.ErrOfferingNotFound)
	}
	return nil
}
