package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/dberrors"
	"github.com/yigit/enrolladmin/internal/pkg/logger"
)

var studentColumns = []string{
	"s.id", "s.student_number", "s.first_name", "s.last_name", "s.email", "s.phone", "s.address",
	"s.birth_date", "s.competency_level", "s.enrollment_status", "s.graduation_eligible",
	"s.enrollment_date", "s.graduation_date", "s.referral_id", "s.created_at", "s.updated_at",
}

// PgStudentRepository handles database operations for the student registry
type PgStudentRepository struct {
	db DBTX
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db DBTX) *PgStudentRepository {
	return &PgStudentRepository{db: db}
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var s models.Student
	err := row.Scan(&s.ID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Address,
		&s.BirthDate, &s.CompetencyLevel, &s.EnrollmentStatus, &s.GraduationEligible,
		&s.EnrollmentDate, &s.GraduationDate, &s.ReferralID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// NextStudentSequence draws the next value used to build student numbers
func (r *PgStudentRepository) NextStudentSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('student_number_seq')`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("error drawing student number: %w", err)
	}
	return seq, nil
}

// Create inserts a student
func (r *PgStudentRepository) Create(ctx context.Context, s *models.Student) error {
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	query, args, err := psql.Insert("students").
		Columns("student_number", "first_name", "last_name", "email", "phone", "address", "birth_date",
			"competency_level", "enrollment_status", "graduation_eligible", "enrollment_date", "referral_id").
		Values(s.StudentNumber, s.FirstName, s.LastName, s.Email, s.Phone, s.Address, s.BirthDate,
			s.CompetencyLevel, s.EnrollmentStatus, s.GraduationEligible, s.EnrollmentDate, s.ReferralID).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building student insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_email_key") {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", s.Email).Msg("Error creating student")
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

// GetByID retrieves a student by ID
func (r *PgStudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query, args, err := psql.Select(studentColumns...).From("students s").Where(squirrel.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanStudent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, apperrors.ErrStudentNotFound)
	}
	return s, nil
}

// GetByIDForUpdate retrieves a student and locks the row
func (r *PgStudentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	query, args, err := psql.Select(studentColumns...).From("students s").Where(squirrel.Eq{"s.id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanStudent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, apperrors.ErrStudentNotFound)
	}
	return s, nil
}

// EmailExists checks if a student already uses email
func (r *PgStudentRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM students WHERE email = $1)`, strings.ToLower(strings.TrimSpace(email))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking student email: %w", err)
	}
	return exists, nil
}

// applyStudentFilters adds one WHERE clause per set filter. Values are always bound
// as parameters.
func applyStudentFilters(q squirrel.SelectBuilder, f models.StudentFilter) squirrel.SelectBuilder {
	if f.Competency != nil {
		q = q.Where(squirrel.Eq{"s.competency_level": *f.Competency})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"s.enrollment_status": *f.Status})
	}
	if f.Batch != nil {
		q = q.Where(`EXISTS (SELECT 1 FROM enrollments e JOIN course_offerings o ON o.id = e.offering_id
			WHERE e.student_id = s.id AND e.status = 'enrolled' AND o.batch = ?)`, *f.Batch)
	}
	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		like := "%" + escapeLike(strings.TrimSpace(*f.Search)) + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"s.first_name": like},
			squirrel.ILike{"s.last_name": like},
			squirrel.ILike{"s.email": like},
			squirrel.ILike{"s.student_number": like},
		})
	}
	return q
}

// buildStudentListQuery returns the page query and the matching count query
func buildStudentListQuery(f models.StudentFilter) (squirrel.SelectBuilder, squirrel.SelectBuilder) {
	dir := "ASC"
	if f.NameSort == models.SortDesc {
		dir = "DESC"
	}

	list := applyStudentFilters(psql.Select(studentColumns...).From("students s"), f).
		OrderBy("s.last_name "+dir, "s.first_name "+dir, "s.id ASC")
	if f.Limit > 0 {
		list = list.Limit(uint64(f.Limit)).Offset(f.Offset)
	}

	count := applyStudentFilters(psql.Select("COUNT(*)").From("students s"), f)
	return list, count
}

// List returns one page of students matching the filter and the total match count
func (r *PgStudentRepository) List(ctx context.Context, f models.StudentFilter) ([]*models.Student, int64, error) {
	listQ, countQ := buildStudentListQuery(f)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	query, args, err := listQ.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("query", query).Msg("Error listing students")
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Update writes every mutable column of a student
func (r *PgStudentRepository) Update(ctx context.Context, s *models.Student) error {
	query, args, err := psql.Update("students").
		Set("first_name", s.FirstName).
		Set("last_name", s.LastName).
		Set("phone", s.Phone).
		Set("address", s.Address).
		Set("birth_date", s.BirthDate).
		Set("competency_level", s.CompetencyLevel).
		Set("enrollment_status", s.EnrollmentStatus).
		Set("graduation_eligible", s.GraduationEligible).
		Set("graduation_date", s.GraduationDate).
		Set("referral_id", s.ReferralID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": s.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&s.UpdatedAt); err != nil {
		return notFound(err, apperrors.ErrStudentNotFound)
	}
	return nil
}

// ListIDsByStatus returns the ids of all students in status
func (r *PgStudentRepository) ListIDsByStatus(ctx context.Context, status models.StudentStatus) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM students WHERE enrollment_status = $1 ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// EligibilityFacts gathers the ledger counts graduation eligibility depends on
func (r *PgStudentRepository) EligibilityFacts(ctx context.Context, studentID int64) (models.EligibilityFacts, error) {
	var f models.EligibilityFacts
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND status = 'completed'),
			(SELECT COUNT(*) FROM enrollments WHERE student_id = $1 AND status = 'enrolled'),
			(SELECT COUNT(*) FROM payments WHERE student_id = $1 AND status = 'pending'),
			(SELECT COUNT(*) FROM documents d WHERE d.student_id = $1
				AND d.status IN ('pending', 'requires_update')
				AND NOT EXISTS (SELECT 1 FROM documents n WHERE n.supersedes_id = d.id))`,
		studentID).Scan(&f.CompletedEnrollments, &f.ActiveEnrollments, &f.PendingPayments, &f.OpenDocuments)
	if err != nil {
		return f, fmt.Errorf("error computing eligibility facts: %w", err)
	}
	return f, nil
}

// escapeLike escapes LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
