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
)

const scholarshipColumns = `id, title, description, amount, sponsor_name, sponsor_student_id, slots, is_active, created_at, updated_at`

// PgScholarshipRepository handles database operations for scholarship offers
type PgScholarshipRepository struct {
	db DBTX
}

// NewScholarshipRepository creates a new scholarship repository
func NewScholarshipRepository(db DBTX) *PgScholarshipRepository {
	return &PgScholarshipRepository{db: db}
}

func scanScholarship(row pgx.Row) (*models.ScholarshipOffer, error) {
	var s models.ScholarshipOffer
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Amount, &s.SponsorName, &s.SponsorStudentID, &s.Slots, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a scholarship offer
func (r *PgScholarshipRepository) Create(ctx context.Context, s *models.ScholarshipOffer) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO scholarship_offers (title, description, amount, sponsor_name, sponsor_student_id, slots, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		s.Title, s.Description, s.Amount, s.SponsorName, s.SponsorStudentID, s.Slots, s.IsActive).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrStudentNotFound
		}
		if dberrors.IsCheckViolation(err) || dberrors.IsNumericOutOfRange(err) {
			return apperrors.ErrInvalidAmount
		}
		return fmt.Errorf("error creating scholarship offer: %w", err)
	}
	return nil
}

// GetByID retrieves a scholarship offer by ID
func (r *PgScholarshipRepository) GetByID(ctx context.Context, id int64) (*models.ScholarshipOffer, error) {
	s, err := scanScholarship(r.db.QueryRow(ctx, `SELECT `+scholarshipColumns+` FROM scholarship_offers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrScholarshipNotFound)
	}
	return s, nil
}

// List retrieves scholarship offers, newest first
func (r *PgScholarshipRepository) List(ctx context.Context, activeOnly bool) ([]*models.ScholarshipOffer, error) {
	q := psql.Select(scholarshipColumns).From("scholarship_offers").OrderBy("created_at DESC", "id DESC")
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
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

	offers := make([]*models.ScholarshipOffer, 0)
	for rows.Next() {
		s, err := scanScholarship(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, s)
	}
	return offers, rows.Err()
}

// Update writes the mutable fields of an offer
func (r *PgScholarshipRepository) Update(ctx context.Context, s *models.ScholarshipOffer) error {
	err := r.db.QueryRow(ctx, `
		UPDATE scholarship_offers SET is_active = $1, slots = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`, s.IsActive, s.Slots, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		return notFound(err, apperrors.ErrScholarshipNotFound)
	}
	return nil
}

const referralColumns = `id, referrer_student_id, referred_name, referred_email, referred_phone, status, referred_student_id, notes, created_at, updated_at`

// PgReferralRepository handles database operations for referrals
type PgReferralRepository struct {
	db DBTX
}

// NewReferralRepository creates a new referral repository
func NewReferralRepository(db DBTX) *PgReferralRepository {
	return &PgReferralRepository{db: db}
}

func scanReferral(row pgx.Row) (*models.Referral, error) {
	var f models.Referral
	err := row.Scan(&f.ID, &f.ReferrerStudentID, &f.ReferredName, &f.ReferredEmail, &f.ReferredPhone, &f.Status,
		&f.ReferredStudentID, &f.Notes, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a referral
func (r *PgReferralRepository) Create(ctx context.Context, f *models.Referral) error {
	f.ReferredEmail = strings.ToLower(strings.TrimSpace(f.ReferredEmail))
	err := r.db.QueryRow(ctx, `
		INSERT INTO referrals (referrer_student_id, referred_name, referred_email, referred_phone, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		f.ReferrerStudentID, f.ReferredName, f.ReferredEmail, f.ReferredPhone, f.Status, f.Notes).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrStudentNotFound
		}
		return fmt.Errorf("error creating referral: %w", err)
	}
	return nil
}

// GetByID retrieves a referral by ID
func (r *PgReferralRepository) GetByID(ctx context.Context, id int64) (*models.Referral, error) {
	f, err := scanReferral(r.db.QueryRow(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrReferralNotFound)
	}
	return f, nil
}

// GetByIDForUpdate retrieves a referral and locks the row
func (r *PgReferralRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Referral, error) {
	f, err := scanReferral(r.db.QueryRow(ctx, `SELECT `+referralColumns+` FROM referrals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrReferralNotFound)
	}
	return f, nil
}

// List retrieves referrals, newest first
func (r *PgReferralRepository) List(ctx context.Context, filter models.ReferralFilter) ([]*models.Referral, error) {
	q := psql.Select(referralColumns).From("referrals").OrderBy("created_at DESC", "id DESC")
	if filter.ReferrerStudentID != nil {
		q = q.Where(squirrel.Eq{"referrer_student_id": *filter.ReferrerStudentID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
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

	referrals := make([]*models.Referral, 0)
	for rows.Next() {
		f, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, f)
	}
	return referrals, rows.Err()
}

// Update writes status, link and notes
func (r *PgReferralRepository) Update(ctx context.Context, f *models.Referral) error {
	err := r.db.QueryRow(ctx, `
		UPDATE referrals SET status = $1, referred_student_id = $2, notes = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`, f.Status, f.ReferredStudentID, f.Notes, f.ID).Scan(&f.UpdatedAt)
	if err != nil {
		return notFound(err, apperrors.ErrReferralNotFound)
	}
	return nil
}

// PgAssessmentRepository handles database operations for competency assessments
type PgAssessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository creates a new assessment repository
func NewAssessmentRepository(db DBTX) *PgAssessmentRepository {
	return &PgAssessmentRepository{db: db}
}

// Create inserts an assessment
func (r *PgAssessmentRepository) Create(ctx context.Context, a *models.CompetencyAssessment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO competency_assessments (student_id, level, score, notes, assessed_by, assessed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		a.StudentID, a.Level, a.Score, a.Notes, a.AssessedBy, a.AssessedAt).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("error creating assessment: %w", err)
	}
	return nil
}

// ListByStudent retrieves a student's assessments, newest first
func (r *PgAssessmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.CompetencyAssessment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, student_id, level, score, notes, assessed_by, assessed_at
		FROM competency_assessments
		WHERE student_id = $1
		ORDER BY assessed_at DESC, id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := make([]*models.CompetencyAssessment, 0)
	for rows.Next() {
		var a models.CompetencyAssessment
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Level, &a.Score, &a.Notes, &a.AssessedBy, &a.AssessedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, &a)
	}
	return assessments, rows.Err()
}
