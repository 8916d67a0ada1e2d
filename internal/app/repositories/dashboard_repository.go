package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/yigit/enrolladmin/internal/app/models"
)

// PgDashboardRepository runs the dashboard aggregations
type PgDashboardRepository struct {
	db DBTX
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db DBTX) *PgDashboardRepository {
	return &PgDashboardRepository{db: db}
}

// StudentStatusCounts groups students by enrollment status
func (r *PgDashboardRepository) StudentStatusCounts(ctx context.Context) (map[models.StudentStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT enrollment_status, COUNT(*) FROM students GROUP BY enrollment_status`)
	if err != nil {
		return nil, fmt.Errorf("error counting students by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.StudentStatus]int64)
	for rows.Next() {
		var status models.StudentStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CompetencyBreakdown groups enrolled students by competency level
func (r *PgDashboardRepository) CompetencyBreakdown(ctx context.Context) (map[models.CompetencyLevel]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT competency_level, COUNT(*) FROM students
		WHERE enrollment_status = 'enrolled'
		GROUP BY competency_level`)
	if err != nil {
		return nil, fmt.Errorf("error counting competency levels: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CompetencyLevel]int64)
	for rows.Next() {
		var level models.CompetencyLevel
		var n int64
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// MonthlyEnrollments counts enrollment rows per calendar month since the given date
func (r *PgDashboardRepository) MonthlyEnrollments(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_char(date_trunc('month', enrollment_date), 'YYYY-MM') AS month, COUNT(*)
		FROM enrollments
		WHERE enrollment_date >= $1
		GROUP BY month`, since)
	if err != nil {
		return nil, fmt.Errorf("error building enrollment histogram: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var month string
		var n int64
		if err := rows.Scan(&month, &n); err != nil {
			return nil, err
		}
		counts[month] = n
	}
	return counts, rows.Err()
}

// CountDocumentsByStatus counts documents in status
func (r *PgDashboardRepository) CountDocumentsByStatus(ctx context.Context, status models.DocumentStatus) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE status = $1`, status).Scan(&n)
	return n, err
}

// CountOfferingsByStatus counts offerings in status
func (r *PgDashboardRepository) CountOfferingsByStatus(ctx context.Context, status models.OfferingStatus) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM course_offerings WHERE status = $1`, status).Scan(&n)
	return n, err
}
