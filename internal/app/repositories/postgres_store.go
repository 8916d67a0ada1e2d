package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/enrolladmin/internal/db"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx pool
type PostgresStore struct {
	db    *db.PostgresDB
	repos *Repositories
}

// NewPostgresStore creates a store whose non-transactional repositories use the pool directly
func NewPostgresStore(database *db.PostgresDB) *PostgresStore {
	return &PostgresStore{
		db:    database,
		repos: NewRepositories(database.Pool),
	}
}

// NewRepositories initializes all repositories on the given connection
func NewRepositories(conn DBTX) *Repositories {
	return &Repositories{
		Users:        NewUserRepository(conn),
		Students:     NewStudentRepository(conn),
		Courses:      NewCourseRepository(conn),
		Offerings:    NewOfferingRepository(conn),
		Enrollments:  NewEnrollmentRepository(conn),
		Payments:     NewPaymentRepository(conn),
		Documents:    NewDocumentRepository(conn),
		Scholarships: NewScholarshipRepository(conn),
		Referrals:    NewReferralRepository(conn),
		Assessments:  NewAssessmentRepository(conn),
		Dashboard:    NewDashboardRepository(conn),
	}
}

// Repositories returns repositories outside of any transaction
func (s *PostgresStore) Repositories() *Repositories {
	return s.repos
}

// WithTransaction runs fn with repositories bound to one transaction
func (s *PostgresStore) WithTransaction(ctx context.Context, fn TxFn) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// notFound converts pgx.ErrNoRows into the given domain error
func notFound(err error, domainErr error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErr
	}
	return err
}

// lockRow takes a row lock on table.id, returning domainErr if the row is missing
func lockRow(ctx context.Context, conn DBTX, table string, id int64, domainErr error) error {
	var locked int64
	err := conn.QueryRow(ctx, fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", table), id).Scan(&locked)
	if err != nil {
		return notFound(err, domainErr)
	}
	return nil
}
