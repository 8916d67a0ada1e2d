package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/dberrors"
	"github.com/yigit/enrolladmin/internal/pkg/logger"
)

var paymentColumns = []string{
	"id", "student_id", "enrollment_id", "payment_type", "amount", "status", "payment_date", "reference_number", "notes",
	"receipt_path", "receipt_url", "receipt_name", "receipt_mime", "receipt_size",
	"recorded_by", "status_updated_by", "status_updated_at", "created_at", "updated_at",
}

// PgPaymentRepository handles database operations for the payment ledger
type PgPaymentRepository struct {
	db DBTX
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db DBTX) *PgPaymentRepository {
	return &PgPaymentRepository{db: db}
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var path, url, name, mime *string
	var size *int64
	err := row.Scan(&p.ID, &p.StudentID, &p.EnrollmentID, &p.PaymentType, &p.Amount, &p.Status, &p.PaymentDate,
		&p.ReferenceNumber, &p.Notes, &path, &url, &name, &mime, &size,
		&p.RecordedBy, &p.StatusUpdatedBy, &p.StatusUpdatedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if path != nil {
		p.Receipt = &models.StoredFile{Path: *path}
		if url != nil {
			p.Receipt.URL = *url
		}
		if name != nil {
			p.Receipt.OriginalName = *name
		}
		if mime != nil {
			p.Receipt.MimeType = *mime
		}
		if size != nil {
			p.Receipt.Size = *size
		}
	}
	return &p, nil
}

// Create inserts a payment and its optional receipt reference
func (r *PgPaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	var path, url, name, mime *string
	var size *int64
	if p.Receipt != nil {
		path, url, name, mime, size = &p.Receipt.Path, &p.Receipt.URL, &p.Receipt.OriginalName, &p.Receipt.MimeType, &p.Receipt.Size
	}

	query, args, err := psql.Insert("payments").
		Columns("student_id", "enrollment_id", "payment_type", "amount", "status", "payment_date", "reference_number", "notes",
			"receipt_path", "receipt_url", "receipt_name", "receipt_mime", "receipt_size", "recorded_by").
		Values(p.StudentID, p.EnrollmentID, p.PaymentType, p.Amount, p.Status, p.PaymentDate, p.ReferenceNumber, p.Notes,
			path, url, name, mime, size, p.RecordedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return err
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if dberrors.IsCheckViolation(err) || dberrors.IsNumericOutOfRange(err) {
			return apperrors.ErrInvalidAmount
		}
		logger.Error().Err(err).Int64("studentId", p.StudentID).Msg("Error creating payment")
		return fmt.Errorf("error creating payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *PgPaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	query, args, err := psql.Select(paymentColumns...).From("payments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, apperrors.ErrPaymentNotFound)
	}
	return p, nil
}

// GetByIDForUpdate retrieves a payment and locks the row
func (r *PgPaymentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	query, args, err := psql.Select(paymentColumns...).From("payments").Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, apperrors.ErrPaymentNotFound)
	}
	return p, nil
}

// Update writes status and audit columns
func (r *PgPaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	err := r.db.QueryRow(ctx, `
		UPDATE payments SET status = $1, notes = $2, status_updated_by = $3, status_updated_at = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`,
		p.Status, p.Notes, p.StatusUpdatedBy, p.StatusUpdatedAt, p.ID).Scan(&p.UpdatedAt)
	if err != nil {
		return notFound(err, apperrors.ErrPaymentNotFound)
	}
	return nil
}

func applyPaymentFilters(q squirrel.SelectBuilder, f models.PaymentFilter) squirrel.SelectBuilder {
	if f.StudentID != nil {
		q = q.Where(squirrel.Eq{"student_id": *f.StudentID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"payment_type": *f.Type})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"payment_date": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"payment_date": *f.To})
	}
	return q
}

// List returns one page of payments, newest first, and the total match count
func (r *PgPaymentRepository) List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, int64, error) {
	countSQL, countArgs, err := applyPaymentFilters(psql.Select("COUNT(*)").From("payments"), f).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting payments: %w", err)
	}

	q := applyPaymentFilters(psql.Select(paymentColumns...).From("payments"), f).OrderBy("payment_date DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(f.Offset)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := make([]*models.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

// Summary sums completed revenue and outstanding pending payments
func (r *PgPaymentRepository) Summary(ctx context.Context) (*models.PaymentSummary, error) {
	var s models.PaymentSummary
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'complete'), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)
		FROM payments`).Scan(&s.TotalRevenue, &s.PendingCount, &s.PendingAmount)
	if err != nil {
		return nil, fmt.Errorf("error summarizing payments: %w", err)
	}
	return &s, nil
}
