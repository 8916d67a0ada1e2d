package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

const documentColumns = `id, student_id, document_type, file_path, file_url, original_name, mime_type, file_size,
	status, notes, verified_by, verified_at, supersedes_id, uploaded_by, created_at, updated_at`

// PgDocumentRepository handles database operations for student documents
type PgDocumentRepository struct {
	db DBTX
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db DBTX) *PgDocumentRepository {
	return &PgDocumentRepository{db: db}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.StudentID, &d.DocumentType,
		&d.File.Path, &d.File.URL, &d.File.OriginalName, &d.File.MimeType, &d.File.Size,
		&d.Status, &d.Notes, &d.VerifiedBy, &d.VerifiedAt, &d.SupersedesID, &d.UploadedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a document row
func (r *PgDocumentRepository) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO documents (student_id, document_type, file_path, file_url, original_name, mime_type, file_size,
			status, notes, supersedes_id, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, d.StudentID, d.DocumentType, d.File.Path, d.File.URL, d.File.OriginalName,
		d.File.MimeType, d.File.Size, d.Status, d.Notes, d.SupersedesID, d.UploadedBy).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *PgDocumentRepository) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrDocumentNotFound)
	}
	return d, nil
}

// GetByIDForUpdate retrieves a document and locks the row
func (r *PgDocumentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, apperrors.ErrDocumentNotFound)
	}
	return d, nil
}

// Update writes the review outcome
func (r *PgDocumentRepository) Update(ctx context.Context, d *models.Document) error {
	err := r.db.QueryRow(ctx, `
		UPDATE documents SET status = $1, notes = $2, verified_by = $3, verified_at = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`,
		d.Status, d.Notes, d.VerifiedBy, d.VerifiedAt, d.ID).Scan(&d.UpdatedAt)
	if err != nil {
		return notFound(err, apperrors.ErrDocumentNotFound)
	}
	return nil
}

// List retrieves documents, newest first
func (r *PgDocumentRepository) List(ctx context.Context, f models.DocumentFilter) ([]*models.Document, error) {
	q := psql.Select(documentColumns).From("documents").OrderBy("created_at DESC", "id DESC")
	if f.StudentID != nil {
		q = q.Where(squirrel.Eq{"student_id": *f.StudentID})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"document_type": *f.Type})
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

	documents := make([]*models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}
