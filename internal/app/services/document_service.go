package services

import (
	"context"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/filestorage"
)

// DocumentService defines the interface for document verification operations
type DocumentService interface {
	UploadDocument(ctx context.Context, form *dto.UploadDocumentForm, file *multipart.FileHeader, actorID int64) (*models.Document, error)
	VerifyDocument(ctx context.Context, id int64, req *dto.VerifyDocumentRequest, verifierID int64) (*models.Document, error)
	ResubmitDocument(ctx context.Context, id int64, file *multipart.FileHeader, actorID int64) (*models.Document, error)
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error)
	// OpenDocumentFile returns the document together with a reader over its stored bytes
	OpenDocumentFile(ctx context.Context, id int64) (*models.Document, io.ReadSeekCloser, error)
}

type documentServiceImpl struct {
	store    repositories.Store
	storage  filestorage.FileStorage
	notifier *ChangeNotifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(store repositories.Store, storage filestorage.FileStorage, notifier *ChangeNotifier, logger zerolog.Logger) DocumentService {
	return &documentServiceImpl{store: store, storage: storage, notifier: notifier, now: time.Now, logger: logger}
}

func documentCategory(t models.DocumentType) string {
	return path.Join(filestorage.CategoryDocuments, string(t))
}

// save validates and stores the file, then runs insert in a transaction. The
// file is removed again when the insert fails.
func (s *documentServiceImpl) save(ctx context.Context, docType models.DocumentType, file *multipart.FileHeader, insert func(ctx context.Context, repos *repositories.Repositories, stored *models.StoredFile) (*models.Document, error)) (*models.Document, error) {
	if err := s.storage.Validate(file); err != nil {
		return nil, err
	}
	stored, err := s.storage.Save(ctx, file, documentCategory(docType))
	if err != nil {
		return nil, err
	}

	var doc *models.Document
	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		d, err := insert(ctx, repos, stored)
		if err != nil {
			return err
		}
		doc = d
		_, err = refreshEligibility(ctx, repos, d.StudentID)
		return err
	})
	if err != nil {
		if delErr := s.storage.Delete(stored.Path); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", stored.Path).Msg("Failed to remove orphaned document file")
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentServiceImpl) UploadDocument(ctx context.Context, form *dto.UploadDocumentForm, file *multipart.FileHeader, actorID int64) (*models.Document, error) {
	if !form.DocumentType.IsValid() {
		return nil, apperrors.NewValidationError("documentType", "unknown document type")
	}
	// fail fast on a bad student before touching the disk
	if _, err := s.store.Repositories().Students.GetByID(ctx, form.StudentID); err != nil {
		return nil, err
	}

	doc, err := s.save(ctx, form.DocumentType, file, func(ctx context.Context, repos *repositories.Repositories, stored *models.StoredFile) (*models.Document, error) {
		if _, err := repos.Students.GetByIDForUpdate(ctx, form.StudentID); err != nil {
			return nil, err
		}
		d := &models.Document{
			StudentID:    form.StudentID,
			DocumentType: form.DocumentType,
			File:         *stored,
			Status:       models.DocumentPending,
			UploadedBy:   actorID,
		}
		return d, repos.Documents.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("documentID", doc.ID).
		Int64("studentID", doc.StudentID).
		Str("type", string(doc.DocumentType)).
		Str("path", doc.File.Path).
		Msg("Document uploaded")
	s.notifier.Changed(ctx, EntityDocument, "uploaded", doc.ID)
	return doc, nil
}

func (s *documentServiceImpl) VerifyDocument(ctx context.Context, id int64, req *dto.VerifyDocumentRequest, verifierID int64) (*models.Document, error) {
	if !req.Status.IsReviewOutcome() {
		return nil, apperrors.NewValidationError("status", "status must be verified, requires_update or rejected")
	}
	notes := strings.TrimSpace(req.Notes)
	if req.Status != models.DocumentVerified && notes == "" {
		return nil, apperrors.ErrMissingVerificationNotes.WithField("notes")
	}

	var doc *models.Document
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		peek, err := repos.Documents.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repos.Students.GetByIDForUpdate(ctx, peek.StudentID); err != nil {
			return err
		}
		d, err := repos.Documents.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if d.Status != models.DocumentPending {
			return apperrors.ErrInvalidTransition.WithDetails(map[string]interface{}{
				"from": d.Status,
				"to":   req.Status,
			})
		}

		at := s.now().UTC()
		d.Status = req.Status
		d.VerifiedBy = &verifierID
		d.VerifiedAt = &at
		if notes != "" {
			d.Notes = &notes
		}
		if err := repos.Documents.Update(ctx, d); err != nil {
			return err
		}
		doc = d
		_, err = refreshEligibility(ctx, repos, d.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("documentID", id).Str("status", string(req.Status)).Int64("verifiedBy", verifierID).Msg("Document reviewed")
	s.notifier.Changed(ctx, EntityDocument, string(req.Status), id)
	return doc, nil
}

// ResubmitDocument answers a requires_update review with a new pending row that
// points back at the original.
func (s *documentServiceImpl) ResubmitDocument(ctx context.Context, id int64, file *multipart.FileHeader, actorID int64) (*models.Document, error) {
	original, err := s.store.Repositories().Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != models.DocumentRequiresUpdate {
		return nil, apperrors.ErrInvalidTransition.WithMessage("only documents marked requires_update can be resubmitted")
	}

	doc, err := s.save(ctx, original.DocumentType, file, func(ctx context.Context, repos *repositories.Repositories, stored *models.StoredFile) (*models.Document, error) {
		if _, err := repos.Students.GetByIDForUpdate(ctx, original.StudentID); err != nil {
			return nil, err
		}
		prev, err := repos.Documents.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if prev.Status != models.DocumentRequiresUpdate {
			return nil, apperrors.ErrInvalidTransition.WithMessage("only documents marked requires_update can be resubmitted")
		}
		siblings, err := repos.Documents.List(ctx, models.DocumentFilter{StudentID: &prev.StudentID})
		if err != nil {
			return nil, err
		}
		for _, other := range siblings {
			if other.SupersedesID != nil && *other.SupersedesID == prev.ID {
				return nil, apperrors.ErrInvalidTransition.WithMessage("document has already been resubmitted")
			}
		}

		prevID := prev.ID
		d := &models.Document{
			StudentID:    prev.StudentID,
			DocumentType: prev.DocumentType,
			File:         *stored,
			Status:       models.DocumentPending,
			SupersedesID: &prevID,
			UploadedBy:   actorID,
		}
		return d, repos.Documents.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("documentID", doc.ID).Int64("supersedes", id).Msg("Document resubmitted")
	s.notifier.Changed(ctx, EntityDocument, "resubmitted", doc.ID)
	return doc, nil
}

func (s *documentServiceImpl) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	return s.store.Repositories().Documents.GetByID(ctx, id)
}

func (s *documentServiceImpl) ListDocuments(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, error) {
	return s.store.Repositories().Documents.List(ctx, filter)
}

func (s *documentServiceImpl) OpenDocumentFile(ctx context.Context, id int64) (*models.Document, io.ReadSeekCloser, error) {
	doc, err := s.store.Repositories().Documents.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.storage.Open(doc.File.Path)
	if err != nil {
		return nil, nil, err
	}
	return doc, f, nil
}
