package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/filestorage"
	"github.com/yigit/enrolladmin/internal/pkg/report"
)

// PaymentService defines the interface for payment ledger operations
type PaymentService interface {
	CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest, actorID int64) (*models.Payment, error)
	CreatePaymentWithReceipt(ctx context.Context, req *dto.CreatePaymentRequest, receipt *multipart.FileHeader, actorID int64) (*models.Payment, error)
	UpdateStatus(ctx context.Context, id int64, req *dto.UpdatePaymentStatusRequest, actorID int64) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error)
	Summary(ctx context.Context) (*models.PaymentSummary, error)
	ExportPayments(ctx context.Context, filter models.PaymentFilter, w io.Writer) error
}

type paymentServiceImpl struct {
	store    repositories.Store
	storage  filestorage.FileStorage
	notifier *ChangeNotifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(store repositories.Store, storage filestorage.FileStorage, notifier *ChangeNotifier, logger zerolog.Logger) PaymentService {
	return &paymentServiceImpl{store: store, storage: storage, notifier: notifier, now: time.Now, logger: logger}
}

func validatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.ErrInvalidAmount.WithField("amount")
	}
	return validateMoneyPrecision(amount)
}

func validateMoneyPrecision(amount decimal.Decimal) error {
	if !models.FitsMoneyColumn(amount) {
		return apperrors.ErrInvalidAmount.
			WithMessage(fmt.Sprintf("amount must have at most %d decimal places and not exceed %s", models.MoneyScale, models.MaxMoneyAmount)).
			WithField("amount")
	}
	return nil
}

func (s *paymentServiceImpl) CreatePayment(ctx context.Context, req *dto.CreatePaymentRequest, actorID int64) (*models.Payment, error) {
	if err := validatePositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	return s.record(ctx, req, nil, actorID)
}

// CreatePaymentWithReceipt checks the amount, then the file, before anything is
// written. The stored receipt is removed again if the row cannot be inserted.
func (s *paymentServiceImpl) CreatePaymentWithReceipt(ctx context.Context, req *dto.CreatePaymentRequest, receipt *multipart.FileHeader, actorID int64) (*models.Payment, error) {
	if err := validatePositiveAmount(req.Amount); err != nil {
		return nil, err
	}
	if err := s.storage.Validate(receipt); err != nil {
		return nil, err
	}

	// referenced rows are checked again inside the transaction
	repos := s.store.Repositories()
	if _, err := repos.Students.GetByID(ctx, req.StudentID); err != nil {
		return nil, err
	}

	stored, err := s.storage.Save(ctx, receipt, filestorage.CategoryReceipts)
	if err != nil {
		return nil, err
	}

	payment, err := s.record(ctx, req, stored, actorID)
	if err != nil {
		if delErr := s.storage.Delete(stored.Path); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", stored.Path).Msg("Failed to remove orphaned receipt")
		}
		return nil, err
	}
	return payment, nil
}

func (s *paymentServiceImpl) record(ctx context.Context, req *dto.CreatePaymentRequest, receipt *models.StoredFile, actorID int64) (*models.Payment, error) {
	if !req.PaymentType.IsValid() {
		return nil, apperrors.NewValidationError("paymentType", "unknown payment type")
	}

	payment := &models.Payment{
		StudentID:       req.StudentID,
		EnrollmentID:    req.EnrollmentID,
		PaymentType:     req.PaymentType,
		Amount:          req.Amount,
		Status:          models.PaymentPending,
		PaymentDate:     today(s.now),
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		Receipt:         receipt,
		RecordedBy:      actorID,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Students.GetByIDForUpdate(ctx, req.StudentID); err != nil {
			return err
		}
		if req.EnrollmentID != nil {
			e, err := repos.Enrollments.GetByID(ctx, *req.EnrollmentID)
			if err != nil {
				return err
			}
			if e.StudentID != req.StudentID {
				return apperrors.NewValidationError("enrollmentId", "enrollment belongs to another student")
			}
		}
		if err := repos.Payments.Create(ctx, payment); err != nil {
			return err
		}
		_, err := refreshEligibility(ctx, repos, req.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("paymentID", payment.ID).
		Int64("studentID", payment.StudentID).
		Str("amount", payment.Amount.String()).
		Bool("receipt", receipt != nil).
		Msg("Payment recorded")
	s.notifier.Changed(ctx, EntityPayment, "created", payment.ID)
	return payment, nil
}

func (s *paymentServiceImpl) UpdateStatus(ctx context.Context, id int64, req *dto.UpdatePaymentStatusRequest, actorID int64) (*models.Payment, error) {
	var payment *models.Payment
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		peek, err := repos.Payments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := repos.Students.GetByIDForUpdate(ctx, peek.StudentID); err != nil {
			return err
		}
		p, err := repos.Payments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(req.Status) {
			return apperrors.ErrInvalidTransition.WithDetails(map[string]interface{}{
				"from": p.Status,
				"to":   req.Status,
			})
		}

		at := s.now().UTC()
		p.Status = req.Status
		p.StatusUpdatedBy = &actorID
		p.StatusUpdatedAt = &at
		if req.Notes != nil {
			p.Notes = req.Notes
		}
		if err := repos.Payments.Update(ctx, p); err != nil {
			return err
		}
		payment = p
		_, err = refreshEligibility(ctx, repos, p.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("paymentID", id).Str("status", string(req.Status)).Int64("by", actorID).Msg("Payment status changed")
	s.notifier.Changed(ctx, EntityPayment, string(req.Status), id)
	return payment, nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.store.Repositories().Payments.GetByID(ctx, id)
}

func (s *paymentServiceImpl) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, int64, error) {
	return s.store.Repositories().Payments.List(ctx, filter)
}

func (s *paymentServiceImpl) Summary(ctx context.Context) (*models.PaymentSummary, error) {
	return s.store.Repositories().Payments.Summary(ctx)
}

func (s *paymentServiceImpl) ExportPayments(ctx context.Context, filter models.PaymentFilter, w io.Writer) error {
	filter.Offset, filter.Limit = 0, 0
	payments, _, err := s.store.Repositories().Payments.List(ctx, filter)
	if err != nil {
		return err
	}
	return report.WritePayments(w, payments)
}
