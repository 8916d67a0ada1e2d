package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

// EnrollmentService defines the interface for enrollment ledger operations
type EnrollmentService interface {
	Enroll(ctx context.Context, req *dto.EnrollRequest) (*models.Enrollment, error)
	Withdraw(ctx context.Context, id int64) (*models.Enrollment, error)
	Complete(ctx context.Context, id int64) (*models.Enrollment, error)
	GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]*models.Enrollment, error)
}

type enrollmentServiceImpl struct {
	store    repositories.Store
	notifier *ChangeNotifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(store repositories.Store, notifier *ChangeNotifier, logger zerolog.Logger) EnrollmentService {
	return &enrollmentServiceImpl{store: store, notifier: notifier, now: time.Now, logger: logger}
}

// Transactions lock rows in one order: student, then offering, then the
// enrollment, payment or document row.

// enrollInTx applies the enrollment rules inside an open transaction. The
// student row is locked so a concurrent drop waits for the new enrollment, and
// the offering row is locked so two callers racing for the last seat are
// serialized on it.
func enrollInTx(ctx context.Context, repos *repositories.Repositories, studentID, offeringID int64, at time.Time) (*models.Enrollment, error) {
	student, err := repos.Students.GetByIDForUpdate(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.EnrollmentStatus != models.StudentEnrolled {
		return nil, apperrors.ErrInvalidTransition.
			WithMessage("only students in enrolled status can join an offering").
			WithDetails(map[string]interface{}{"studentStatus": student.EnrollmentStatus})
	}

	offering, err := repos.Offerings.GetByIDForUpdate(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if offering.Status != models.OfferingOpen {
		return nil, apperrors.ErrOfferingClosed
	}

	active, err := repos.Enrollments.HasActive(ctx, studentID, offeringID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.ErrDuplicateEnrollment
	}

	count, err := repos.Enrollments.CountActive(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if count >= offering.Capacity {
		return nil, apperrors.ErrCapacityExceeded.WithDetails(map[string]interface{}{
			"offeringId": offeringID,
			"capacity":   offering.Capacity,
			"active":     count,
		})
	}

	enrollment := &models.Enrollment{
		StudentID:      studentID,
		OfferingID:     offeringID,
		Status:         models.EnrollmentEnrolled,
		EnrollmentDate: at,
	}
	if err := repos.Enrollments.Create(ctx, enrollment); err != nil {
		return nil, err
	}

	offering.ActiveEnrollmentCount = count + 1
	enrollment.Offering = offering
	return enrollment, nil
}

func (s *enrollmentServiceImpl) Enroll(ctx context.Context, req *dto.EnrollRequest) (*models.Enrollment, error) {
	var enrollment *models.Enrollment
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		e, err := enrollInTx(ctx, repos, req.StudentID, req.OfferingID, s.now().UTC())
		if err != nil {
			return err
		}
		enrollment = e
		_, err = refreshEligibility(ctx, repos, req.StudentID)
		return err
	})
	if err != nil {
		s.logger.Debug().Err(err).Int64("studentID", req.StudentID).Int64("offeringID", req.OfferingID).Msg("Enrollment rejected")
		return nil, err
	}

	s.logger.Info().
		Int64("enrollmentID", enrollment.ID).
		Int64("studentID", enrollment.StudentID).
		Int64("offeringID", enrollment.OfferingID).
		Msg("Student enrolled")
	s.notifier.Changed(ctx, EntityEnrollment, "created", enrollment.ID)
	return enrollment, nil
}

// transition moves an enrolled row to a final status. Rows are never moved
// back to enrolled.
func (s *enrollmentServiceImpl) transition(ctx context.Context, id int64, next models.EnrollmentStatus) (*models.Enrollment, error) {
	var enrollment *models.Enrollment
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		e, err := lockEnrollment(ctx, repos, id)
		if err != nil {
			return err
		}
		if e.Status != models.EnrollmentEnrolled {
			return apperrors.ErrInvalidTransition.WithDetails(map[string]interface{}{
				"from": e.Status,
				"to":   next,
			})
		}

		at := s.now().UTC()
		e.Status = next
		switch next {
		case models.EnrollmentWithdrawn:
			e.WithdrawnAt = &at
		case models.EnrollmentCompleted:
			e.CompletedAt = &at
		}
		if err := repos.Enrollments.Update(ctx, e); err != nil {
			return err
		}
		enrollment = e
		_, err = refreshEligibility(ctx, repos, e.StudentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("enrollmentID", id).Str("status", string(next)).Msg("Enrollment status changed")
	s.notifier.Changed(ctx, EntityEnrollment, string(next), id)
	return enrollment, nil
}

// lockEnrollment locks the owning student before the enrollment row
func lockEnrollment(ctx context.Context, repos *repositories.Repositories, id int64) (*models.Enrollment, error) {
	peek, err := repos.Enrollments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := repos.Students.GetByIDForUpdate(ctx, peek.StudentID); err != nil {
		return nil, err
	}
	return repos.Enrollments.GetByIDForUpdate(ctx, id)
}

func (s *enrollmentServiceImpl) Withdraw(ctx context.Context, id int64) (*models.Enrollment, error) {
	return s.transition(ctx, id, models.EnrollmentWithdrawn)
}

func (s *enrollmentServiceImpl) Complete(ctx context.Context, id int64) (*models.Enrollment, error) {
	return s.transition(ctx, id, models.EnrollmentCompleted)
}

func (s *enrollmentServiceImpl) GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	repos := s.store.Repositories()
	e, err := repos.Enrollments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o, err := repos.Offerings.GetByID(ctx, e.OfferingID); err == nil {
		e.Offering = o
	}
	return e, nil
}

func (s *enrollmentServiceImpl) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]*models.Enrollment, error) {
	return s.store.Repositories().Enrollments.List(ctx, filter)
}
