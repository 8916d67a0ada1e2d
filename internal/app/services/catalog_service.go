package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

// CatalogService defines the interface for course and offering operations
type CatalogService interface {
	CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context, activeOnly bool) ([]*models.Course, error)
	CreateOffering(ctx context.Context, req *dto.CreateOfferingRequest) (*models.CourseOffering, error)
	GetOffering(ctx context.Context, id int64) (*models.CourseOffering, error)
	ListOfferings(ctx context.Context, filter models.OfferingFilter) ([]*models.CourseOffering, error)
	UpdateOffering(ctx context.Context, id int64, req *dto.UpdateOfferingRequest) (*models.CourseOffering, error)
	UpdateOfferingStatus(ctx context.Context, id int64, status models.OfferingStatus) (*models.CourseOffering, error)
}

type catalogServiceImpl struct {
	store    repositories.Store
	notifier *ChangeNotifier
	logger   zerolog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(store repositories.Store, notifier *ChangeNotifier, logger zerolog.Logger) CatalogService {
	return &catalogServiceImpl{store: store, notifier: notifier, logger: logger}
}

func parseRequiredDate(field, value string) (time.Time, error) {
	d, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(field, err.Error())
	}
	if d == nil {
		return time.Time{}, apperrors.NewValidationError(field, field+" is required")
	}
	return *d, nil
}

func validateSchedule(start, end time.Time) error {
	if end.Before(start) {
		return apperrors.NewValidationError("endDate", "end date must not be before start date")
	}
	return nil
}

func (s *catalogServiceImpl) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*models.Course, error) {
	if !req.CompetencyLevel.IsValid() {
		return nil, apperrors.NewValidationError("competencyLevel", "competency level must be basic, common or core")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, apperrors.NewValidationError("code", "code cannot be empty")
	}

	course := &models.Course{
		Code:            code,
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		CompetencyLevel: req.CompetencyLevel,
		IsActive:        true,
	}
	if err := s.store.Repositories().Courses.Create(ctx, course); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("courseID", course.ID).Str("code", course.Code).Msg("Course created")
	s.notifier.Changed(ctx, EntityCourse, "created", course.ID)
	return course, nil
}

func (s *catalogServiceImpl) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	return s.store.Repositories().Courses.GetByID(ctx, id)
}

func (s *catalogServiceImpl) ListCourses(ctx context.Context, activeOnly bool) ([]*models.Course, error) {
	return s.store.Repositories().Courses.List(ctx, activeOnly)
}

func (s *catalogServiceImpl) CreateOffering(ctx context.Context, req *dto.CreateOfferingRequest) (*models.CourseOffering, error) {
	start, err := parseRequiredDate("startDate", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseRequiredDate("endDate", req.EndDate)
	if err != nil {
		return nil, err
	}
	if err := validateSchedule(start, end); err != nil {
		return nil, err
	}
	if req.Capacity <= 0 {
		return nil, apperrors.NewValidationError("capacity", "capacity must be positive")
	}

	offering := &models.CourseOffering{
		CourseID:  req.CourseID,
		Batch:     strings.TrimSpace(req.Batch),
		Capacity:  req.Capacity,
		StartDate: start,
		EndDate:   end,
		Status:    models.OfferingOpen,
	}
	repos := s.store.Repositories()
	if err := repos.Offerings.Create(ctx, offering); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("offeringID", offering.ID).Int64("courseID", offering.CourseID).Str("batch", offering.Batch).Msg("Offering created")
	s.notifier.Changed(ctx, EntityOffering, "created", offering.ID)
	return repos.Offerings.GetByID(ctx, offering.ID)
}

func (s *catalogServiceImpl) GetOffering(ctx context.Context, id int64) (*models.CourseOffering, error) {
	return s.store.Repositories().Offerings.GetByID(ctx, id)
}

func (s *catalogServiceImpl) ListOfferings(ctx context.Context, filter models.OfferingFilter) ([]*models.CourseOffering, error) {
	return s.store.Repositories().Offerings.List(ctx, filter)
}

// UpdateOffering changes capacity or dates. The offering row is locked so that
// a concurrent enrollment cannot slip in between the count and the update.
func (s *catalogServiceImpl) UpdateOffering(ctx context.Context, id int64, req *dto.UpdateOfferingRequest) (*models.CourseOffering, error) {
	var offering *models.CourseOffering
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		o, err := repos.Offerings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.Capacity != nil {
			active, err := repos.Enrollments.CountActive(ctx, id)
			if err != nil {
				return err
			}
			if *req.Capacity < active {
				return apperrors.ErrCapacityBelowEnrolled.WithDetails(map[string]interface{}{
					"capacity": *req.Capacity,
					"active":   active,
				})
			}
			o.Capacity = *req.Capacity
		}
		if req.StartDate != nil {
			if o.StartDate, err = parseRequiredDate("startDate", *req.StartDate); err != nil {
				return err
			}
		}
		if req.EndDate != nil {
			if o.EndDate, err = parseRequiredDate("endDate", *req.EndDate); err != nil {
				return err
			}
		}
		if err := validateSchedule(o.StartDate, o.EndDate); err != nil {
			return err
		}

		if err := repos.Offerings.Update(ctx, o); err != nil {
			return err
		}
		offering = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, EntityOffering, "updated", id)
	return offering, nil
}

func (s *catalogServiceImpl) UpdateOfferingStatus(ctx context.Context, id int64, status models.OfferingStatus) (*models.CourseOffering, error) {
	if !status.IsValid() {
		return nil, apperrors.NewValidationError("status", "status must be open or closed")
	}

	var offering *models.CourseOffering
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		o, err := repos.Offerings.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		o.Status = status
		if err := repos.Offerings.Update(ctx, o); err != nil {
			return err
		}
		offering = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("offeringID", id).Str("status", string(status)).Msg("Offering status changed")
	s.notifier.Changed(ctx, EntityOffering, string(status), id)
	return offering, nil
}
