package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/auth"
	"github.com/yigit/enrolladmin/internal/pkg/email"
	"github.com/yigit/enrolladmin/internal/pkg/report"
)

const temporaryPasswordLength = 12

// StudentService defines the interface for student registry operations
type StudentService interface {
	RegisterStudent(ctx context.Context, req *dto.RegisterStudentRequest, actorID int64) (*dto.RegisterStudentResponse, error)
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int64, error)
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	UpdateStudent(ctx context.Context, id int64, req *dto.UpdateStudentRequest) (*models.Student, error)
	UpdateStatus(ctx context.Context, id int64, req *dto.UpdateStudentStatusRequest) (*models.Student, error)
	RecomputeEligibility(ctx context.Context) (*dto.EligibilityRecomputeResponse, error)
	ExportStudents(ctx context.Context, filter models.StudentFilter, w io.Writer) error
	RecordAssessment(ctx context.Context, studentID int64, req *dto.RecordAssessmentRequest, actorID int64) (*models.CompetencyAssessment, error)
	ListAssessments(ctx context.Context, studentID int64) ([]*models.CompetencyAssessment, error)
}

type studentServiceImpl struct {
	store    repositories.Store
	mailer   email.EmailService
	notifier *ChangeNotifier
	now      func() time.Time
	logger   zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(store repositories.Store, mailer email.EmailService, notifier *ChangeNotifier, logger zerolog.Logger) StudentService {
	return &studentServiceImpl{store: store, mailer: mailer, notifier: notifier, now: time.Now, logger: logger}
}

// refreshEligibility re-derives graduationEligible for an enrolled student from
// the ledgers and stores it when it changed. Students in other statuses are
// left alone.
func refreshEligibility(ctx context.Context, repos *repositories.Repositories, studentID int64) (bool, error) {
	student, err := repos.Students.GetByIDForUpdate(ctx, studentID)
	if err != nil {
		return false, err
	}
	if student.EnrollmentStatus != models.StudentEnrolled {
		return student.GraduationEligible, nil
	}

	facts, err := repos.Students.EligibilityFacts(ctx, studentID)
	if err != nil {
		return false, err
	}
	eligible := facts.Eligible()
	if eligible != student.GraduationEligible {
		student.GraduationEligible = eligible
		if err := repos.Students.Update(ctx, student); err != nil {
			return false, err
		}
	}
	return eligible, nil
}

func (s *studentServiceImpl) RegisterStudent(ctx context.Context, req *dto.RegisterStudentRequest, actorID int64) (*dto.RegisterStudentResponse, error) {
	birthDate, err := models.ParseDate(req.BirthDate)
	if err != nil {
		return nil, apperrors.NewValidationError("birthDate", err.Error())
	}
	if !req.CompetencyLevel.IsValid() {
		return nil, apperrors.NewValidationError("competencyLevel", "competency level must be basic, common or core")
	}
	if req.InitialPayment != nil {
		if err := validatePositiveAmount(req.InitialPayment.Amount); err != nil {
			return nil, err
		}
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	password, err := auth.GenerateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	day := today(s.now)
	resp := &dto.RegisterStudentResponse{}

	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		taken, err := repos.Students.EmailExists(ctx, emailAddr)
		if err != nil {
			return err
		}
		if !taken {
			if taken, err = repos.Users.EmailExists(ctx, emailAddr); err != nil {
				return err
			}
		}
		if taken {
			return apperrors.ErrEmailAlreadyExists.WithField("email")
		}

		seq, err := repos.Students.NextStudentSequence(ctx)
		if err != nil {
			return err
		}
		student := &models.Student{
			StudentNumber:    models.FormatStudentNumber(now.Year(), seq),
			FirstName:        strings.TrimSpace(req.FirstName),
			LastName:         strings.TrimSpace(req.LastName),
			Email:            emailAddr,
			Phone:            req.Phone,
			Address:          req.Address,
			BirthDate:        birthDate,
			CompetencyLevel:  req.CompetencyLevel,
			EnrollmentStatus: models.StudentEnrolled,
			EnrollmentDate:   day,
			ReferralID:       req.ReferralID,
		}
		if err := repos.Students.Create(ctx, student); err != nil {
			return err
		}

		studentID := student.ID
		user := &models.User{
			Email:     emailAddr,
			Password:  hash,
			FullName:  student.FullName(),
			RoleType:  models.RoleStudent,
			StudentID: &studentID,
			IsActive:  true,
		}
		if err := repos.Users.Create(ctx, user); err != nil {
			return err
		}

		enrollment, err := enrollInTx(ctx, repos, student.ID, req.OfferingID, now)
		if err != nil {
			return err
		}

		if p := req.InitialPayment; p != nil {
			enrollmentID := enrollment.ID
			payment := &models.Payment{
				StudentID:       student.ID,
				EnrollmentID:    &enrollmentID,
				PaymentType:     p.PaymentType,
				Amount:          p.Amount,
				Status:          models.PaymentPending,
				PaymentDate:     day,
				ReferenceNumber: p.ReferenceNumber,
				RecordedBy:      actorID,
			}
			if err := repos.Payments.Create(ctx, payment); err != nil {
				return err
			}
			resp.Payment = payment
		}

		if req.ReferralID != nil {
			referral, err := repos.Referrals.GetByIDForUpdate(ctx, *req.ReferralID)
			if err != nil {
				return err
			}
			if referral.Status != models.ReferralPending {
				return apperrors.ErrInvalidTransition.
					WithMessage("referral has already been resolved").
					WithDetails(map[string]interface{}{"referralStatus": referral.Status})
			}
			referral.Status = models.ReferralEnrolled
			referral.ReferredStudentID = &studentID
			if err := repos.Referrals.Update(ctx, referral); err != nil {
				return err
			}
		}

		resp.Student, resp.User, resp.Enrollment = student, user, enrollment
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("email", emailAddr).Int64("offeringID", req.OfferingID).Msg("Registration rolled back")
		return nil, err
	}

	s.logger.Info().
		Int64("studentID", resp.Student.ID).
		Str("studentNumber", resp.Student.StudentNumber).
		Int64("enrollmentID", resp.Enrollment.ID).
		Msg("Student registered")

	creds := email.Credentials{
		ToEmail:       emailAddr,
		ToName:        resp.Student.FullName(),
		StudentNumber: resp.Student.StudentNumber,
		Password:      password,
	}
	if err := s.mailer.SendStudentCredentials(ctx, creds); err != nil {
		s.logger.Error().Err(err).Int64("studentID", resp.Student.ID).Msg("Failed to deliver credentials email, registration kept")
	}

	s.notifier.Changed(ctx, EntityStudent, "registered", resp.Student.ID)
	return resp, nil
}

func (s *studentServiceImpl) ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int64, error) {
	return s.store.Repositories().Students.List(ctx, filter)
}

func (s *studentServiceImpl) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	return s.store.Repositories().Students.GetByID(ctx, id)
}

func (s *studentServiceImpl) UpdateStudent(ctx context.Context, id int64, req *dto.UpdateStudentRequest) (*models.Student, error) {
	var birthDate *time.Time
	if req.BirthDate != nil {
		d, err := models.ParseDate(*req.BirthDate)
		if err != nil {
			return nil, apperrors.NewValidationError("birthDate", err.Error())
		}
		birthDate = d
	}

	var student *models.Student
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		st, err := repos.Students.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.FirstName != nil {
			st.FirstName = strings.TrimSpace(*req.FirstName)
		}
		if req.LastName != nil {
			st.LastName = strings.TrimSpace(*req.LastName)
		}
		if req.Phone != nil {
			st.Phone = req.Phone
		}
		if req.Address != nil {
			st.Address = req.Address
		}
		if birthDate != nil {
			st.BirthDate = birthDate
		}
		if err := repos.Students.Update(ctx, st); err != nil {
			return err
		}
		student = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, EntityStudent, "updated", id)
	return student, nil
}

func (s *studentServiceImpl) UpdateStatus(ctx context.Context, id int64, req *dto.UpdateStudentStatusRequest) (*models.Student, error) {
	graduationDate, err := models.ParseDate(req.GraduationDate)
	if err != nil {
		return nil, apperrors.NewValidationError("graduationDate", err.Error())
	}

	var student *models.Student
	err = s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		st, err := repos.Students.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !st.EnrollmentStatus.CanTransitionTo(req.Status) {
			return apperrors.ErrInvalidTransition.WithDetails(map[string]interface{}{
				"from": st.EnrollmentStatus,
				"to":   req.Status,
			})
		}

		switch req.Status {
		case models.StudentGraduated:
			eligible, err := refreshEligibility(ctx, repos, id)
			if err != nil {
				return err
			}
			if !eligible {
				return apperrors.ErrNotEligibleToGraduate
			}
			if st, err = repos.Students.GetByIDForUpdate(ctx, id); err != nil {
				return err
			}
			if graduationDate == nil {
				d := today(s.now)
				graduationDate = &d
			}
			st.GraduationDate = graduationDate

		case models.StudentDropped:
			enrolled := models.EnrollmentEnrolled
			active, err := repos.Enrollments.List(ctx, models.EnrollmentFilter{StudentID: &id, Status: &enrolled})
			if err != nil {
				return err
			}
			at := s.now().UTC()
			for _, e := range active {
				e.Status = models.EnrollmentWithdrawn
				e.WithdrawnAt = &at
				if err := repos.Enrollments.Update(ctx, e); err != nil {
					return err
				}
			}
			st.GraduationEligible = false
		}

		st.EnrollmentStatus = req.Status
		if err := repos.Students.Update(ctx, st); err != nil {
			return err
		}
		student = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("studentID", id).Str("status", string(req.Status)).Msg("Student status changed")
	s.notifier.Changed(ctx, EntityStudent, string(req.Status), id)
	return student, nil
}

func (s *studentServiceImpl) RecomputeEligibility(ctx context.Context) (*dto.EligibilityRecomputeResponse, error) {
	ids, err := s.store.Repositories().Students.ListIDsByStatus(ctx, models.StudentEnrolled)
	if err != nil {
		return nil, fmt.Errorf("error listing enrolled students: %w", err)
	}

	result := &dto.EligibilityRecomputeResponse{}
	for _, id := range ids {
		var before, after bool
		err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
			st, err := repos.Students.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			before = st.GraduationEligible
			after, err = refreshEligibility(ctx, repos, id)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("error recomputing eligibility for student %d: %w", id, err)
		}

		result.Checked++
		if after {
			result.Eligible++
		}
		if before != after {
			result.Changed++
		}
	}

	s.logger.Info().
		Int("checked", result.Checked).
		Int("eligible", result.Eligible).
		Int("changed", result.Changed).
		Msg("Graduation eligibility recomputed")
	if result.Changed > 0 {
		s.notifier.Changed(ctx, EntityStudent, "eligibility", 0)
	}
	return result, nil
}

func (s *studentServiceImpl) ExportStudents(ctx context.Context, filter models.StudentFilter, w io.Writer) error {
	filter.Offset, filter.Limit = 0, 0
	students, _, err := s.store.Repositories().Students.List(ctx, filter)
	if err != nil {
		return err
	}
	return report.WriteStudents(w, students)
}

func (s *studentServiceImpl) RecordAssessment(ctx context.Context, studentID int64, req *dto.RecordAssessmentRequest, actorID int64) (*models.CompetencyAssessment, error) {
	if !req.Level.IsValid() {
		return nil, apperrors.NewValidationError("level", "level must be basic, common or core")
	}

	assessment := &models.CompetencyAssessment{
		StudentID:  studentID,
		Level:      req.Level,
		Score:      req.Score,
		Notes:      req.Notes,
		AssessedBy: actorID,
		AssessedAt: s.now().UTC(),
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		st, err := repos.Students.GetByIDForUpdate(ctx, studentID)
		if err != nil {
			return err
		}
		if err := repos.Assessments.Create(ctx, assessment); err != nil {
			return err
		}
		st.CompetencyLevel = req.Level
		return repos.Students.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, EntityAssessment, "created", assessment.ID)
	return assessment, nil
}

func (s *studentServiceImpl) ListAssessments(ctx context.Context, studentID int64) ([]*models.CompetencyAssessment, error) {
	repos := s.store.Repositories()
	if _, err := repos.Students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return repos.Assessments.ListByStudent(ctx, studentID)
}
