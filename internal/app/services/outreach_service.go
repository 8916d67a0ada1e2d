package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/models/dto"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
)

// OutreachService defines the interface for scholarship and referral operations
type OutreachService interface {
	CreateScholarship(ctx context.Context, req *dto.CreateScholarshipRequest) (*models.ScholarshipOffer, error)
	ListScholarships(ctx context.Context, activeOnly bool) ([]*models.ScholarshipOffer, error)
	SetScholarshipActive(ctx context.Context, id int64, active bool) (*models.ScholarshipOffer, error)
	CreateReferral(ctx context.Context, req *dto.CreateReferralRequest) (*models.Referral, error)
	GetReferral(ctx context.Context, id int64) (*models.Referral, error)
	ListReferrals(ctx context.Context, filter models.ReferralFilter) ([]*models.Referral, error)
	UpdateReferralStatus(ctx context.Context, id int64, req *dto.UpdateReferralStatusRequest) (*models.Referral, error)
}

type outreachServiceImpl struct {
	store    repositories.Store
	notifier *ChangeNotifier
	logger   zerolog.Logger
}

// NewOutreachService creates a new OutreachService
func NewOutreachService(store repositories.Store, notifier *ChangeNotifier, logger zerolog.Logger) OutreachService {
	return &outreachServiceImpl{store: store, notifier: notifier, logger: logger}
}

func (s *outreachServiceImpl) CreateScholarship(ctx context.Context, req *dto.CreateScholarshipRequest) (*models.ScholarshipOffer, error) {
	if req.Amount.IsNegative() {
		return nil, apperrors.ErrInvalidAmount.WithMessage("amount must not be negative").WithField("amount")
	}
	if err := validateMoneyPrecision(req.Amount); err != nil {
		return nil, err
	}

	offer := &models.ScholarshipOffer{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Amount:           req.Amount,
		SponsorName:      strings.TrimSpace(req.SponsorName),
		SponsorStudentID: req.SponsorStudentID,
		Slots:            req.Slots,
		IsActive:         true,
	}
	if err := s.store.Repositories().Scholarships.Create(ctx, offer); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("scholarshipID", offer.ID).Str("sponsor", offer.SponsorName).Msg("Scholarship offer created")
	s.notifier.Changed(ctx, EntityScholarship, "created", offer.ID)
	return offer, nil
}

func (s *outreachServiceImpl) ListScholarships(ctx context.Context, activeOnly bool) ([]*models.ScholarshipOffer, error) {
	return s.store.Repositories().Scholarships.List(ctx, activeOnly)
}

func (s *outreachServiceImpl) SetScholarshipActive(ctx context.Context, id int64, active bool) (*models.ScholarshipOffer, error) {
	repos := s.store.Repositories()
	offer, err := repos.Scholarships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	offer.IsActive = active
	if err := repos.Scholarships.Update(ctx, offer); err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, EntityScholarship, "updated", id)
	return offer, nil
}

func (s *outreachServiceImpl) CreateReferral(ctx context.Context, req *dto.CreateReferralRequest) (*models.Referral, error) {
	referral := &models.Referral{
		ReferrerStudentID: req.ReferrerStudentID,
		ReferredName:      strings.TrimSpace(req.ReferredName),
		ReferredEmail:     req.ReferredEmail,
		ReferredPhone:     req.ReferredPhone,
		Status:            models.ReferralPending,
		Notes:             req.Notes,
	}

	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		if _, err := repos.Students.GetByID(ctx, req.ReferrerStudentID); err != nil {
			return err
		}
		return repos.Referrals.Create(ctx, referral)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("referralID", referral.ID).Int64("referrer", referral.ReferrerStudentID).Msg("Referral recorded")
	s.notifier.Changed(ctx, EntityReferral, "created", referral.ID)
	return referral, nil
}

func (s *outreachServiceImpl) GetReferral(ctx context.Context, id int64) (*models.Referral, error) {
	return s.store.Repositories().Referrals.GetByID(ctx, id)
}

func (s *outreachServiceImpl) ListReferrals(ctx context.Context, filter models.ReferralFilter) ([]*models.Referral, error) {
	return s.store.Repositories().Referrals.List(ctx, filter)
}

// UpdateReferralStatus resolves a pending referral. Resolved referrals are final.
func (s *outreachServiceImpl) UpdateReferralStatus(ctx context.Context, id int64, req *dto.UpdateReferralStatusRequest) (*models.Referral, error) {
	var referral *models.Referral
	err := s.store.WithTransaction(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		r, err := repos.Referrals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != models.ReferralPending || req.Status == models.ReferralPending {
			return apperrors.ErrInvalidTransition.WithDetails(map[string]interface{}{
				"from": r.Status,
				"to":   req.Status,
			})
		}
		if req.ReferredStudentID != nil {
			if _, err := repos.Students.GetByID(ctx, *req.ReferredStudentID); err != nil {
				return err
			}
			r.ReferredStudentID = req.ReferredStudentID
		}
		if req.Notes != nil {
			r.Notes = req.Notes
		}
		r.Status = req.Status
		if err := repos.Referrals.Update(ctx, r); err != nil {
			return err
		}
		referral = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Changed(ctx, EntityReferral, string(req.Status), id)
	return referral, nil
}
