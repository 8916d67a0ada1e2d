package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yigit/enrolladmin/internal/app/models"
	"github.com/yigit/enrolladmin/internal/app/repositories"
	"github.com/yigit/enrolladmin/internal/pkg/apperrors"
	"github.com/yigit/enrolladmin/internal/pkg/logger"
)

// Principal is the authenticated caller as seen by the services
type Principal struct {
	UserID    int64
	Role      models.RoleType
	StudentID *int64
}

// IsStaff reports whether the caller manages records on behalf of students
func (p Principal) IsStaff() bool {
	return p.Role.IsStaff()
}

// AuthorizationService handles authorization operations
type AuthorizationService struct {
	userRepo repositories.UserRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo repositories.UserRepository) *AuthorizationService {
	return &AuthorizationService{userRepo: userRepo}
}

// ValidateActiveUser fails when the account behind a still-valid token has been
// disabled or removed
func (s *AuthorizationService) ValidateActiveUser(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrTokenInvalid.WithMessage("account no longer exists")
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error getting user by ID in ValidateActiveUser")
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return apperrors.ErrAccountDisabled
	}
	return nil
}

// CanAccessStudent reports whether p may read the records of studentID. Staff
// may read everything; a student only their own profile.
func (s *AuthorizationService) CanAccessStudent(p Principal, studentID int64) bool {
	if p.IsStaff() {
		return true
	}
	return p.Role == models.RoleStudent && p.StudentID != nil && *p.StudentID == studentID
}

// ValidateStudentAccess returns Forbidden unless CanAccessStudent holds
func (s *AuthorizationService) ValidateStudentAccess(p Principal, studentID int64) error {
	if !s.CanAccessStudent(p, studentID) {
		return apperrors.ErrForbidden.WithMessage("you can only access your own student records")
	}
	return nil
}

// ScopeStudentID narrows a list filter to the caller. Staff keep whatever they
// asked for; students are pinned to their own id and may not ask for another.
func (s *AuthorizationService) ScopeStudentID(p Principal, requested *int64) (*int64, error) {
	if p.IsStaff() {
		return requested, nil
	}
	if p.Role != models.RoleStudent || p.StudentID == nil {
		return nil, apperrors.ErrForbidden
	}
	if requested != nil && *requested != *p.StudentID {
		return nil, apperrors.ErrForbidden.WithMessage("you can only access your own student records")
	}
	own := *p.StudentID
	return &own, nil
}
