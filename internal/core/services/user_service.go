package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portsrepo "github.com/SscSPs/shope_lite/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/utils/pagination"
)

// userService implements user reads for admins and out-of-band role changes.
type userService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
}

func NewUserService(userRepo portsrepo.UserRepositoryFacade, clock Clock) portssvc.UserSvcFacade {
	return &userService{BaseService: BaseService{clock: clock}, userRepo: userRepo}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

func (s *userService) ListUsers(ctx context.Context, limit int, nextToken string) (*portssvc.UserPage, error) {
	var cursor *pagination.Cursor
	if nextToken != "" {
		c, err := pagination.DecodeToken(nextToken)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid nextToken")
		}
		cursor = c
	}

	limit = pagination.ClampLimit(limit)
	users, err := s.userRepo.FindUsers(ctx, limit, cursor)
	if err != nil {
		s.LogError(ctx, err, "Failed to list users")
		return nil, err
	}

	s.LogDebug(ctx, "Listed users", slog.Int("count", len(users)), slog.Bool("has_cursor", cursor != nil))

	page := &portssvc.UserPage{Users: users}
	// A full page may have a successor; the client learns otherwise from an empty page.
	if len(users) == limit {
		last := users[len(users)-1]
		page.NextToken = pagination.EncodeToken(last.CreatedAt, last.UserID)
	}
	return page, nil
}

func (s *userService) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	if !role.IsValid() {
		return nil, apperrors.NewValidationError("Unknown role")
	}
	user, err := s.userRepo.FindUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("User not found")
		}
		return nil, err
	}

	now := s.Now()
	if err := s.userRepo.UpdateRole(ctx, user.UserID, role, now); err != nil {
		s.LogError(ctx, err, "Failed to update role", slog.String("user_id", user.UserID))
		return nil, err
	}

	s.LogInfo(ctx, "User role changed",
		slog.String("user_id", user.UserID),
		slog.String("from", string(user.Role)),
		slog.String("to", string(role)))
	user.Role = role
	user.UpdatedAt = now
	return user, nil
}
