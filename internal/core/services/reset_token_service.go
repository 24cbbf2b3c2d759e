package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portsrepo "github.com/SscSPs/shope_lite/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/utils"
)

// ResetTokenTTL is how long a password reset token stays redeemable.
const ResetTokenTTL = 15 * time.Minute

// resetTokenService stores only SHA-256 hashes of reset tokens.
type resetTokenService struct {
	BaseService
	userRepo portsrepo.UserRepositoryFacade
	hasher   portssvc.PasswordHasher
}

func NewResetTokenService(userRepo portsrepo.UserRepositoryFacade, hasher portssvc.PasswordHasher, clock Clock) portssvc.ResetTokenSvc {
	return &resetTokenService{
		BaseService: BaseService{clock: clock},
		userRepo:    userRepo,
		hasher:      hasher,
	}
}

var _ portssvc.ResetTokenSvc = (*resetTokenService)(nil)

func (s *resetTokenService) CreateFor(ctx context.Context, user *domain.User) (string, error) {
	raw, err := utils.GenerateSecureRandomString(utils.ResetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}

	now := s.Now()
	if err := s.userRepo.SetResetToken(ctx, user.UserID, utils.HashResetToken(raw), now.Add(ResetTokenTTL), now); err != nil {
		s.LogError(ctx, err, "Failed to store reset token", slog.String("user_id", user.UserID))
		return "", err
	}
	return raw, nil
}

func (s *resetTokenService) Consume(ctx context.Context, rawToken, newPassword string) (*domain.User, error) {
	if rawToken == "" {
		return nil, apperrors.ErrTokenInvalidOrExpired
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash new password: %w", err)
	}

	user, err := s.userRepo.ConsumeResetToken(ctx, utils.HashResetToken(rawToken), newHash, s.Now())
	if err != nil {
		if !errors.Is(err, apperrors.ErrTokenInvalidOrExpired) {
			s.LogError(ctx, err, "Failed to consume reset token")
		}
		return nil, err
	}

	s.LogInfo(ctx, "Password reset via token", slog.String("user_id", user.UserID))
	return user, nil
}
