package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/utils"
)

// SessionTTL is the fixed lifetime of a session token.
const SessionTTL = time.Hour

// ErrSigningKeyMissing is returned when a session token service is built without a secret.
var ErrSigningKeyMissing = errors.New("session token signing key is not configured")

// sessionTokenService implements SessionTokenSvc with HS256 JWTs.
type sessionTokenService struct {
	BaseService
	secret string
	issuer string
}

// TokenServiceOption configures a session token service.
type TokenServiceOption func(*sessionTokenService)

// WithTokenClock overrides the clock used for issuing and verifying.
func WithTokenClock(clock Clock) TokenServiceOption {
	return func(s *sessionTokenService) {
		s.clock = clock
	}
}

// NewSessionTokenService creates a session token service. It refuses an empty secret.
func NewSessionTokenService(secret, issuer string, opts ...TokenServiceOption) (portssvc.SessionTokenSvc, error) {
	if secret == "" {
		return nil, ErrSigningKeyMissing
	}
	s := &sessionTokenService{secret: secret, issuer: issuer}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ portssvc.SessionTokenSvc = (*sessionTokenService)(nil)

func (s *sessionTokenService) Issue(ctx context.Context, userID string, role domain.Role) (string, time.Time, error) {
	if s.secret == "" {
		return "", time.Time{}, ErrSigningKeyMissing
	}
	if userID == "" || !role.IsValid() {
		return "", time.Time{}, fmt.Errorf("cannot issue session token for user %q with role %q", userID, role)
	}

	now := s.Now()
	token, err := utils.GenerateJWT(userID, string(role), s.secret, s.issuer, now, SessionTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	// Claims carry whole seconds.
	return token, now.Truncate(time.Second).Add(SessionTTL), nil
}

// Verify wraps the underlying cause together with ErrUnauthorized so callers
// can log why a token failed while clients only ever see "unauthorized".
func (s *sessionTokenService) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	if s.secret == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, ErrSigningKeyMissing)
	}

	claims, err := utils.ParseAndValidateJWT(token, s.secret, s.issuer, s.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUnauthorized, err)
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token claims missing subject or role", apperrors.ErrUnauthorized)
	}

	identity := &domain.Identity{UserID: claims.Subject, Role: role}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
