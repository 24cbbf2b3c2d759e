package services

import (
	"context"
	"time"

	"github.com/SscSPs/shope_lite/internal/core/domain"
	"golang.org/x/oauth2"
)

// PasswordHasher hashes and verifies passwords with a salted adaptive scheme.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// SessionTokenSvc issues and verifies signed session tokens.
type SessionTokenSvc interface {
	// Issue signs a token for userID and role, returning it with its expiry.
	Issue(ctx context.Context, userID string, role domain.Role) (string, time.Time, error)

	// Verify checks signature, algorithm, issuer and expiry. Any failure is
	// reported as apperrors.ErrUnauthorized.
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// ResetTokenSvc manages single-use password reset tokens.
type ResetTokenSvc interface {
	// CreateFor stores a fresh token hash for user and returns the raw token.
	CreateFor(ctx context.Context, user *domain.User) (string, error)

	// Consume redeems a raw token, setting newPassword on the owning user.
	Consume(ctx context.Context, rawToken, newPassword string) (*domain.User, error)
}

// ResetNotifier delivers password reset links out of band.
type ResetNotifier interface {
	IsEnabled() bool
	SendPasswordResetEmail(ctx context.Context, toEmail, username, resetLink string) error
}

// RegisterInput is the validated shape of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// LoginResult is returned after a successful password or Google login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// ForgotPasswordResult is identical in shape for known and unknown emails.
// ResetLink and ResetToken are only populated in demo mode.
type ForgotPasswordResult struct {
	ResetLink  string
	ResetToken string
}

// AuthSvcFacade defines the account lifecycle operations exposed over HTTP.
type AuthSvcFacade interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	ChangeUsername(ctx context.Context, userID, username string) (*domain.User, error)
	ChangeEmail(ctx context.Context, userID, email string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	LoginWithGoogle(ctx context.Context, info *domain.GoogleUserInfo) (*LoginResult, error)
}

// GoogleOAuthSvc defines the interface for Google OAuth operations.
type GoogleOAuthSvc interface {
	// IsConfigured reports whether client credentials are present.
	IsConfigured() bool
	// ExchangeCodeForToken exchanges an OAuth authorization code for a token.
	ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error)
	// ValidateIDToken validates the ID token carried by token and returns its claims.
	ValidateIDToken(ctx context.Context, token *oauth2.Token) (*domain.GoogleUserInfo, error)
}
