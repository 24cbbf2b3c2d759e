package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portsrepo "github.com/SscSPs/shope_lite/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/shope_lite/internal/core/ports/services"
	"github.com/SscSPs/shope_lite/internal/utils"
	"github.com/google/uuid"
)

const (
	msgAllFieldsRequired   = "All fields are required"
	msgUserExists          = "User already exists"
	msgUsernameTaken       = "Username already taken"
	msgEmailInUse          = "Email already in use"
	msgInvalidCredentials  = "Invalid credentials"
	msgUserNotFound        = "User not found"
	msgValidEmailRequired  = "Valid email required"
	msgBothPasswords       = "Both passwords required"
	msgNewPasswordTooShort = "New password must be at least 6 characters"
	msgCurrentPasswordBad  = "Current password incorrect"
	msgResetTokenRequired  = "Reset token required"
	msgTokenInvalid        = "Token invalid or expired"
	msgRoleNotAllowed      = "Role cannot be chosen at registration"
	msgGoogleNotVerified   = "Google account email is not verified"

	googleUsernameAttempts = 5
)

// AuthServiceConfig holds the settings that shape forgot-password responses.
type AuthServiceConfig struct {
	FrontendBaseURL string
	// DemoMode returns the reset link and raw token to the caller.
	DemoMode bool
}

// authService implements AuthSvcFacade on top of the credential store.
type authService struct {
	BaseService
	cfg      AuthServiceConfig
	userRepo portsrepo.UserRepositoryFacade
	hasher   portssvc.PasswordHasher
	tokens   portssvc.SessionTokenSvc
	resets   portssvc.ResetTokenSvc
	notifier portssvc.ResetNotifier

	dummyOnce sync.Once
	dummyHash string
}

// AuthServiceOption configures optional collaborators of the auth service.
type AuthServiceOption func(*authService)

// WithResetNotifier makes forgot-password deliver links through notifier.
func WithResetNotifier(notifier portssvc.ResetNotifier) AuthServiceOption {
	return func(s *authService) {
		s.notifier = notifier
	}
}

// WithAuthClock overrides the clock used for timestamps.
func WithAuthClock(clock Clock) AuthServiceOption {
	return func(s *authService) {
		s.clock = clock
	}
}

func NewAuthService(
	cfg AuthServiceConfig,
	userRepo portsrepo.UserRepositoryFacade,
	hasher portssvc.PasswordHasher,
	tokens portssvc.SessionTokenSvc,
	resets portssvc.ResetTokenSvc,
	opts ...AuthServiceOption,
) portssvc.AuthSvcFacade {
	s := &authService{
		cfg:      cfg,
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		resets:   resets,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

// validationMessage pulls the field message out of a utils.ValidationError.
func validationMessage(err error, fallback string) string {
	var vErr utils.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return fallback
}

// newPasswordMessage keeps the "New password" wording for short passwords and
// reports any other rule, such as the bcrypt length cap, by its own message.
func newPasswordMessage(password string, err error) string {
	if utf8.RuneCountInString(password) < utils.MinPasswordLen {
		return msgNewPasswordTooShort
	}
	return validationMessage(err, msgNewPasswordTooShort)
}

func (s *authService) internalError(ctx context.Context, err error, msg string, keyvals ...any) error {
	s.LogError(ctx, err, msg, keyvals...)
	return apperrors.NewInternalServerError(msg, err)
}

// conflictFor maps store uniqueness errors onto client-facing conflicts.
func conflictFor(err error, emailMsg string) error {
	switch {
	case errors.Is(err, apperrors.ErrEmailTaken):
		return apperrors.NewConflictError(emailMsg, err)
	case errors.Is(err, apperrors.ErrUsernameTaken):
		return apperrors.NewConflictError(msgUsernameTaken, err)
	}
	return nil
}

func (s *authService) Register(ctx context.Context, in portssvc.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, apperrors.NewValidationError(msgAllFieldsRequired)
	}

	// Public registration never grants elevated roles.
	if strings.TrimSpace(in.Role) != "" {
		if role, ok := domain.ParseRole(in.Role); !ok || role != domain.RoleUser {
			s.LogWarn(ctx, "Rejected registration with client-supplied role", slog.String("role", in.Role))
			return nil, apperrors.NewValidationError(msgRoleNotAllowed)
		}
	}

	if err := utils.ValidateUsername(username); err != nil {
		return nil, apperrors.NewValidationError(validationMessage(err, "Invalid username"))
	}
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperrors.NewValidationError(msgValidEmailRequired)
	}
	if err := utils.ValidateNewPassword(in.Password); err != nil {
		return nil, apperrors.NewValidationError(validationMessage(err, "Invalid password"))
	}

	// Fast path before paying for bcrypt; the store still enforces uniqueness.
	if _, err := s.userRepo.FindUserByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflictError(msgUserExists, apperrors.ErrEmailTaken)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.internalError(ctx, err, "Failed to check existing email")
	}
	if _, err := s.userRepo.FindUserByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflictError(msgUsernameTaken, apperrors.ErrUsernameTaken)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.internalError(ctx, err, "Failed to check existing username")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.internalError(ctx, err, "Failed to hash password")
	}

	now := s.Now()
	user := domain.User{
		UserID:       uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		AuditFields:  domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		if cErr := conflictFor(err, msgUserExists); cErr != nil {
			return nil, cErr
		}
		return nil, s.internalError(ctx, err, "Failed to save user")
	}

	s.LogInfo(ctx, "User registered", slog.String("user_id", user.UserID))
	return &user, nil
}

// verifyDummy spends a bcrypt comparison when the email is unknown so that
// response timing does not reveal which emails are registered.
func (s *authService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("not-a-real-password")
	})
	if s.dummyHash != "" {
		s.hasher.Verify(password, s.dummyHash)
	}
}

func invalidCredentials() error {
	return apperrors.NewAppError(http.StatusUnauthorized, msgInvalidCredentials, apperrors.ErrInvalidCredentials)
}

func (s *authService) issueLogin(ctx context.Context, user *domain.User) (*portssvc.LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(ctx, user.UserID, user.Role)
	if err != nil {
		return nil, s.internalError(ctx, err, "Failed to issue session token", slog.String("user_id", user.UserID))
	}
	return &portssvc.LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*portssvc.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError(msgAllFieldsRequired)
	}

	user, err := s.userRepo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.verifyDummy(password)
			s.LogInfo(ctx, "Login failed")
			return nil, invalidCredentials()
		}
		return nil, s.internalError(ctx, err, "Failed to look up user for login")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.LogInfo(ctx, "Login failed", slog.String("user_id", user.UserID))
		return nil, invalidCredentials()
	}

	return s.issueLogin(ctx, user)
}

func (s *authService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(msgUserNotFound)
		}
		return nil, s.internalError(ctx, err, "Failed to load user", slog.String("user_id", userID))
	}
	return user, nil
}

func (s *authService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.loadUser(ctx, userID)
}

func (s *authService) ChangeUsername(ctx context.Context, userID, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := utils.ValidateUsername(username); err != nil {
		return nil, apperrors.NewValidationError(validationMessage(err, "Invalid username"))
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindUserByUsername(ctx, username)
	switch {
	case err == nil && existing.UserID != userID:
		return nil, apperrors.NewConflictError(msgUsernameTaken, apperrors.ErrUsernameTaken)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, s.internalError(ctx, err, "Failed to check existing username")
	}

	now := s.Now()
	if err := s.userRepo.UpdateUsername(ctx, userID, username, now); err != nil {
		if cErr := conflictFor(err, msgEmailInUse); cErr != nil {
			return nil, cErr
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(msgUserNotFound)
		}
		return nil, s.internalError(ctx, err, "Failed to update username", slog.String("user_id", userID))
	}

	user.Username = username
	user.UpdatedAt = now
	return user, nil
}

func (s *authService) ChangeEmail(ctx context.Context, userID, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperrors.NewValidationError(msgValidEmailRequired)
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindUserByEmail(ctx, email)
	switch {
	case err == nil && existing.UserID != userID:
		return nil, apperrors.NewConflictError(msgEmailInUse, apperrors.ErrEmailTaken)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, s.internalError(ctx, err, "Failed to check existing email")
	}

	now := s.Now()
	if err := s.userRepo.UpdateEmail(ctx, userID, email, now); err != nil {
		if cErr := conflictFor(err, msgEmailInUse); cErr != nil {
			return nil, cErr
		}
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError(msgUserNotFound)
		}
		return nil, s.internalError(ctx, err, "Failed to update email", slog.String("user_id", userID))
	}

	user.Email = email
	user.UpdatedAt = now
	return user, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError(msgBothPasswords)
	}
	if err := utils.ValidateNewPassword(newPassword); err != nil {
		return apperrors.NewValidationError(newPasswordMessage(newPassword, err))
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperrors.NewAppError(http.StatusUnauthorized, msgCurrentPasswordBad, apperrors.ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.internalError(ctx, err, "Failed to hash password")
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, userID, hash, s.Now()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError(msgUserNotFound)
		}
		return s.internalError(ctx, err, "Failed to update password", slog.String("user_id", userID))
	}

	s.LogInfo(ctx, "Password changed", slog.String("user_id", userID))
	return nil
}

func (s *authService) resetLink(rawToken string) string {
	return fmt.Sprintf("%s/reset-password/%s", s.cfg.FrontendBaseURL, rawToken)
}

// ForgotPassword answers identically for known and unknown emails. Unknown
// emails get a decoy token that is never stored.
func (s *authService) ForgotPassword(ctx context.Context, email string) (*portssvc.ForgotPasswordResult, error) {
	email = domain.NormalizeEmail(email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperrors.NewValidationError(msgValidEmailRequired)
	}

	var rawToken string
	user, err := s.userRepo.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		rawToken, err = s.resets.CreateFor(ctx, user)
		if err != nil {
			return nil, s.internalError(ctx, err, "Failed to create reset token")
		}
		s.sendResetEmail(ctx, user, s.resetLink(rawToken))
	case errors.Is(err, apperrors.ErrNotFound):
		rawToken, err = utils.GenerateSecureRandomString(utils.ResetTokenBytes)
		if err != nil {
			return nil, s.internalError(ctx, err, "Failed to generate reset token")
		}
	default:
		return nil, s.internalError(ctx, err, "Failed to look up user for password reset")
	}

	result := &portssvc.ForgotPasswordResult{}
	if s.cfg.DemoMode {
		result.ResetLink = s.resetLink(rawToken)
		result.ResetToken = rawToken
	}
	return result, nil
}

// sendResetEmail never fails the request; delivery problems are only logged.
func (s *authService) sendResetEmail(ctx context.Context, user *domain.User, link string) {
	if s.notifier == nil || !s.notifier.IsEnabled() {
		return
	}
	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, user.Username, link); err != nil {
		s.LogError(ctx, err, "Failed to send password reset email", slog.String("user_id", user.UserID))
		return
	}
	s.LogInfo(ctx, "Password reset email sent", slog.String("user_id", user.UserID))
}

func (s *authService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return apperrors.NewValidationError(msgResetTokenRequired)
	}
	if err := utils.ValidateNewPassword(newPassword); err != nil {
		return apperrors.NewValidationError(newPasswordMessage(newPassword, err))
	}

	if _, err := s.resets.Consume(ctx, rawToken, newPassword); err != nil {
		if errors.Is(err, apperrors.ErrTokenInvalidOrExpired) {
			return apperrors.NewAppError(http.StatusBadRequest, msgTokenInvalid, err)
		}
		return s.internalError(ctx, err, "Failed to reset password")
	}
	return nil
}

// LoginWithGoogle signs in the owner of a verified Google email, creating
// the account on first use.
func (s *authService) LoginWithGoogle(ctx context.Context, info *domain.GoogleUserInfo) (*portssvc.LoginResult, error) {
	if info == nil || !info.EmailVerified {
		return nil, apperrors.NewUnauthorizedError(msgGoogleNotVerified)
	}
	email := domain.NormalizeEmail(info.Email)
	if err := utils.ValidateEmail(email); err != nil {
		return nil, apperrors.NewUnauthorizedError(msgGoogleNotVerified)
	}

	user, err := s.userRepo.FindUserByEmail(ctx, email)
	if err == nil {
		return s.issueLogin(ctx, user)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, s.internalError(ctx, err, "Failed to look up user for Google login")
	}

	user, err = s.createGoogleUser(ctx, email, info)
	if err != nil {
		return nil, err
	}
	return s.issueLogin(ctx, user)
}

func (s *authService) createGoogleUser(ctx context.Context, email string, info *domain.GoogleUserInfo) (*domain.User, error) {
	// The random password is never revealed, so password login stays unusable.
	randomPassword, err := utils.GenerateSecureRandomString(32)
	if err != nil {
		return nil, s.internalError(ctx, err, "Failed to generate password for Google user")
	}
	hash, err := s.hasher.Hash(randomPassword)
	if err != nil {
		return nil, s.internalError(ctx, err, "Failed to hash password for Google user")
	}

	base := utils.SanitizeUsername(strings.SplitN(email, "@", 2)[0])
	now := s.Now()
	for attempt := 0; attempt < googleUsernameAttempts; attempt++ {
		username := base
		if attempt > 0 {
			suffix, err := utils.GenerateSecureRandomString(2)
			if err != nil {
				return nil, s.internalError(ctx, err, "Failed to generate username suffix")
			}
			if len(username) > utils.MaxUsernameLen-len(suffix)-1 {
				username = username[:utils.MaxUsernameLen-len(suffix)-1]
			}
			username = username + "_" + suffix
		}

		user := domain.User{
			UserID:       uuid.NewString(),
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleUser,
			AuditFields:  domain.AuditFields{CreatedAt: now, UpdatedAt: now},
		}
		err := s.userRepo.SaveUser(ctx, user)
		switch {
		case err == nil:
			s.LogInfo(ctx, "User created from Google sign-in", slog.String("user_id", user.UserID))
			return &user, nil
		case errors.Is(err, apperrors.ErrUsernameTaken):
			continue
		case errors.Is(err, apperrors.ErrEmailTaken):
			// Lost a race with another sign-in for the same email.
			return s.userRepo.FindUserByEmail(ctx, email)
		default:
			return nil, s.internalError(ctx, err, "Failed to save Google user")
		}
	}
	return nil, apperrors.NewConflictError(msgUsernameTaken, apperrors.ErrUsernameTaken)
}
