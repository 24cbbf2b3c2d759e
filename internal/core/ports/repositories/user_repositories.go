package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/shope_lite/internal/core/domain"
	"github.com/SscSPs/shope_lite/internal/utils/pagination"
)

// UserReader defines read operations for user data.
// All finders return apperrors.ErrNotFound when no live user matches.
type UserReader interface {
	// FindUserByID retrieves a specific user by their ID.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by normalized email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByUsername retrieves a user by username, ignoring case.
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindUsers retrieves up to limit users ordered by (created_at, user_id),
	// starting after the given cursor when it is non-nil.
	FindUsers(ctx context.Context, limit int, after *pagination.Cursor) ([]domain.User, error)
}

// UserWriter defines write operations for user data.
// Uniqueness violations surface as apperrors.ErrEmailTaken or apperrors.ErrUsernameTaken.
type UserWriter interface {
	// SaveUser persists a new user.
	SaveUser(ctx context.Context, user domain.User) error

	UpdateUsername(ctx context.Context, userID, username string, updatedAt time.Time) error
	UpdateEmail(ctx context.Context, userID, email string, updatedAt time.Time) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
	UpdateRole(ctx context.Context, userID string, role domain.Role, updatedAt time.Time) error
}

// ResetTokenStore defines the hash-at-rest password reset operations.
type ResetTokenStore interface {
	// SetResetToken stores a new reset token hash, replacing any pending one.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt, updatedAt time.Time) error

	// ConsumeResetToken atomically matches an unexpired token hash, sets the new
	// password hash and clears the token. Exactly one concurrent caller can win;
	// all others get apperrors.ErrTokenInvalidOrExpired.
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*domain.User, error)
}

// UserRepositoryFacade combines all user-related repository interfaces
// This is a facade for clients that need access to all operations
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	ResetTokenStore
}
