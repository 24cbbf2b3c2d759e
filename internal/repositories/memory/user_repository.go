// Package memory provides an in-process Credential Store. It is used by tests
// and when the server runs without a database URL.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portsrepo "github.com/SscSPs/shope_lite/internal/core/ports/repositories"
	"github.com/SscSPs/shope_lite/internal/utils/pagination"
)

// UserRepository keeps users in a map guarded by a single mutex, which makes
// every method, including ConsumeResetToken, atomic.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.User)}
}

// NewRepositoryProvider returns a provider backed entirely by memory.
func NewRepositoryProvider() portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{UserRepo: NewUserRepository()}
}

var _ portsrepo.UserRepositoryFacade = (*UserRepository)(nil)

func clone(u domain.User) *domain.User {
	c := u
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		c.ResetTokenHash = &h
	}
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &t
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func (r *UserRepository) findLocked(match func(domain.User) bool) (domain.User, bool) {
	for _, u := range r.users {
		if u.DeletedAt == nil && match(u) {
			return u, true
		}
	}
	return domain.User{}, false
}

func (r *UserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.findLocked(match)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.UserID == userID })
}

func (r *UserRepository) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *UserRepository) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

// before orders users by (created_at, user_id).
func before(aCreated time.Time, aID string, bCreated time.Time, bID string) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.Before(bCreated)
	}
	return aID < bID
}

func (r *UserRepository) FindUsers(_ context.Context, limit int, after *pagination.Cursor) ([]domain.User, error) {
	limit = pagination.ClampLimit(limit)

	r.mu.RLock()
	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		if u.DeletedAt == nil {
			all = append(all, *clone(u))
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return before(all[i].CreatedAt, all[i].UserID, all[j].CreatedAt, all[j].UserID)
	})

	out := []domain.User{}
	for _, u := range all {
		if after != nil && !before(after.CreatedAt, after.UserID, u.CreatedAt, u.UserID) {
			continue
		}
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// conflictLocked reports a uniqueness clash with any user other than selfID.
func (r *UserRepository) conflictLocked(selfID, email, username string) error {
	for _, u := range r.users {
		if u.UserID == selfID {
			continue
		}
		if email != "" && u.Email == email {
			return apperrors.ErrEmailTaken
		}
		if username != "" && u.DeletedAt == nil && strings.EqualFold(u.Username, username) {
			return apperrors.ErrUsernameTaken
		}
	}
	return nil
}

func (r *UserRepository) SaveUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.UserID]; exists {
		return fmt.Errorf("save user %s: %w", user.UserID, apperrors.ErrDuplicate)
	}
	if err := r.conflictLocked(user.UserID, user.Email, user.Username); err != nil {
		return err
	}
	r.users[user.UserID] = *clone(user)
	return nil
}

// update applies fn to a live user under the write lock.
func (r *UserRepository) update(userID string, updatedAt time.Time, fn func(u *domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.DeletedAt != nil {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	if err := fn(&u); err != nil {
		return err
	}
	u.UpdatedAt = updatedAt
	r.users[userID] = u
	return nil
}

func (r *UserRepository) UpdateUsername(_ context.Context, userID, username string, updatedAt time.Time) error {
	return r.update(userID, updatedAt, func(u *domain.User) error {
		if err := r.conflictLocked(userID, "", username); err != nil {
			return err
		}
		u.Username = username
		return nil
	})
}

func (r *UserRepository) UpdateEmail(_ context.Context, userID, email string, updatedAt time.Time) error {
	return r.update(userID, updatedAt, func(u *domain.User) error {
		if err := r.conflictLocked(userID, email, ""); err != nil {
			return err
		}
		u.Email = email
		return nil
	})
}

func (r *UserRepository) UpdatePasswordHash(_ context.Context, userID, passwordHash string, updatedAt time.Time) error {
	return r.update(userID, updatedAt, func(u *domain.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (r *UserRepository) UpdateRole(_ context.Context, userID string, role domain.Role, updatedAt time.Time) error {
	return r.update(userID, updatedAt, func(u *domain.User) error {
		u.Role = role
		return nil
	})
}

func (r *UserRepository) SetResetToken(_ context.Context, userID, tokenHash string, expiresAt, updatedAt time.Time) error {
	return r.update(userID, updatedAt, func(u *domain.User) error {
		u.ResetTokenHash = &tokenHash
		u.ResetTokenExpiresAt = &expiresAt
		return nil
	})
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, tokenHash, newPasswordHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.findLocked(func(u domain.User) bool {
		return u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash && u.HasPendingReset(now)
	})
	if !ok {
		return nil, apperrors.ErrTokenInvalidOrExpired
	}

	u.PasswordHash = newPasswordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	u.UpdatedAt = now
	r.users[u.UserID] = u
	return clone(u), nil
}

// Len returns the number of stored users, deleted or not.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
