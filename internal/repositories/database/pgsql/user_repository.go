package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/shope_lite/internal/apperrors"
	"github.com/SscSPs/shope_lite/internal/core/domain"
	portsrepo "github.com/SscSPs/shope_lite/internal/core/ports/repositories"
	"github.com/SscSPs/shope_lite/internal/models"
	"github.com/SscSPs/shope_lite/internal/utils/mapping"
	"github.com/SscSPs/shope_lite/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"

	// Constraint names from migrations/000001_create_users.up.sql
	constraintEmailUnique    = "users_email_key"
	constraintUsernameUnique = "users_username_lower_key"
)

const userColumns = `user_id, username, email, password_hash, role,
	reset_token_hash, reset_token_expires_at, created_at, updated_at, deleted_at`

type PgxUserRepository struct {
	BaseRepository
}

func newPgxUserRepository(db *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{BaseRepository: BaseRepository{Pool: db}}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var (
	_ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)
	_ portsrepo.TransactionManager   = (*PgxUserRepository)(nil)
)

func scanUser(row pgx.Row) (*domain.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID,
		&m.Username,
		&m.Email,
		&m.PasswordHash,
		&m.Role,
		&m.ResetTokenHash,
		&m.ResetTokenExpiresAt,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	d := mapping.ToDomainUser(m)
	return &d, nil
}

// mapWriteError translates unique violations into the matching domain error.
func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintEmailUnique:
			return apperrors.ErrEmailTaken
		case constraintUsernameUnique:
			return apperrors.ErrUsernameTaken
		default:
			return fmt.Errorf("%s: %w", op, apperrors.ErrDuplicate)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (r *PgxUserRepository) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` AND deleted_at IS NULL;`
	user, err := scanUser(r.Pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, "user_id = $1", userID)
}

func (r *PgxUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *PgxUserRepository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "lower(username) = lower($1)", username)
}

func (r *PgxUserRepository) FindUsers(ctx context.Context, limit int, after *pagination.Cursor) ([]domain.User, error) {
	limit = pagination.ClampLimit(limit)

	var (
		rows pgx.Rows
		err  error
	)
	if after == nil {
		query := `SELECT ` + userColumns + ` FROM users
			WHERE deleted_at IS NULL
			ORDER BY created_at, user_id
			LIMIT $1;`
		rows, err = r.Pool.Query(ctx, query, limit)
	} else {
		query := `SELECT ` + userColumns + ` FROM users
			WHERE deleted_at IS NULL AND (created_at, user_id) > ($1, $2)
			ORDER BY created_at, user_id
			LIMIT $3;`
		rows, err = r.Pool.Query(ctx, query, after.CreatedAt, after.UserID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", rows.Err())
	}
	return users, nil
}

func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	query := `
		INSERT INTO users (user_id, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.UserID,
		m.Username,
		m.Email,
		m.PasswordHash,
		m.Role,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "save user")
	}
	return nil
}

func (r *PgxUserRepository) updateColumn(ctx context.Context, column, userID string, value any, updatedAt time.Time) error {
	query := `UPDATE users SET ` + column + ` = $1, updated_at = $2 WHERE user_id = $3 AND deleted_at IS NULL;`
	cmdTag, err := r.Pool.Exec(ctx, query, value, updatedAt, userID)
	if err != nil {
		return mapWriteError(err, "update "+column)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *PgxUserRepository) UpdateUsername(ctx context.Context, userID, username string, updatedAt time.Time) error {
	return r.updateColumn(ctx, "username", userID, username, updatedAt)
}

func (r *PgxUserRepository) UpdateEmail(ctx context.Context, userID, email string, updatedAt time.Time) error {
	return r.updateColumn(ctx, "email", userID, email, updatedAt)
}

func (r *PgxUserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	return r.updateColumn(ctx, "password_hash", userID, passwordHash, updatedAt)
}

func (r *PgxUserRepository) UpdateRole(ctx context.Context, userID string, role domain.Role, updatedAt time.Time) error {
	return r.updateColumn(ctx, "role", userID, string(role), updatedAt)
}

func (r *PgxUserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt, updatedAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = $3
		WHERE user_id = $4 AND deleted_at IS NULL;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, tokenHash, expiresAt, updatedAt, userID)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	return nil
}

// ConsumeResetToken locks the matching row, so a concurrent consumer blocks and
// then re-evaluates the predicate against the cleared token.
func (r *PgxUserRepository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (_ *domain.User, err error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = r.Rollback(ctx, tx)
		}
	}()

	selectQuery := `SELECT ` + userColumns + ` FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2 AND deleted_at IS NULL
		FOR UPDATE;`
	user, err := scanUser(tx.QueryRow(ctx, selectQuery, tokenHash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTokenInvalidOrExpired
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}

	updateQuery := `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		WHERE user_id = $3;
	`
	if _, err = tx.Exec(ctx, updateQuery, newPasswordHash, now, user.UserID); err != nil {
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}
	if err = r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	user.PasswordHash = newPasswordHash
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	user.UpdatedAt = now
	return user, nil
}
