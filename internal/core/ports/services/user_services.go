package services

import (
	"context"

	"github.com/SscSPs/shope_lite/internal/core/domain"
)

// UserPage is one page of users with the token for the next page, if any.
type UserPage struct {
	Users     []domain.User
	NextToken string
}

// UserReaderSvc defines read operations for user data
type UserReaderSvc interface {
	// ListUsers retrieves a page of users in creation order.
	ListUsers(ctx context.Context, limit int, nextToken string) (*UserPage, error)
}

// UserAdminSvc defines privileged user management.
type UserAdminSvc interface {
	// SetRole changes the role of the user with the given email.
	SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error)
}

// UserSvcFacade combines all user-related service interfaces
type UserSvcFacade interface {
	UserReaderSvc
	UserAdminSvc
}
