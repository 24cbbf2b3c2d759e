package mapping

import (
	"database/sql"

	"github.com/SscSPs/shope_lite/internal/core/domain"
	"github.com/SscSPs/shope_lite/internal/models"
)

// ToModelUser converts a domain User to a model User
func ToModelUser(d domain.User) models.User {
	m := models.User{
		UserID:       d.UserID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         string(d.Role),
		AuditFields:  ToModelAuditFields(d.AuditFields),
		DeletedAt:    d.DeletedAt,
	}
	if d.ResetTokenHash != nil && d.ResetTokenExpiresAt != nil {
		m.ResetTokenHash = sql.NullString{String: *d.ResetTokenHash, Valid: true}
		m.ResetTokenExpiresAt = sql.NullTime{Time: *d.ResetTokenExpiresAt, Valid: true}
	}
	return m
}

// ToDomainUser converts a model User to a domain User
func ToDomainUser(m models.User) domain.User {
	d := domain.User{
		UserID:       m.UserID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		AuditFields:  ToDomainAuditFields(m.AuditFields),
		DeletedAt:    m.DeletedAt,
	}
	// a half-populated pair is treated as no pending reset
	if m.ResetTokenHash.Valid && m.ResetTokenExpiresAt.Valid {
		hash := m.ResetTokenHash.String
		expiresAt := m.ResetTokenExpiresAt.Time
		d.ResetTokenHash = &hash
		d.ResetTokenExpiresAt = &expiresAt
	}
	return d
}
