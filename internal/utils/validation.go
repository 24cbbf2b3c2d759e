package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinUsernameLen    = 3
	MaxUsernameLen    = 20
	MinPasswordLen    = 6
	maxEmailLen       = 254
	maxPasswordLength = 72 // bcrypt ignores input past 72 bytes
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidationError represents a validation failure on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidUsername reports whether username matches the length and charset rules.
func IsValidUsername(username string) bool {
	return ValidateUsername(username) == nil
}

// ValidateUsername checks an already trimmed username.
func ValidateUsername(username string) error {
	if username == "" {
		return ValidationError{Field: "username", Message: "Username is required"}
	}
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLen || n > MaxUsernameLen {
		return ValidationError{Field: "username", Message: fmt.Sprintf("Username must be %d to %d characters", MinUsernameLen, MaxUsernameLen)}
	}
	if !usernamePattern.MatchString(username) {
		return ValidationError{Field: "username", Message: "Username can contain only letters, numbers, and underscore"}
	}
	return nil
}

// ValidateEmail checks an already normalized email against a basic shape.
func ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return ValidationError{Field: "email", Message: "Valid email required"}
	}
	return nil
}

// ValidateNewPassword checks the minimum password policy.
func ValidateNewPassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "Password is required"}
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLen)}
	}
	if len(password) > maxPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at most %d bytes", maxPasswordLength)}
	}
	return nil
}

// SanitizeUsername derives a valid username candidate from free text such as an
// email local part. The result may still collide with an existing user.
func SanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '+':
			b.WriteRune('_')
		}
	}
	s := b.String()
	if len(s) > MaxUsernameLen {
		s = s[:MaxUsernameLen]
	}
	for len(s) < MinUsernameLen {
		s += "_"
	}
	return s
}
