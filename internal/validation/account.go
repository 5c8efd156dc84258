package validation

import (
	"errors"
	"strings"
)

var commonPasswordPatterns = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
	"foodrescue",
}

// ValidateEmail checks length (RFC 5321: 254 max) and address format.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}
	if len(email) > 254 {
		return errors.New("email address is too long (max 254 characters)")
	}
	if validate.Var(email, "email") != nil {
		return errors.New("invalid email address format")
	}
	return nil
}

// ValidateName checks the display name of a restaurant or shelter.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("name is required")
	}
	if validate.Var(trimmed, "max=100") != nil {
		return errors.New("name is too long (max 100 characters)")
	}
	return nil
}

// ValidatePassword enforces a 12 character minimum and blocks common patterns.
// bcrypt ignores everything past 72 bytes, so longer passwords are rejected.
func ValidatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPasswordPatterns {
		if strings.Contains(lower, pattern) {
			return errors.New("password is too common, please choose a stronger one")
		}
	}

	return nil
}
