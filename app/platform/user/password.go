package user

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrWeakPassword marks a password rejected by the strength policy.
var ErrWeakPassword = errors.New("password does not meet requirements")

const minPasswordLength = 8

const specialChars = `!@#$%^&*(),.?":{}|<>`

// Matched case-insensitively against the whole password.
var commonPasswords = []string{
	"password", "123456", "123456789", "qwerty", "abc123",
	"password123", "admin", "letmein", "welcome", "monkey",
	"1234567890", "password1", "qwerty123", "dragon", "master",
}

// ValidatePasswordStrength checks the shared password policy: minimum length,
// uppercase, lowercase, digit, special character, and a deny-list of common
// passwords. Pure function, shared by registration, change, and reset.
func ValidatePasswordStrength(password string) error {
	var problems []string

	if len(password) < minPasswordLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters long", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}

	if !hasUpper {
		problems = append(problems, "must contain at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "must contain at least one digit")
	}
	if !hasSpecial {
		problems = append(problems, "must contain at least one special character")
	}

	lowered := strings.ToLower(password)
	for _, common := range commonPasswords {
		if lowered == common {
			problems = append(problems, "is too common")
			break
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrWeakPassword, strings.Join(problems, ", "))
	}
	return nil
}
