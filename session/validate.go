package session

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ferreye/storecore/coreerrors"
)

// emailPattern accepts the usual local@domain.tld shape. Deliverability is
// the backend's problem; this only rejects obviously malformed input before
// a network call is spent on it.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateEmail(email string) *coreerrors.ValidationError {
	email = strings.TrimSpace(email)
	if email == "" {
		return coreerrors.NewValidation("email", "required")
	}
	if !emailPattern.MatchString(email) {
		return coreerrors.NewValidation("email", "malformed")
	}
	return nil
}

func validatePassword(password string, minLength int) *coreerrors.ValidationError {
	if len(password) < minLength {
		return coreerrors.NewValidation("password", "too short")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return coreerrors.NewValidation("password", "must contain a letter and a digit")
	}
	return nil
}

func validateDisplayName(name string) *coreerrors.ValidationError {
	name = strings.TrimSpace(name)
	if name == "" {
		return coreerrors.NewValidation("name", "required")
	}
	if len(name) > 100 {
		return coreerrors.NewValidation("name", "too long")
	}
	return nil
}
