// Package validation normalises and validates user-supplied input.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinEmailLength    = 6
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt input limit
	MaxBodyLength     = 280
	MaxBioLength      = 160
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.]+$`)

// ValidateEmail lowercases and trims email and checks its shape.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("Email is required")
	}
	if len(email) < MinEmailLength {
		return "", errors.New("Email must be at least 6 characters long")
	}
	if !strings.Contains(email, "@") {
		return "", errors.New("Email is formatted incorrectly")
	}
	return email, nil
}

// ValidateUsername lowercases and trims username and checks the allowed alphabet.
func ValidateUsername(username string) (string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return "", errors.New("Username is required")
	}
	if len(username) < MinUsernameLength {
		return "", errors.New("Username must be at least 3 characters long")
	}
	if len(username) > MaxUsernameLength {
		return "", errors.New("Username must be at most 30 characters long")
	}
	if !usernameRegex.MatchString(username) {
		return "", errors.New("Username can only include letters, numbers, underscores and periods")
	}
	return username, nil
}

// ValidatePassword checks password length. Passwords are never trimmed.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("Password is required")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return errors.New("Password needs to be at least 8 characters long")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("Password must be at most 72 bytes long")
	}
	return nil
}

// Registration validates a signup form, returning normalised values and
// a field-keyed error map that is empty when the input is valid.
func Registration(email, username, password string) (string, string, map[string]string) {
	fields := map[string]string{}

	normEmail, err := ValidateEmail(email)
	if err != nil {
		fields["email"] = err.Error()
	}
	normUsername, err := ValidateUsername(username)
	if err != nil {
		fields["username"] = err.Error()
	}
	if err := ValidatePassword(password); err != nil {
		fields["password"] = err.Error()
	}
	return normEmail, normUsername, fields
}
