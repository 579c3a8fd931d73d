// Package validation holds input validation rules for user-supplied fields.
package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const (
	PasswordMinLength = 12
	PasswordMaxLength = 128
	UsernameMinLength = 3
	UsernameMaxLength = 30
	EmailMaxLength    = 254
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$`)

// ValidatePassword enforces length and character class requirements.
func ValidatePassword(password string) error {
	runes := []rune(password)
	if len(runes) < PasswordMinLength {
		return fmt.Errorf("password must be at least %d characters", PasswordMinLength)
	}
	if len(runes) > PasswordMaxLength {
		return fmt.Errorf("password must be at most %d characters", PasswordMaxLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("password must contain an uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain a lowercase letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain a digit")
	}
	if !hasSpecial {
		return fmt.Errorf("password must contain a special character")
	}
	return nil
}

// ValidateUsername enforces length and allowed characters. Usernames start
// and end with an alphanumeric character.
func ValidateUsername(username string) error {
	if len(username) < UsernameMinLength {
		return fmt.Errorf("username must be at least %d characters", UsernameMinLength)
	}
	if len(username) > UsernameMaxLength {
		return fmt.Errorf("username must be at most %d characters", UsernameMaxLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain letters, numbers, underscores and dashes, and must start and end with a letter or number")
	}
	return nil
}

// ValidateEmail checks RFC 5322 shape and overall length.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > EmailMaxLength {
		return fmt.Errorf("email must be at most %d characters", EmailMaxLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	if !strings.Contains(strings.SplitN(email, "@", 2)[1], ".") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
