package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxIdentityLength bounds identities accepted from callers
const MaxIdentityLength = 254

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	controlRegex = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
)

// IsEmail reports whether s is a bare e-mail address
func IsEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !IsEmail(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateIdentity checks an actor or approver identity
func ValidateIdentity(identity string) error {
	switch {
	case strings.TrimSpace(identity) == "":
		return fmt.Errorf("identity is required")
	case identity != strings.TrimSpace(identity):
		return fmt.Errorf("identity has surrounding whitespace: %q", identity)
	case utf8.RuneCountInString(identity) > MaxIdentityLength:
		return fmt.Errorf("identity exceeds %d characters", MaxIdentityLength)
	case controlRegex.MatchString(identity) || strings.ContainsAny(identity, "\t\n"):
		return fmt.Errorf("identity contains control characters")
	}
	return nil
}

// SanitizeString removes control characters other than tab and newline
func SanitizeString(s string) string {
	return controlRegex.ReplaceAllString(s, "")
}
