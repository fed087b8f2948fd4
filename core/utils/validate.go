package utils

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrWeakPassword    = errors.New("weak password")
	ErrInvalidEmail    = errors.New("invalid email")
)

const (
	PasswordMinLength = 12
	PasswordMaxLength = 128
)

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,31}$`)

// passwordRules run in order; the first failing rule names the problem.
var passwordRules = []struct {
	msg string
	ok  func(string) bool
}{
	{"must not contain whitespace", func(s string) bool { return !strings.ContainsFunc(s, unicode.IsSpace) }},
	{"needs an uppercase letter", func(s string) bool { return strings.ContainsFunc(s, unicode.IsUpper) }},
	{"needs a lowercase letter", func(s string) bool { return strings.ContainsFunc(s, unicode.IsLower) }},
	{"needs a digit", func(s string) bool { return strings.ContainsFunc(s, unicode.IsDigit) }},
	{"needs a symbol", func(s string) bool {
		return strings.ContainsFunc(s, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) })
	}},
}

// ValidateUsername expects an already lowercased login name.
func ValidateUsername(s string) error {
	if !usernameRe.MatchString(s) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(s string) error {
	switch n := len(s); {
	case n < PasswordMinLength:
		return fmt.Errorf("%w: at least %d characters", ErrWeakPassword, PasswordMinLength)
	case n > PasswordMaxLength:
		return fmt.Errorf("%w: at most %d characters", ErrWeakPassword, PasswordMaxLength)
	}
	for _, rule := range passwordRules {
		if !rule.ok(s) {
			return fmt.Errorf("%w: %s", ErrWeakPassword, rule.msg)
		}
	}
	return nil
}

// NormalizeEmail lowercases and checks a bare address. Empty input is allowed.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}
