package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const MinPasswordLength = 6

var (
	emailRegex = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)
	// Optional +/00 prefix, optional 354 country code, then 3+4 digits.
	icelandicPhoneRegex = regexp.MustCompile(`^(?:\+|00)?(354)?(?:[\s-])*\d{3}(?:[\s-])*\d{4}$`)
	digitRegex          = regexp.MustCompile(`[0-9]`)
	upperRegex          = regexp.MustCompile(`[A-Z]`)
)

// Accepted date of birth layouts, tried in order.
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidEmail reports whether s looks like local@domain.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// IsIcelandicPhoneNumber reports whether s is an Icelandic phone number,
// e.g. "+354 123 4567", "00354-1234567" or "123 4567".
func IsIcelandicPhoneNumber(s string) bool {
	return icelandicPhoneRegex.MatchString(s)
}

// ParseDate parses a date of birth in one of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupFields holds the user supplied values checked by ValidateSignup.
// Empty strings mean "not provided".
type SignupFields struct {
	Email       string
	Password    string
	NewPassword string
	Name        string
	DateOfBirth string
	Phone       string
}

// ValidateSignup applies the signup rules in order and returns the first
// failing rule as a *ValidationError, or nil when every rule passes.
func ValidateSignup(f SignupFields) error {
	if f.Email == "" || f.Password == "" || f.Name == "" {
		return &ValidationError{Field: "", Message: "You must provide name, email and password"}
	}

	if !IsValidEmail(f.Email) {
		return &ValidationError{Field: "email", Message: fmt.Sprintf("%s is not a valid email", f.Email)}
	}

	if msg := checkPassword(f.Password, ""); msg != "" {
		return &ValidationError{Field: "password", Message: msg}
	}

	if f.NewPassword != "" {
		if msg := checkPassword(f.NewPassword, "New password"); msg != "" {
			return &ValidationError{Field: "newPassword", Message: msg}
		}
	}

	if digitRegex.MatchString(f.Name) || len(strings.Fields(f.Name)) < 2 {
		return &ValidationError{Field: "name", Message: "Name has aleast two 2 names consisting of letters"}
	}

	if f.DateOfBirth != "" {
		if _, err := ParseDate(f.DateOfBirth); err != nil {
			return &ValidationError{Field: "dateOfBirth", Message: "Date is not in valid format. Try DD.MM.YYYY"}
		}
	}

	if f.Phone != "" && !IsIcelandicPhoneNumber(f.Phone) {
		return &ValidationError{Field: "phone", Message: "Phone number is not a valid Icelandic phone number"}
	}

	return nil
}

// ValidatePassword checks the length and composition rules on their own.
func ValidatePassword(password string) error {
	if msg := checkPassword(password, ""); msg != "" {
		return &ValidationError{Field: "password", Message: msg}
	}
	return nil
}

func checkPassword(password, label string) string {
	if label == "" {
		label = "Password"
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Sprintf("%s must be of minimum length %d characters", label, MinPasswordLength)
	}
	if !digitRegex.MatchString(password) || !upperRegex.MatchString(password) {
		return label + " must contain at least one number (0-9) and one uppercase letter (A-Z)"
	}
	return ""
}
