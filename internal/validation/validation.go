package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	clockRegex = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRequired rejects blank values
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateClock checks an optional zero-padded HH:MM time of day. Padding is
// required because start times are ordered as strings.
func ValidateClock(field, value string) error {
	if value == "" {
		return nil
	}
	if !clockRegex.MatchString(value) {
		return ValidationError{Field: field, Message: "time must be HH:MM"}
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return ValidationError{Field: field, Message: "time must be HH:MM"}
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD date, optionally followed by a time part
func ValidateDate(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	day, _, _ := strings.Cut(value, "T")
	if _, err := time.Parse(time.DateOnly, day); err != nil {
		return ValidationError{Field: field, Message: "date must be YYYY-MM-DD"}
	}
	return nil
}
