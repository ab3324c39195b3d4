package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a *ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ValidEmail reports whether v is empty or parses as a bare address.
func ValidEmail(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	a, err := mail.ParseAddress(v)
	return err == nil && a.Address == v
}

// DateLayout is the stored form of preferred dates.
const DateLayout = "2006-01-02"

// ValidDate reports whether v is empty or a YYYY-MM-DD date.
func ValidDate(v string) bool {
	if v == "" {
		return true
	}
	_, err := time.Parse(DateLayout, v)
	return err == nil
}

// ValidClock reports whether v is empty or an HH:MM[:SS] time of day.
func ValidClock(v string) bool {
	if v == "" {
		return true
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
