package activity

import "errors"

// Sentinel errors for the activity service layer.
var (
	ErrNotFound        = errors.New("activity not found")
	ErrInvalidSubject  = errors.New("activity must reference exactly one lead or customer")
	ErrSubjectNotFound = errors.New("activity subject not found")
)
