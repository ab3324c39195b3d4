package lead

import "errors"

// Sentinel errors for the lead service layer. Field validation failures
// are *domain.ValidationError and match domain.ErrValidation.
var (
	ErrNotFound     = errors.New("lead not found")
	ErrDuplicateRef = errors.New("reference number already exists")
)
