package customer

import "errors"

// ErrNotFound is returned when no customer has the requested id.
var ErrNotFound = errors.New("customer not found")
