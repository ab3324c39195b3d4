package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ignite/leadbook/internal/domain"
	"github.com/ignite/leadbook/internal/pkg/httputil"
	"github.com/ignite/leadbook/internal/pkg/logger"
	"github.com/ignite/leadbook/internal/service/activity"
	"github.com/ignite/leadbook/internal/service/customer"
	"github.com/ignite/leadbook/internal/service/lead"
	"github.com/ignite/leadbook/internal/transfer"
)

// respondError translates a service error into an HTTP response. Internal
// errors are logged in full and answered with a generic message.
func respondError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, lead.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, activity.ErrNotFound),
		errors.Is(err, activity.ErrSubjectNotFound):
		httputil.NotFound(w, err.Error())

	case errors.As(err, &verr):
		httputil.Fail(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: verr.Error(),
			Code:  "validation",
			Field: verr.Field,
		})

	case errors.Is(err, activity.ErrInvalidSubject):
		httputil.Fail(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error(), Code: "validation"})

	case errors.Is(err, lead.ErrDuplicateRef):
		httputil.Conflict(w, err.Error())

	case errors.Is(err, transfer.ErrMissingColumn),
		errors.Is(err, transfer.ErrEmptyFile),
		errors.Is(err, transfer.ErrUnsupportedFormat),
		errors.Is(err, transfer.ErrTooManyRows),
		errors.Is(err, transfer.ErrInvalidFile),
		errors.Is(err, transfer.ErrUnknownEncoding):
		httputil.Unprocessable(w, err.Error())

	default:
		respondSafeError(w, http.StatusInternalServerError, err)
	}
}

// respondSafeError logs the full internal error and sends a sanitized
// JSON error response to the client.
func respondSafeError(w http.ResponseWriter, code int, internalErr error) {
	msg := safeErrorMessage(internalErr)
	if internalErr != nil {
		logger.Error("request failed", "status", code, "public", msg, "error", internalErr.Error())
	}
	httputil.Fail(w, code, httputil.ErrorResponse{Error: msg, Code: "internal"})
}

// safeErrorMessage maps common internal error patterns to public-safe
// messages.
func safeErrorMessage(internalErr error) string {
	if internalErr == nil {
		return "An internal error occurred"
	}

	errStr := strings.ToLower(internalErr.Error())

	switch {
	case strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context canceled") ||
		strings.Contains(errStr, "timeout"):
		return "Request timed out"

	case strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "sqlite_busy"):
		return "The database is busy, try again"

	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp"):
		return "Service temporarily unavailable"

	case strings.Contains(errStr, "sql") ||
		strings.Contains(errStr, "pq:") ||
		strings.Contains(errStr, "scan") ||
		strings.Contains(errStr, "database"):
		return "A database error occurred"

	case strings.Contains(errStr, "s3") ||
		strings.Contains(errStr, "archive"):
		return "The export archive is unavailable"

	default:
		return "An internal error occurred"
	}
}
