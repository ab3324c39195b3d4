package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/leadbook/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "error", err.Error())
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes a JSON error response. Use for client errors (4xx).
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// Fail writes a JSON error response carrying a machine-readable code.
func Fail(w http.ResponseWriter, status int, resp ErrorResponse) {
	JSON(w, status, resp)
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Fail(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: "bad_request"})
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Fail(w, http.StatusNotFound, ErrorResponse{Error: message, Code: "not_found"})
}

// Conflict writes a 409 error.
func Conflict(w http.ResponseWriter, message string) {
	Fail(w, http.StatusConflict, ErrorResponse{Error: message, Code: "conflict"})
}

// Unprocessable writes a 422 error for well-formed requests whose payload
// cannot be used, such as an upload without a name column.
func Unprocessable(w http.ResponseWriter, message string) {
	Fail(w, http.StatusUnprocessableEntity, ErrorResponse{Error: message, Code: "unprocessable"})
}

// InternalError writes a 500 error. Logs the real error but returns a
// generic message to the client.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("internal error", "error", err.Error())
	Fail(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal"})
}

// Decode reads JSON from the request body into dst, rejecting unknown
// fields. Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
