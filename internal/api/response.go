package api

import (
	"encoding/json"
	"net/http"

	"github.com/AlmogShaul/bar-mitzva/internal/calendar"
)

// Response represents a standard API response.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, status int, message string, code ...string) error {
	errInfo := ErrorInfo{
		Message: message,
	}
	if len(code) > 0 {
		errInfo.Code = code[0]
	}

	return WriteJSON(w, status, Response{
		Success: false,
		Error:   &errInfo,
	})
}

// WriteFailure writes a failed resolution: invalid input is the caller's
// fault, a conversion failure is the calendar service's.
func WriteFailure(w http.ResponseWriter, f *calendar.Failure) error {
	status := http.StatusBadGateway
	if f.Kind == calendar.KindInvalidInput {
		status = http.StatusBadRequest
	}
	return WriteError(w, status, f.Message, string(f.Kind))
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusNotFound, message, "NOT_FOUND")
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadRequest, message, "BAD_REQUEST")
}

// WriteUnprocessable writes a 422 response for well-formed requests the
// service cannot act on.
func WriteUnprocessable(w http.ResponseWriter, message string, code string) error {
	return WriteError(w, http.StatusUnprocessableEntity, message, code)
}

// WriteBadGateway writes a 502 response for upstream failures.
func WriteBadGateway(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusBadGateway, message, "UPSTREAM_ERROR")
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusInternalServerError, message, "INTERNAL_ERROR")
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) error {
	return WriteError(w, http.StatusUnauthorized, message, "UNAUTHORIZED")
}
