package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a message for staff.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the status line is already sent; nothing left to report to.
	json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// badRequest rejects input that never reached the service layer
// (e.g. a malformed path ID or query parameter).
func badRequest(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, "bad_request", message)
}

// requestError rejects a missing or malformed body. A body over the
// configured size limit gets 413.
func requestError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErrorBody(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body is too large")
		return
	}
	writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "request body must be a JSON object: "+err.Error())
}

// writeError maps a service error onto a status and error code.
// notFound is the message used for domain.ErrNotFound, since the handler
// knows what was being looked up.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrGuestArchived):
		writeErrorBody(w, http.StatusConflict, "guest_archived", "guest is archived; restore the guest before checking in")
	case errors.Is(err, domain.ErrVisitExists), errors.Is(err, domain.ErrDuplicateLicense):
		writeErrorBody(w, http.StatusConflict, "conflict", unwrapMessage(err, nil))
	default:
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.CheckinService.CheckIn: validation error: campus is required" -> "campus is required".
// Without a sentinel the layer prefixes ("service.X.Method: ") are dropped.
func unwrapMessage(err error, sentinel error) string {
	msg := err.Error()
	if sentinel != nil {
		marker := sentinel.Error() + ": "
		if i := strings.LastIndex(msg, marker); i >= 0 {
			return msg[i+len(marker):]
		}
		return msg
	}
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
