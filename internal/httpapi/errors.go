package httpapi

import (
	"errors"
	"net/http"

	"github.com/tinoosan/journal/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "invalid") }

// mapError translates service errors into a status and stable code.
func mapError(err error) (status int, code string) {
	switch {
	case errors.Is(err, errs.ErrFieldTooLong):
		return http.StatusUnprocessableEntity, "field_too_long"
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "invalid"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// serviceErr writes err and records the outcome for op.
func (s *Server) serviceErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := mapError(err)
	observeOp(op, code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("entry operation failed", "op", op, "err", err, "path", r.URL.Path)
		msg = "internal error"
	}
	writeErr(w, status, msg, code)
}
