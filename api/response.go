package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/validate"
)

// errBadRequest marks a body or query that could not be decoded.
var errBadRequest = errors.New("pandda/api: bad request")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string              `json:"error"`
	Violation *validate.Violation `json:"violation,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, pandda.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case pandda.IsValidation(err):
		return http.StatusUnprocessableEntity
	case pandda.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, pandda.ErrForbidden), errors.Is(err, pandda.ErrSelfAction):
		return http.StatusForbidden
	case errors.Is(err, pandda.ErrLockTimeout), errors.Is(err, pandda.ErrAlreadyExists),
		errors.Is(err, pandda.ErrServerInUse), errors.Is(err, pandda.ErrAppInUse), errors.Is(err, pandda.ErrPlanInUse):
		return http.StatusConflict
	case errors.Is(err, pandda.ErrFatalInconsistency):
		return http.StatusInternalServerError
	case errors.Is(err, pandda.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := ErrorBody{RequestID: RequestIDFrom(r.Context())}

	switch status {
	case http.StatusBadRequest:
		body.Error = err.Error()
	case http.StatusUnauthorized:
		body.Error = "authentication required"
		if errors.Is(err, pandda.ErrInvalidCredentials) {
			body.Error = pandda.UserMessage(err)
		}
	default:
		body.Error = pandda.UserMessage(err)
	}

	var ve *pandda.ValidationError
	if errors.As(err, &ve) {
		body.Violation = &ve.Violation
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", body.RequestID,
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
	}
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	return nil
}
