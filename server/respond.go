package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/logging"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error(err, "failed to encode response")
	}
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}

	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeStructural:
		return http.StatusUnprocessableEntity
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, details ...string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).Error(err, "request failed", logging.Fields{"path": r.URL.Path})
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Errors: details})
}
