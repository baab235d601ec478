package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"statadvisor/domain/core"
	"statadvisor/internal/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.logger.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// statusFor maps domain sentinels first, then AppError codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errChecksDisabled):
		return http.StatusServiceUnavailable, errors.CodeExternalService
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errors.CodeNotFound
	case errors.Is(err, core.ErrInvalidCatalog):
		return http.StatusBadRequest, errors.CodeValidationError
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, errors.CodeInvalidInput
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway, errors.CodeExternalService
	}

	switch code := errors.GetCode(err); code {
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest, code
	case errors.CodeNotFound:
		return http.StatusNotFound, code
	case errors.CodeExternalService:
		return http.StatusBadGateway, code
	case errors.CodeDatabaseError, errors.CodeConfigInvalid:
		return http.StatusInternalServerError, code
	}
	return http.StatusInternalServerError, errors.CodeInternalError
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("%w: request body: %v", core.ErrInvalidInput, err)
	}
	return nil
}
