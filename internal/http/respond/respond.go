// Package respond writes JSON responses for the API handlers.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/numrent/internal/http/apierror"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error apierror.Body `json:"error"`
}

// Error writes err through the apierror mapping. Server errors are logged.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := apierror.From(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	JSON(w, status, errorResponse{Error: body})
}

// BadRequest reports a malformed request that never reached a service.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: apierror.Body{Code: "INVALID_INPUT", Message: msg}})
}

// Decode reads a JSON body into v, rejecting unknown fields.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}

	return true
}
