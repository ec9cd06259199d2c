// Package http serves the clinic directory over a JSON and server-sent
// events API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fwojciec/dentdir"
)

// codes maps application error codes to HTTP status codes.
var codes = map[string]int{
	dentdir.EINVALID:     http.StatusBadRequest,
	dentdir.ENOTFOUND:    http.StatusNotFound,
	dentdir.ECONFLICT:    http.StatusConflict,
	dentdir.ECONFIG:      http.StatusPreconditionFailed,
	dentdir.ERATELIMIT:   http.StatusTooManyRequests,
	dentdir.EUNAVAILABLE: http.StatusServiceUnavailable,
	dentdir.EINTERNAL:    http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status code for an application error code.
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeError writes err as an ErrorResponse. Internal errors are logged and
// their details hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := dentdir.ErrorCode(err)
	if code == dentdir.EINTERNAL {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, ErrorStatusCode(code), ErrorResponse{Code: code, Error: dentdir.ErrorMessage(err)})
}

// decodeJSON decodes a request body of at most maxBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dentdir.Errorf(dentdir.EINVALID, "request body too large")
		}
		return dentdir.Errorf(dentdir.EINVALID, "invalid JSON body: %v", err)
	}
	return nil
}
