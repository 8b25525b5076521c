// Package api exposes the HTTP surface of the engine: pipelines, jobs,
// schedules, shapes, validation, data sources and triplestore connections.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/platform/httpserver"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := httpserver.RequestIDFromContext(r.Context())
	body := map[string]any{
		"error":      code,
		"request_id": requestID,
	}
	if message != "" && status < http.StatusInternalServerError {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

// writeServiceError maps service and repository errors onto HTTP statuses.
// Repository sentinels take precedence over error kinds.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "")
		return
	case errors.Is(err, repo.ErrTerminal):
		writeError(w, r, http.StatusConflict, "job_terminal", err.Error())
		return
	case errors.Is(err, repo.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict", err.Error())
		return
	}

	switch domain.KindOf(err) {
	case domain.ErrKindValidation:
		writeError(w, r, http.StatusBadRequest, "validation_failed", err.Error())
	case domain.ErrKindParameter:
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_parameter", err.Error())
	case domain.ErrKindConflict:
		writeError(w, r, http.StatusConflict, "conflict", err.Error())
	case domain.ErrKindTimeout:
		writeError(w, r, http.StatusGatewayTimeout, "timeout", "")
	default:
		writeError(w, r, http.StatusServiceUnavailable, "infrastructure_error", "")
	}
}

func actor(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Actor")); v != "" {
		return v
	}
	return "api"
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func pageQuery(r *http.Request) (limit, offset int) {
	limit = clampInt(parseIntQuery(r, "limit", 100), 1, 500)
	offset = clampInt(parseIntQuery(r, "offset", 0), 0, 1<<30)
	return limit, offset
}
