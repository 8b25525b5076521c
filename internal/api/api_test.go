package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		// messages for 5xx responses must not leak internals
		wantMessage bool
	}{
		{"not found", repo.ErrNotFound, http.StatusNotFound, "not_found", false},
		{"terminal", fmt.Errorf("update: %w", repo.ErrTerminal), http.StatusConflict, "job_terminal", true},
		{"version conflict", repo.ErrConflict, http.StatusConflict, "conflict", true},
		{"validation", domain.Errf(domain.ErrKindValidation, "bad definition"), http.StatusBadRequest, "validation_failed", true},
		{"parameter", domain.Errf(domain.ErrKindParameter, "unknown parameter"), http.StatusUnprocessableEntity, "invalid_parameter", true},
		{"conflict kind", domain.Errf(domain.ErrKindConflict, "already cancelled"), http.StatusConflict, "conflict", true},
		{"timeout", domain.Errf(domain.ErrKindTimeout, "budget spent"), http.StatusGatewayTimeout, "timeout", false},
		{"infrastructure", errors.New("pg down"), http.StatusServiceUnavailable, "infrastructure_error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			writeServiceError(rec, req, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body: %v", err)
			}
			if body["error"] != tc.wantCode {
				t.Fatalf("error = %v, want %s", body["error"], tc.wantCode)
			}
			if _, ok := body["request_id"]; !ok {
				t.Fatal("request_id missing")
			}
			if _, ok := body["message"]; ok != tc.wantMessage {
				t.Fatalf("message present = %v, want %v", ok, tc.wantMessage)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := decodeJSON(req, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "x" {
		t.Fatalf("name = %q", p.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","bogus":1}`))
	if err := decodeJSON(req, &p); err == nil {
		t.Fatal("unknown field accepted")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}{"name":"y"}`))
	if err := decodeJSON(req, &p); err == nil {
		t.Fatal("trailing JSON accepted")
	}
}

func TestActorHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if got := actor(req); got != "api" {
		t.Fatalf("default actor = %q", got)
	}
	req.Header.Set("X-Actor", "  alice  ")
	if got := actor(req); got != "alice" {
		t.Fatalf("actor = %q", got)
	}
}

func TestPageQuery(t *testing.T) {
	cases := []struct {
		url        string
		wantLimit  int
		wantOffset int
	}{
		{"/jobs", 100, 0},
		{"/jobs?limit=10&offset=20", 10, 20},
		{"/jobs?limit=9999", 500, 0},
		{"/jobs?limit=0&offset=-5", 1, 0},
		{"/jobs?limit=abc", 100, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		limit, offset := pageQuery(req)
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Errorf("%s: limit=%d offset=%d, want %d/%d", tc.url, limit, offset, tc.wantLimit, tc.wantOffset)
		}
	}
}
