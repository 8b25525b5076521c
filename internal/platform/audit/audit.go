// Package audit records who changed what through the HTTP surface. Events
// are append-only and carry an integrity hash so tampering with a stored
// row is detectable.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Event struct {
	OccurredAt time.Time
	Actor      string
	Action     string
	Resource   string
	RequestID  string
	Detail     any
}

func (e Event) Validate() error {
	if e.OccurredAt.IsZero() {
		return errors.New("OccurredAt is required")
	}
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("Actor is required")
	}
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("Action is required")
	}
	if strings.TrimSpace(e.Resource) == "" {
		return errors.New("Resource is required")
	}
	return nil
}

// Recorder persists audit events to Postgres. Recording is best-effort: a
// storage failure is logged and never fails the request that caused it.
type Recorder struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewRecorder(db *sql.DB, log *slog.Logger) *Recorder {
	return &Recorder{db: db, log: log, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, event Event) {
	if r == nil || r.db == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now().UTC()
	}
	if err := r.insert(ctx, event); err != nil {
		r.log.Warn("record audit event",
			"action", event.Action, "resource", event.Resource, "error", err)
	}
}

func (r *Recorder) insert(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	detail := event.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}
	integrity, err := integritySHA256(event, detailJSON)
	if err != nil {
		return err
	}

	var requestID sql.NullString
	if strings.TrimSpace(event.RequestID) != "" {
		requestID = sql.NullString{String: strings.TrimSpace(event.RequestID), Valid: true}
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_events (
			occurred_at, actor, action, resource, request_id, detail, integrity_sha256
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		event.OccurredAt.UTC(),
		strings.TrimSpace(event.Actor),
		strings.TrimSpace(event.Action),
		strings.TrimSpace(event.Resource),
		requestID,
		detailJSON,
		integrity,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func integritySHA256(event Event, detailJSON []byte) (string, error) {
	type integrityInput struct {
		OccurredAt time.Time       `json:"occurred_at"`
		Actor      string          `json:"actor"`
		Action     string          `json:"action"`
		Resource   string          `json:"resource"`
		RequestID  string          `json:"request_id,omitempty"`
		Detail     json.RawMessage `json:"detail"`
	}
	blob, err := json.Marshal(integrityInput{
		OccurredAt: event.OccurredAt.UTC(),
		Actor:      strings.TrimSpace(event.Actor),
		Action:     strings.TrimSpace(event.Action),
		Resource:   strings.TrimSpace(event.Resource),
		RequestID:  strings.TrimSpace(event.RequestID),
		Detail:     detailJSON,
	})
	if err != nil {
		return "", fmt.Errorf("marshal integrity: %w", err)
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}
