package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ContentFormat enumerates accepted RDF serializations.
type ContentFormat string

const (
	ContentTurtle ContentFormat = "TURTLE"
	ContentJSONLD ContentFormat = "JSONLD"
)

func ParseContentFormat(s string) (ContentFormat, error) {
	f := ContentFormat(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "")))
	switch f {
	case ContentTurtle, ContentJSONLD:
		return f, nil
	default:
		return "", fmt.Errorf("unknown content format %q", s)
	}
}

// Severity is a SHACL result severity.
type Severity string

const (
	SeverityViolation Severity = "Violation"
	SeverityWarning   Severity = "Warning"
	SeverityInfo      Severity = "Info"
)

// PropertyShape is the structured projection of a SHACL property shape,
// used for generation and inference. Once Content exists on the owning
// Shape, the serialized form is authoritative and this projection is
// advisory only.
type PropertyShape struct {
	Path         string   `json:"path"`
	Name         string   `json:"name,omitempty"`
	Datatype     string   `json:"datatype,omitempty"`
	NodeKind     string   `json:"nodeKind,omitempty"`
	Class        string   `json:"class,omitempty"`
	MinCount     *int     `json:"minCount,omitempty"`
	MaxCount     *int     `json:"maxCount,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	MinInclusive *float64 `json:"minInclusive,omitempty"`
	MaxInclusive *float64 `json:"maxInclusive,omitempty"`
	In           []string `json:"in,omitempty"`
	Severity     Severity `json:"severity,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Shape is a catalogued SHACL node shape. Content is the authoritative
// serialized form.
type Shape struct {
	ID            string
	URI           string
	Name          string
	Description   string
	Content       string
	ContentFormat ContentFormat
	TargetClass   string
	Category      string
	Tags          []string
	IsTemplate    bool
	Properties    []PropertyShape
	Version       int64
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s Shape) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("shape id is required")
	}
	if strings.TrimSpace(s.URI) == "" {
		return errors.New("shape uri is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("shape name is required")
	}
	if s.Version < 1 {
		return errors.New("shape version must be >= 1")
	}
	if s.Content != "" {
		if _, err := ParseContentFormat(string(s.ContentFormat)); err != nil {
			return err
		}
	}
	return nil
}

// ValidationViolation is one unmet constraint reported by the validation
// engine.
type ValidationViolation struct {
	FocusNode   string   `json:"focusNode"`
	Path        string   `json:"path,omitempty"`
	Value       string   `json:"value,omitempty"`
	Severity    Severity `json:"severity"`
	Constraint  string   `json:"constraint"`
	SourceShape string   `json:"sourceShape,omitempty"`
	Message     string   `json:"message"`
}

// ValidationResult is the outcome of one validation run. Results are always
// recomputed fresh; shapes and data can change between calls.
type ValidationResult struct {
	Conforms       bool                  `json:"conforms"`
	ViolationCount int                   `json:"violationCount"`
	Violations     []ValidationViolation `json:"violations"`
	ExecutionTime  time.Duration         `json:"executionTime"`
}
