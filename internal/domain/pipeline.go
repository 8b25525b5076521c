package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OperationType is the closed set of step operation types.
type OperationType string

const (
	OpSource     OperationType = "SOURCE"
	OpTransform  OperationType = "TRANSFORM"
	OpCube       OperationType = "CUBE"
	OpValidation OperationType = "VALIDATION"
	OpOutput     OperationType = "OUTPUT"
)

// ParseOperationType validates and normalizes an operation type string.
func ParseOperationType(s string) (OperationType, error) {
	t := OperationType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case OpSource, OpTransform, OpCube, OpValidation, OpOutput:
		return t, nil
	default:
		return "", fmt.Errorf("unknown operation type %q", s)
	}
}

// DefinitionFormat enumerates accepted pipeline definition encodings.
type DefinitionFormat string

const (
	FormatYAML   DefinitionFormat = "YAML"
	FormatJSON   DefinitionFormat = "JSON"
	FormatTurtle DefinitionFormat = "TURTLE"
)

func ParseDefinitionFormat(s string) (DefinitionFormat, error) {
	f := DefinitionFormat(strings.ToUpper(strings.TrimSpace(s)))
	switch f {
	case FormatYAML, FormatJSON, FormatTurtle:
		return f, nil
	default:
		return "", fmt.Errorf("unknown definition format %q", s)
	}
}

// Step is one pipeline-defined operation.
type Step struct {
	ID            string
	Name          string
	OperationType OperationType
	OperationName string
	Params        Variables
	// TimeoutSeconds bounds the step's execution; zero means the engine
	// default applies.
	TimeoutSeconds int
}

func (s Step) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("step id is required")
	}
	if _, err := ParseOperationType(string(s.OperationType)); err != nil {
		return err
	}
	if strings.TrimSpace(s.OperationName) == "" {
		return errors.New("step operation name is required")
	}
	if s.TimeoutSeconds < 0 {
		return errors.New("step timeout must be >= 0")
	}
	return nil
}

// Pipeline is an immutable-per-version pipeline definition. A new edit
// creates a new version; running jobs always pin a version.
type Pipeline struct {
	ID          string
	Version     int64
	Name        string
	Description string
	Steps       []Step
	Variables   Variables
	Tags        []string
	CreatedBy   string
	CreatedAt   time.Time
}

func (p Pipeline) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("pipeline id is required")
	}
	if p.Version < 1 {
		return errors.New("pipeline version must be >= 1")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("pipeline name is required")
	}
	seen := make(map[string]struct{}, len(p.Steps))
	for i, step := range p.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("duplicate step id %q", step.ID)
		}
		seen[step.ID] = struct{}{}
	}
	return nil
}

// ValidateExecutable adds the constraints a pipeline must meet before a job
// may be created for it.
func (p Pipeline) ValidateExecutable() error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(p.Steps) == 0 {
		return errors.New("executable pipeline requires at least one step")
	}
	return nil
}
