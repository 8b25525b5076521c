package domain

import (
	"errors"
	"strings"
)

// ParamType is the declared type of an operation parameter.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
	ParamBool   ParamType = "boolean"
	ParamList   ParamType = "list"
	ParamMap    ParamType = "map"
)

// Matches reports whether a value satisfies the declared parameter type.
func (t ParamType) Matches(v Value) bool {
	switch t {
	case ParamString:
		return v.Kind() == KindString
	case ParamNumber:
		return v.Kind() == KindNumber
	case ParamBool:
		return v.Kind() == KindBool
	case ParamList:
		return v.Kind() == KindList
	case ParamMap:
		return v.Kind() == KindMap
	default:
		return false
	}
}

// ParamSpec declares one operation parameter.
type ParamSpec struct {
	Type     ParamType
	Required bool
	Default  Value
}

// Operation is a static catalog entry for a built-in step operation.
// Read-only at runtime.
type Operation struct {
	Name        string
	Type        OperationType
	Description string
	Parameters  map[string]ParamSpec
}

func (o Operation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("operation name is required")
	}
	if _, err := ParseOperationType(string(o.Type)); err != nil {
		return err
	}
	return nil
}
