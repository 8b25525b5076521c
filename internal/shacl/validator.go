package shacl

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// maxNodeDepth bounds sh:node recursion through cyclic shape references.
const maxNodeDepth = 16

// Validate evaluates every shape against the data graph and reports one
// violation per unmet constraint. A shape with no matching focus nodes
// yields vacuous success. Results are computed fresh on every call;
// ExecutionTime is wall-clock for the whole evaluation.
func Validate(data, shapesGraph *rdf.Graph, shapes []*NodeShape) domain.ValidationResult {
	start := time.Now()

	byID := make(map[rdf.Term]*NodeShape, len(shapes))
	for _, s := range shapes {
		byID[s.ID] = s
	}

	var violations []domain.ValidationViolation
	for _, shape := range shapes {
		for _, focus := range focusNodes(data, shape) {
			violations = append(violations, validateFocus(data, shapesGraph, byID, shape, focus, 0)...)
		}
	}

	conforms := true
	for _, v := range violations {
		if v.Severity == domain.SeverityViolation {
			conforms = false
			break
		}
	}
	return domain.ValidationResult{
		Conforms:       conforms,
		ViolationCount: len(violations),
		Violations:     violations,
		ExecutionTime:  time.Since(start),
	}
}

func focusNodes(data *rdf.Graph, shape *NodeShape) []rdf.Term {
	if len(shape.TargetNodes) > 0 {
		return shape.TargetNodes
	}
	if !shape.TargetClass.IsZero() {
		return data.SubjectsWithType(shape.TargetClass)
	}
	return nil
}

func validateFocus(data, shapesGraph *rdf.Graph, byID map[rdf.Term]*NodeShape, shape *NodeShape, focus rdf.Term, depth int) []domain.ValidationViolation {
	var out []domain.ValidationViolation
	for i := range shape.Properties {
		out = append(out, validateProperty(data, shapesGraph, byID, shape, &shape.Properties[i], focus, depth)...)
	}
	return out
}

func validateProperty(data, shapesGraph *rdf.Graph, byID map[rdf.Term]*NodeShape, shape *NodeShape, prop *PropertyConstraint, focus rdf.Term, depth int) []domain.ValidationViolation {
	values := data.Objects(focus, prop.Path)
	var out []domain.ValidationViolation

	report := func(value rdf.Term, constraint, message string) {
		v := domain.ValidationViolation{
			FocusNode:   focus.Display(),
			Path:        prop.Path.Display(),
			Severity:    prop.Severity,
			Constraint:  constraint,
			SourceShape: prop.Shape.Display(),
			Message:     message,
		}
		if !value.IsZero() {
			v.Value = value.Display()
		}
		if prop.Message != "" {
			v.Message = prop.Message
		}
		out = append(out, v)
	}

	// cardinality is checked once per focus node, not per missing value
	if prop.MinCount != nil && len(values) < *prop.MinCount {
		report(rdf.Term{}, "minCount",
			fmt.Sprintf("expected at least %d value(s) for %s, found %d", *prop.MinCount, prop.Path.Display(), len(values)))
	}
	if prop.MaxCount != nil && len(values) > *prop.MaxCount {
		report(rdf.Term{}, "maxCount",
			fmt.Sprintf("expected at most %d value(s) for %s, found %d", *prop.MaxCount, prop.Path.Display(), len(values)))
	}

	if prop.HasValue != nil {
		found := false
		for _, v := range values {
			if v == *prop.HasValue {
				found = true
				break
			}
		}
		if !found {
			report(rdf.Term{}, "hasValue",
				fmt.Sprintf("missing required value %s for %s", prop.HasValue.Display(), prop.Path.Display()))
		}
	}

	for _, value := range values {
		if !prop.Datatype.IsZero() {
			if !value.IsLiteral() || value.Lang != "" || value.Datatype != prop.Datatype.Value {
				report(value, "datatype",
					fmt.Sprintf("value does not have datatype %s", prop.Datatype.Display()))
			}
		}
		if !prop.Class.IsZero() {
			if value.IsLiteral() || !hasType(data, value, prop.Class) {
				report(value, "class",
					fmt.Sprintf("value is not an instance of %s", prop.Class.Display()))
			}
		}
		if !prop.NodeKind.IsZero() && !matchesNodeKind(value, prop.NodeKind.Value) {
			report(value, "nodeKind",
				fmt.Sprintf("value does not match node kind %s", prop.NodeKind.Display()))
		}
		if prop.Pattern != nil {
			if !value.IsLiteral() || !prop.Pattern.MatchString(value.Value) {
				report(value, "pattern",
					fmt.Sprintf("value does not match pattern %q", prop.PatternSrc))
			}
		}
		if prop.MinLength != nil && len(value.Value) < *prop.MinLength {
			report(value, "minLength",
				fmt.Sprintf("value is shorter than %d characters", *prop.MinLength))
		}
		if prop.MaxLength != nil && len(value.Value) > *prop.MaxLength {
			report(value, "maxLength",
				fmt.Sprintf("value is longer than %d characters", *prop.MaxLength))
		}
		rangeViolations(report, prop, value)
		if len(prop.In) > 0 && !termIn(value, prop.In) {
			report(value, "in", "value is not in the enumerated value set")
		}
		if !prop.Node.IsZero() && depth < maxNodeDepth {
			nested := resolveShape(shapesGraph, byID, prop.Node)
			if nested != nil {
				sub := validateFocus(data, shapesGraph, byID, nested, value, depth+1)
				if countViolations(sub) > 0 {
					report(value, "node",
						fmt.Sprintf("value does not conform to shape %s (%d violation(s))", prop.Node.Display(), countViolations(sub)))
				}
			}
		}
	}
	return out
}

// rangeViolations evaluates the four numeric range constraints. A
// non-numeric value under a range constraint is itself a violation.
func rangeViolations(report func(rdf.Term, string, string), prop *PropertyConstraint, value rdf.Term) {
	hasRange := prop.MinInclusive != nil || prop.MaxInclusive != nil || prop.MinExclusive != nil || prop.MaxExclusive != nil
	if !hasRange {
		return
	}
	n, err := strconv.ParseFloat(value.Value, 64)
	if !value.IsLiteral() || err != nil {
		report(value, "range", "value is not numeric")
		return
	}
	if prop.MinInclusive != nil && n < *prop.MinInclusive {
		report(value, "minInclusive", fmt.Sprintf("value %v is below minimum %v", n, *prop.MinInclusive))
	}
	if prop.MaxInclusive != nil && n > *prop.MaxInclusive {
		report(value, "maxInclusive", fmt.Sprintf("value %v is above maximum %v", n, *prop.MaxInclusive))
	}
	if prop.MinExclusive != nil && n <= *prop.MinExclusive {
		report(value, "minExclusive", fmt.Sprintf("value %v is not above %v", n, *prop.MinExclusive))
	}
	if prop.MaxExclusive != nil && n >= *prop.MaxExclusive {
		report(value, "maxExclusive", fmt.Sprintf("value %v is not below %v", n, *prop.MaxExclusive))
	}
}

func hasType(data *rdf.Graph, value, class rdf.Term) bool {
	for _, t := range data.Objects(value, rdf.IRI(rdf.IRIType)) {
		if t == class {
			return true
		}
	}
	return false
}

func matchesNodeKind(value rdf.Term, kind string) bool {
	switch kind {
	case IRIKindIRI:
		return value.IsIRI()
	case IRIKindLiteral:
		return value.IsLiteral()
	case IRIKindBlankNode:
		return value.IsBlank()
	case IRIKindBlankNodeOrIRI:
		return value.IsBlank() || value.IsIRI()
	case IRIKindIRIOrLiteral:
		return value.IsIRI() || value.IsLiteral()
	case IRIKindBlankNodeOrLiteral:
		return value.IsBlank() || value.IsLiteral()
	default:
		return false
	}
}

func termIn(value rdf.Term, set []rdf.Term) bool {
	for _, t := range set {
		if t == value {
			return true
		}
	}
	return false
}

func countViolations(vs []domain.ValidationViolation) int {
	n := 0
	for _, v := range vs {
		if v.Severity == domain.SeverityViolation {
			n++
		}
	}
	return n
}

func resolveShape(shapesGraph *rdf.Graph, byID map[rdf.Term]*NodeShape, id rdf.Term) *NodeShape {
	if s, ok := byID[id]; ok {
		return s
	}
	if shapesGraph == nil {
		return nil
	}
	s, err := ParseShapeNode(shapesGraph, id)
	if err != nil {
		return nil
	}
	byID[id] = s
	return s
}
