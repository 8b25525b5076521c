// Package shacl implements SHACL Core shape extraction and validation over
// the internal RDF graph model.
package shacl

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// SHACL vocabulary IRIs.
const (
	IRINodeShape     = rdf.NSSHACL + "NodeShape"
	IRIPropertyShape = rdf.NSSHACL + "PropertyShape"
	IRITargetClass   = rdf.NSSHACL + "targetClass"
	IRITargetNode    = rdf.NSSHACL + "targetNode"
	IRIProperty      = rdf.NSSHACL + "property"
	IRIPath          = rdf.NSSHACL + "path"
	IRIName          = rdf.NSSHACL + "name"
	IRIMinCount      = rdf.NSSHACL + "minCount"
	IRIMaxCount      = rdf.NSSHACL + "maxCount"
	IRIDatatype      = rdf.NSSHACL + "datatype"
	IRIClass         = rdf.NSSHACL + "class"
	IRINodeKind      = rdf.NSSHACL + "nodeKind"
	IRIPattern       = rdf.NSSHACL + "pattern"
	IRIMinInclusive  = rdf.NSSHACL + "minInclusive"
	IRIMaxInclusive  = rdf.NSSHACL + "maxInclusive"
	IRIMinExclusive  = rdf.NSSHACL + "minExclusive"
	IRIMaxExclusive  = rdf.NSSHACL + "maxExclusive"
	IRIMinLength     = rdf.NSSHACL + "minLength"
	IRIMaxLength     = rdf.NSSHACL + "maxLength"
	IRIIn            = rdf.NSSHACL + "in"
	IRIHasValue      = rdf.NSSHACL + "hasValue"
	IRINode          = rdf.NSSHACL + "node"
	IRISeverity      = rdf.NSSHACL + "severity"
	IRIMessage       = rdf.NSSHACL + "message"

	IRISevViolation = rdf.NSSHACL + "Violation"
	IRISevWarning   = rdf.NSSHACL + "Warning"
	IRISevInfo      = rdf.NSSHACL + "Info"

	IRIKindIRI                = rdf.NSSHACL + "IRI"
	IRIKindLiteral            = rdf.NSSHACL + "Literal"
	IRIKindBlankNode          = rdf.NSSHACL + "BlankNode"
	IRIKindBlankNodeOrIRI     = rdf.NSSHACL + "BlankNodeOrIRI"
	IRIKindIRIOrLiteral       = rdf.NSSHACL + "IRIOrLiteral"
	IRIKindBlankNodeOrLiteral = rdf.NSSHACL + "BlankNodeOrLiteral"
)

// PropertyConstraint is one parsed sh:property shape. Pointer fields are nil
// when the constraint is absent.
type PropertyConstraint struct {
	Shape        rdf.Term
	Path         rdf.Term
	Name         string
	MinCount     *int
	MaxCount     *int
	Datatype     rdf.Term
	Class        rdf.Term
	NodeKind     rdf.Term
	Pattern      *regexp.Regexp
	PatternSrc   string
	MinInclusive *float64
	MaxInclusive *float64
	MinExclusive *float64
	MaxExclusive *float64
	MinLength    *int
	MaxLength    *int
	In           []rdf.Term
	HasValue     *rdf.Term
	Node         rdf.Term
	Severity     domain.Severity
	Message      string
}

// NodeShape is one parsed SHACL node shape.
type NodeShape struct {
	ID          rdf.Term
	TargetClass rdf.Term
	TargetNodes []rdf.Term
	Properties  []PropertyConstraint
}

// ParseShapes extracts node shapes from a shapes graph. A subject counts as
// a node shape when typed sh:NodeShape or when it declares sh:targetClass
// or sh:property.
func ParseShapes(g *rdf.Graph) ([]*NodeShape, error) {
	seen := make(map[rdf.Term]struct{})
	var order []rdf.Term

	add := func(t rdf.Term) {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			order = append(order, t)
		}
	}
	for _, s := range g.SubjectsWithType(rdf.IRI(IRINodeShape)) {
		add(s)
	}
	for _, s := range g.AllSubjects() {
		if _, ok := g.Object(s, rdf.IRI(IRITargetClass)); ok {
			add(s)
			continue
		}
		// subjects that declare properties but are referenced via sh:node
		// from another shape are nested, not root; they still need parsing
		// when typed, which the first loop covered
	}

	shapes := make([]*NodeShape, 0, len(order))
	for _, id := range order {
		shape, err := parseNodeShape(g, id)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, shape)
	}
	if len(shapes) == 0 {
		return nil, fmt.Errorf("shacl: no node shapes found")
	}
	return shapes, nil
}

// ParseShapeNode parses a single node shape rooted at id, for sh:node
// resolution.
func ParseShapeNode(g *rdf.Graph, id rdf.Term) (*NodeShape, error) {
	return parseNodeShape(g, id)
}

func parseNodeShape(g *rdf.Graph, id rdf.Term) (*NodeShape, error) {
	shape := &NodeShape{ID: id}
	if cls, ok := g.Object(id, rdf.IRI(IRITargetClass)); ok {
		shape.TargetClass = cls
	}
	shape.TargetNodes = g.Objects(id, rdf.IRI(IRITargetNode))

	for _, propNode := range g.Objects(id, rdf.IRI(IRIProperty)) {
		prop, err := parsePropertyConstraint(g, propNode)
		if err != nil {
			return nil, fmt.Errorf("shacl: shape %s: %w", id.Display(), err)
		}
		shape.Properties = append(shape.Properties, prop)
	}
	return shape, nil
}

func parsePropertyConstraint(g *rdf.Graph, node rdf.Term) (PropertyConstraint, error) {
	prop := PropertyConstraint{Shape: node, Severity: domain.SeverityViolation}

	path, ok := g.Object(node, rdf.IRI(IRIPath))
	if !ok {
		return prop, fmt.Errorf("property shape %s has no sh:path", node.Display())
	}
	prop.Path = path

	if name, ok := g.Object(node, rdf.IRI(IRIName)); ok {
		prop.Name = name.Value
	}
	if msg, ok := g.Object(node, rdf.IRI(IRIMessage)); ok {
		prop.Message = msg.Value
	}
	if sev, ok := g.Object(node, rdf.IRI(IRISeverity)); ok {
		switch sev.Value {
		case IRISevWarning:
			prop.Severity = domain.SeverityWarning
		case IRISevInfo:
			prop.Severity = domain.SeverityInfo
		case IRISevViolation:
			prop.Severity = domain.SeverityViolation
		default:
			return prop, fmt.Errorf("property shape %s has unknown severity %s", node.Display(), sev.Display())
		}
	}

	var err error
	if prop.MinCount, err = intConstraint(g, node, IRIMinCount); err != nil {
		return prop, err
	}
	if prop.MaxCount, err = intConstraint(g, node, IRIMaxCount); err != nil {
		return prop, err
	}
	if prop.MinLength, err = intConstraint(g, node, IRIMinLength); err != nil {
		return prop, err
	}
	if prop.MaxLength, err = intConstraint(g, node, IRIMaxLength); err != nil {
		return prop, err
	}
	if prop.MinInclusive, err = floatConstraint(g, node, IRIMinInclusive); err != nil {
		return prop, err
	}
	if prop.MaxInclusive, err = floatConstraint(g, node, IRIMaxInclusive); err != nil {
		return prop, err
	}
	if prop.MinExclusive, err = floatConstraint(g, node, IRIMinExclusive); err != nil {
		return prop, err
	}
	if prop.MaxExclusive, err = floatConstraint(g, node, IRIMaxExclusive); err != nil {
		return prop, err
	}

	if dt, ok := g.Object(node, rdf.IRI(IRIDatatype)); ok {
		prop.Datatype = dt
	}
	if cls, ok := g.Object(node, rdf.IRI(IRIClass)); ok {
		prop.Class = cls
	}
	if kind, ok := g.Object(node, rdf.IRI(IRINodeKind)); ok {
		prop.NodeKind = kind
	}
	if nested, ok := g.Object(node, rdf.IRI(IRINode)); ok {
		prop.Node = nested
	}
	if hv, ok := g.Object(node, rdf.IRI(IRIHasValue)); ok {
		v := hv
		prop.HasValue = &v
	}
	if pattern, ok := g.Object(node, rdf.IRI(IRIPattern)); ok {
		re, err := regexp.Compile(pattern.Value)
		if err != nil {
			return prop, fmt.Errorf("property shape %s has invalid sh:pattern: %w", node.Display(), err)
		}
		prop.Pattern = re
		prop.PatternSrc = pattern.Value
	}
	if inHead, ok := g.Object(node, rdf.IRI(IRIIn)); ok {
		items, listOK := g.List(inHead)
		if !listOK {
			return prop, fmt.Errorf("property shape %s has malformed sh:in list", node.Display())
		}
		prop.In = items
	}
	return prop, nil
}

func intConstraint(g *rdf.Graph, node rdf.Term, pred string) (*int, error) {
	t, ok := g.Object(node, rdf.IRI(pred))
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(t.Value)
	if err != nil {
		return nil, fmt.Errorf("property shape %s: %s must be an integer: %w", node.Display(), pred, err)
	}
	return &n, nil
}

func floatConstraint(g *rdf.Graph, node rdf.Term, pred string) (*float64, error) {
	t, ok := g.Object(node, rdf.IRI(pred))
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return nil, fmt.Errorf("property shape %s: %s must be numeric: %w", node.Display(), pred, err)
	}
	return &f, nil
}
