package shacl

import (
	"sort"
	"strconv"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// InferProperties derives structured property shapes from the instances of
// targetClass in a data graph: one property shape per observed predicate,
// with a datatype when every observed value agrees, minCount=1 when every
// instance carries the property, and maxCount=1 when no instance repeats it.
func InferProperties(data *rdf.Graph, targetClass rdf.Term) []domain.PropertyShape {
	instances := data.SubjectsWithType(targetClass)
	if len(instances) == 0 {
		return nil
	}

	type stats struct {
		present   int
		maxPerSub int
		datatypes map[string]struct{}
		allIRI    bool
		seenVal   bool
	}
	byPredicate := make(map[rdf.Term]*stats)
	var order []rdf.Term

	for _, inst := range instances {
		for _, pred := range data.PredicatesOf(inst) {
			if pred == rdf.IRI(rdf.IRIType) {
				continue
			}
			st, ok := byPredicate[pred]
			if !ok {
				st = &stats{datatypes: map[string]struct{}{}, allIRI: true}
				byPredicate[pred] = st
				order = append(order, pred)
			}
			values := data.Objects(inst, pred)
			st.present++
			if len(values) > st.maxPerSub {
				st.maxPerSub = len(values)
			}
			for _, v := range values {
				st.seenVal = true
				if v.IsLiteral() {
					st.allIRI = false
					st.datatypes[v.Datatype] = struct{}{}
				} else if !v.IsIRI() {
					st.allIRI = false
				}
			}
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Value < order[j].Value })

	props := make([]domain.PropertyShape, 0, len(order))
	for _, pred := range order {
		st := byPredicate[pred]
		prop := domain.PropertyShape{Path: pred.Value}
		if st.present == len(instances) {
			one := 1
			prop.MinCount = &one
		}
		if st.maxPerSub == 1 {
			one := 1
			prop.MaxCount = &one
		}
		if len(st.datatypes) == 1 && st.seenVal && !st.allIRI {
			for dt := range st.datatypes {
				prop.Datatype = dt
			}
		}
		if st.allIRI && st.seenVal {
			prop.NodeKind = IRIKindIRI
		}
		props = append(props, prop)
	}
	return props
}

// BuildShapeGraph renders a structured shape projection into a SHACL shapes
// graph. The resulting Turtle serialization becomes the shape's
// authoritative content.
func BuildShapeGraph(shape domain.Shape) *rdf.Graph {
	g := rdf.NewGraph()
	root := rdf.IRI(shape.URI)
	g.AddTriple(root, rdf.IRI(rdf.IRIType), rdf.IRI(IRINodeShape))
	if shape.TargetClass != "" {
		g.AddTriple(root, rdf.IRI(IRITargetClass), rdf.IRI(shape.TargetClass))
	}
	if shape.Name != "" {
		g.AddTriple(root, rdf.IRI(rdf.NSRDFS+"label"), rdf.Literal(shape.Name))
	}
	if shape.Description != "" {
		g.AddTriple(root, rdf.IRI(rdf.NSRDFS+"comment"), rdf.Literal(shape.Description))
	}

	for i, prop := range shape.Properties {
		node := rdf.Blank(propBlankLabel(i))
		g.AddTriple(root, rdf.IRI(IRIProperty), node)
		g.AddTriple(node, rdf.IRI(IRIPath), rdf.IRI(prop.Path))
		if prop.Name != "" {
			g.AddTriple(node, rdf.IRI(IRIName), rdf.Literal(prop.Name))
		}
		if prop.Datatype != "" {
			g.AddTriple(node, rdf.IRI(IRIDatatype), rdf.IRI(prop.Datatype))
		}
		if prop.Class != "" {
			g.AddTriple(node, rdf.IRI(IRIClass), rdf.IRI(prop.Class))
		}
		if prop.NodeKind != "" {
			g.AddTriple(node, rdf.IRI(IRINodeKind), rdf.IRI(prop.NodeKind))
		}
		if prop.MinCount != nil {
			g.AddTriple(node, rdf.IRI(IRIMinCount), rdf.TypedLiteral(itoa(*prop.MinCount), rdf.XSDInteger))
		}
		if prop.MaxCount != nil {
			g.AddTriple(node, rdf.IRI(IRIMaxCount), rdf.TypedLiteral(itoa(*prop.MaxCount), rdf.XSDInteger))
		}
		if prop.Pattern != "" {
			g.AddTriple(node, rdf.IRI(IRIPattern), rdf.Literal(prop.Pattern))
		}
		if prop.MinInclusive != nil {
			g.AddTriple(node, rdf.IRI(IRIMinInclusive), rdf.TypedLiteral(ftoa(*prop.MinInclusive), rdf.XSDDecimal))
		}
		if prop.MaxInclusive != nil {
			g.AddTriple(node, rdf.IRI(IRIMaxInclusive), rdf.TypedLiteral(ftoa(*prop.MaxInclusive), rdf.XSDDecimal))
		}
		if len(prop.In) > 0 {
			head := buildList(g, i, prop.In)
			g.AddTriple(node, rdf.IRI(IRIIn), head)
		}
		if prop.Severity != "" && prop.Severity != domain.SeverityViolation {
			g.AddTriple(node, rdf.IRI(IRISeverity), rdf.IRI(rdf.NSSHACL+string(prop.Severity)))
		}
		if prop.Message != "" {
			g.AddTriple(node, rdf.IRI(IRIMessage), rdf.Literal(prop.Message))
		}
	}
	return g
}

// DefaultPrefixes is the prefix map used when serializing generated shapes.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"sh":   rdf.NSSHACL,
		"rdf":  rdf.NSRDF,
		"rdfs": rdf.NSRDFS,
		"xsd":  rdf.NSXSD,
	}
}

func buildList(g *rdf.Graph, propIdx int, items []string) rdf.Term {
	head := rdf.Blank(propBlankLabel(propIdx) + "l0")
	node := head
	for i, item := range items {
		g.AddTriple(node, rdf.IRI(rdf.IRIFirst), rdf.Literal(item))
		if i == len(items)-1 {
			g.AddTriple(node, rdf.IRI(rdf.IRIRest), rdf.IRI(rdf.IRINil))
			break
		}
		next := rdf.Blank(propBlankLabel(propIdx) + "l" + itoa(i+1))
		g.AddTriple(node, rdf.IRI(rdf.IRIRest), next)
		node = next
	}
	return head
}

func propBlankLabel(i int) string { return "p" + itoa(i) }

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
