package rdf

import (
	"sort"
	"strings"
)

// WriteTurtle serializes a graph as Turtle, grouping triples by subject and
// abbreviating IRIs through the given prefix map (prefix → namespace).
func WriteTurtle(g *Graph, prefixes map[string]string) string {
	var b strings.Builder

	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString("@prefix ")
		b.WriteString(name)
		b.WriteString(": <")
		b.WriteString(prefixes[name])
		b.WriteString("> .\n")
	}
	if len(names) > 0 {
		b.WriteString("\n")
	}

	for _, subject := range g.AllSubjects() {
		preds := g.PredicatesOf(subject)
		if len(preds) == 0 {
			continue
		}
		b.WriteString(renderTerm(subject, prefixes))
		for i, pred := range preds {
			if i == 0 {
				b.WriteString(" ")
			} else {
				b.WriteString(" ;\n    ")
			}
			b.WriteString(renderPredicate(pred, prefixes))
			objs := g.Objects(subject, pred)
			for j, obj := range objs {
				if j > 0 {
					b.WriteString(",")
				}
				b.WriteString(" ")
				b.WriteString(renderTerm(obj, prefixes))
			}
		}
		b.WriteString(" .\n")
	}
	return b.String()
}

// WriteNQuads serializes quads in N-Quads form, one statement per line.
func WriteNQuads(quads []Quad) string {
	var b strings.Builder
	for _, q := range quads {
		b.WriteString(q.String())
		b.WriteString("\n")
	}
	return b.String()
}

func renderPredicate(t Term, prefixes map[string]string) string {
	if t == IRI(IRIType) {
		return "a"
	}
	return renderTerm(t, prefixes)
}

func renderTerm(t Term, prefixes map[string]string) string {
	if t.Kind == TermIRI {
		for name, ns := range prefixes {
			if local, ok := strings.CutPrefix(t.Value, ns); ok && isSafeLocal(local) {
				return name + ":" + local
			}
		}
	}
	return t.String()
}

func isSafeLocal(local string) bool {
	if local == "" {
		return false
	}
	for _, r := range local {
		if !isPNChar(r) {
			return false
		}
	}
	return !strings.HasSuffix(local, ".")
}
