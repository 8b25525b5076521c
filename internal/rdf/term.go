// Package rdf carries the minimal RDF data model the engine needs: terms,
// quads, an indexed graph, and Turtle / JSON-LD codecs for the subset of
// those syntaxes the pipeline and shape catalogs use.
package rdf

import (
	"fmt"
	"strings"
)

// Well-known vocabulary IRIs.
const (
	NSRDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS  = "http://www.w3.org/2000/01/rdf-schema#"
	NSXSD   = "http://www.w3.org/2001/XMLSchema#"
	NSSHACL = "http://www.w3.org/ns/shacl#"

	IRIType  = NSRDF + "type"
	IRIFirst = NSRDF + "first"
	IRIRest  = NSRDF + "rest"
	IRINil   = NSRDF + "nil"

	XSDString  = NSXSD + "string"
	XSDInteger = NSXSD + "integer"
	XSDDecimal = NSXSD + "decimal"
	XSDDouble  = NSXSD + "double"
	XSDBoolean = NSXSD + "boolean"
	XSDDate    = NSXSD + "date"
)

// TermKind discriminates IRIs, blank nodes and literals.
type TermKind int

const (
	TermIRI TermKind = iota
	TermBlank
	TermLiteral
)

// Term is one RDF term. For literals, Value holds the lexical form; plain
// string literals are normalized to datatype xsd:string unless a language
// tag is present, so Term values compare with ==.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

func IRI(iri string) Term     { return Term{Kind: TermIRI, Value: iri} }
func Blank(label string) Term { return Term{Kind: TermBlank, Value: label} }

func Literal(lex string) Term {
	return Term{Kind: TermLiteral, Value: lex, Datatype: XSDString}
}

func TypedLiteral(lex, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: TermLiteral, Value: lex, Datatype: datatype}
}

func LangLiteral(lex, lang string) Term {
	return Term{Kind: TermLiteral, Value: lex, Lang: lang}
}

func (t Term) IsIRI() bool     { return t.Kind == TermIRI }
func (t Term) IsBlank() bool   { return t.Kind == TermBlank }
func (t Term) IsLiteral() bool { return t.Kind == TermLiteral }
func (t Term) IsZero() bool    { return t == Term{} }

// String renders the term in N-Triples form.
func (t Term) String() string {
	switch t.Kind {
	case TermIRI:
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	case TermLiteral:
		quoted := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return quoted + "@" + t.Lang
		}
		if t.Datatype != "" && t.Datatype != XSDString {
			return quoted + "^^<" + t.Datatype + ">"
		}
		return quoted
	}
	return ""
}

// Display renders the term for violation reports and browse views: IRIs and
// blank labels bare, literals as their lexical form.
func (t Term) Display() string {
	switch t.Kind {
	case TermIRI:
		return t.Value
	case TermBlank:
		return "_:" + t.Value
	default:
		return t.Value
	}
}

func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Quad is a triple plus an optional graph name (empty = default graph).
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     string
}

func (q Quad) String() string {
	if q.Graph == "" {
		return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%s %s %s <%s> .", q.Subject, q.Predicate, q.Object, q.Graph)
}
