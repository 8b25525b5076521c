package rdf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseJSONLD parses the constrained JSON-LD profile the clients emit: an
// optional string-valued @context of prefix mappings, and either a single
// node object, an array of node objects, or a @graph array. Nested node
// objects and expanded value objects ({"@value", "@type", "@language"}) are
// supported; remote contexts and reverse properties are not.
func ParseJSONLD(input string) (*Graph, error) {
	var root any
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("jsonld: %w", err)
	}

	p := &jsonldParser{graph: NewGraph(), context: map[string]string{}}
	switch t := root.(type) {
	case map[string]any:
		if err := p.loadContext(t["@context"]); err != nil {
			return nil, err
		}
		if graphNodes, ok := t["@graph"].([]any); ok {
			for _, node := range graphNodes {
				if _, err := p.parseNode(node); err != nil {
					return nil, err
				}
			}
			return p.graph, nil
		}
		if _, err := p.parseNode(t); err != nil {
			return nil, err
		}
		return p.graph, nil
	case []any:
		for _, node := range t {
			if _, err := p.parseNode(node); err != nil {
				return nil, err
			}
		}
		return p.graph, nil
	default:
		return nil, fmt.Errorf("jsonld: document must be an object or array")
	}
}

type jsonldParser struct {
	graph    *Graph
	context  map[string]string
	blankSeq int
}

func (p *jsonldParser) loadContext(raw any) error {
	if raw == nil {
		return nil
	}
	ctx, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("jsonld: only inline object @context is supported")
	}
	for k, v := range ctx {
		iri, ok := v.(string)
		if !ok {
			return fmt.Errorf("jsonld: context term %q must map to a string", k)
		}
		p.context[k] = iri
	}
	return nil
}

// expand resolves a term or compact IRI against the context.
func (p *jsonldParser) expand(name string) string {
	if iri, ok := p.context[name]; ok {
		return iri
	}
	if idx := strings.Index(name, ":"); idx > 0 {
		prefix := name[:idx]
		if ns, ok := p.context[prefix]; ok {
			return ns + name[idx+1:]
		}
	}
	return name
}

func (p *jsonldParser) parseNode(raw any) (Term, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Term{}, fmt.Errorf("jsonld: node must be an object")
	}

	var subject Term
	if id, ok := obj["@id"].(string); ok && id != "" {
		if label, isBlank := strings.CutPrefix(id, "_:"); isBlank {
			subject = Blank(label)
		} else {
			subject = IRI(p.expand(id))
		}
	} else {
		p.blankSeq++
		subject = Blank(fmt.Sprintf("jld%d", p.blankSeq))
	}

	for key, value := range obj {
		switch key {
		case "@context", "@id":
			continue
		case "@type":
			for _, cls := range toSlice(value) {
				name, ok := cls.(string)
				if !ok {
					return Term{}, fmt.Errorf("jsonld: @type must be a string")
				}
				p.graph.AddTriple(subject, IRI(IRIType), IRI(p.expand(name)))
			}
			continue
		case "@graph":
			return Term{}, fmt.Errorf("jsonld: nested @graph is not supported")
		}

		predicate := IRI(p.expand(key))
		for _, item := range toSlice(value) {
			object, err := p.parseValue(item)
			if err != nil {
				return Term{}, fmt.Errorf("jsonld: property %q: %w", key, err)
			}
			p.graph.AddTriple(subject, predicate, object)
		}
	}
	return subject, nil
}

func (p *jsonldParser) parseValue(raw any) (Term, error) {
	switch t := raw.(type) {
	case string:
		return Literal(t), nil
	case bool:
		return TypedLiteral(strconv.FormatBool(t), XSDBoolean), nil
	case json.Number:
		if strings.ContainsAny(t.String(), ".eE") {
			return TypedLiteral(t.String(), XSDDecimal), nil
		}
		return TypedLiteral(t.String(), XSDInteger), nil
	case map[string]any:
		if v, ok := t["@value"]; ok {
			return p.parseValueObject(v, t)
		}
		if id, ok := t["@id"].(string); ok && len(t) == 1 {
			if label, isBlank := strings.CutPrefix(id, "_:"); isBlank {
				return Blank(label), nil
			}
			return IRI(p.expand(id)), nil
		}
		return p.parseNode(t)
	default:
		return Term{}, fmt.Errorf("unsupported value %v", raw)
	}
}

func (p *jsonldParser) parseValueObject(v any, obj map[string]any) (Term, error) {
	var lex string
	switch t := v.(type) {
	case string:
		lex = t
	case bool:
		lex = strconv.FormatBool(t)
	case json.Number:
		lex = t.String()
	default:
		return Term{}, fmt.Errorf("unsupported @value %v", v)
	}
	if lang, ok := obj["@language"].(string); ok && lang != "" {
		return LangLiteral(lex, lang), nil
	}
	if dt, ok := obj["@type"].(string); ok && dt != "" {
		return TypedLiteral(lex, p.expand(dt)), nil
	}
	switch v.(type) {
	case bool:
		return TypedLiteral(lex, XSDBoolean), nil
	case json.Number:
		if strings.ContainsAny(lex, ".eE") {
			return TypedLiteral(lex, XSDDecimal), nil
		}
		return TypedLiteral(lex, XSDInteger), nil
	default:
		return Literal(lex), nil
	}
}

func toSlice(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}
