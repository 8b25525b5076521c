package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
}

// ParseTurtle parses a Turtle document into a graph. The supported subset
// covers prefixed names, @prefix/@base directives (both forms), blank node
// property lists, collections, typed and language-tagged literals, numeric
// and boolean shorthand, and predicate/object lists. N-Triples documents
// parse as a degenerate case.
func ParseTurtle(input string) (*Graph, error) {
	p := &turtleParser{
		src:      []rune(input),
		line:     1,
		col:      1,
		prefixes: map[string]string{},
		graph:    NewGraph(),
	}
	if err := p.parseDocument(); err != nil {
		return nil, err
	}
	return p.graph, nil
}

type turtleParser struct {
	src      []rune
	pos      int
	line     int
	col      int
	prefixes map[string]string
	base     string
	graph    *Graph
	blankSeq int
}

func (p *turtleParser) errf(format string, args ...any) error {
	return &ParseError{Line: p.line, Col: p.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *turtleParser) eof() bool { return p.pos >= len(p.src) }

func (p *turtleParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *turtleParser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *turtleParser) skipWS() {
	for !p.eof() {
		r := p.peek()
		if r == '#' {
			for !p.eof() && p.peek() != '\n' {
				p.next()
			}
			continue
		}
		if unicode.IsSpace(r) {
			p.next()
			continue
		}
		return
	}
}

func (p *turtleParser) expect(r rune) error {
	p.skipWS()
	if p.eof() || p.peek() != r {
		return p.errf("expected %q", string(r))
	}
	p.next()
	return nil
}

func (p *turtleParser) newBlank() Term {
	p.blankSeq++
	return Blank(fmt.Sprintf("gen%d", p.blankSeq))
}

func (p *turtleParser) parseDocument() error {
	for {
		p.skipWS()
		if p.eof() {
			return nil
		}
		if p.hasDirective() {
			if err := p.parseDirective(); err != nil {
				return err
			}
			continue
		}
		if err := p.parseTriples(); err != nil {
			return err
		}
		if err := p.expect('.'); err != nil {
			return err
		}
	}
}

func (p *turtleParser) hasDirective() bool {
	if p.peek() == '@' {
		return true
	}
	rest := strings.ToUpper(string(p.src[p.pos:min(p.pos+7, len(p.src))]))
	return strings.HasPrefix(rest, "PREFIX ") || strings.HasPrefix(rest, "BASE ") ||
		strings.HasPrefix(rest, "PREFIX\t") || strings.HasPrefix(rest, "BASE\t")
}

func (p *turtleParser) parseDirective() error {
	sparqlForm := p.peek() != '@'
	word := p.readWord()
	name := strings.ToLower(strings.TrimPrefix(word, "@"))
	switch name {
	case "prefix":
		p.skipWS()
		label, err := p.readPrefixLabel()
		if err != nil {
			return err
		}
		p.skipWS()
		iri, err := p.parseIRIRef()
		if err != nil {
			return err
		}
		p.prefixes[label] = iri
	case "base":
		p.skipWS()
		iri, err := p.parseIRIRef()
		if err != nil {
			return err
		}
		p.base = iri
	default:
		return p.errf("unknown directive %q", word)
	}
	if !sparqlForm {
		return p.expect('.')
	}
	return nil
}

func (p *turtleParser) readWord() string {
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) {
			break
		}
		b.WriteRune(p.next())
	}
	return b.String()
}

func (p *turtleParser) readPrefixLabel() (string, error) {
	var b strings.Builder
	for !p.eof() && p.peek() != ':' {
		r := p.peek()
		if unicode.IsSpace(r) {
			return "", p.errf("malformed prefix label")
		}
		b.WriteRune(p.next())
	}
	if p.eof() {
		return "", p.errf("malformed prefix declaration")
	}
	p.next() // ':'
	return b.String(), nil
}

func (p *turtleParser) parseTriples() error {
	subject, err := p.parseSubject()
	if err != nil {
		return err
	}
	p.skipWS()
	// a bare blank node property list may omit the predicate-object list
	if p.peek() == '.' {
		return nil
	}
	return p.parsePredicateObjectList(subject)
}

func (p *turtleParser) parseSubject() (Term, error) {
	p.skipWS()
	switch p.peek() {
	case '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return Term{}, err
		}
		return IRI(iri), nil
	case '[':
		return p.parseBlankNodePropertyList()
	case '(':
		return p.parseCollection()
	case '_':
		return p.parseBlankLabel()
	default:
		return p.parsePrefixedName()
	}
}

func (p *turtleParser) parsePredicateObjectList(subject Term) error {
	for {
		p.skipWS()
		predicate, err := p.parsePredicate()
		if err != nil {
			return err
		}
		for {
			object, err := p.parseObject()
			if err != nil {
				return err
			}
			p.graph.AddTriple(subject, predicate, object)
			p.skipWS()
			if p.peek() == ',' {
				p.next()
				continue
			}
			break
		}
		p.skipWS()
		if p.peek() == ';' {
			p.next()
			p.skipWS()
			// trailing semicolon before '.' or ']'
			if p.peek() == '.' || p.peek() == ']' {
				return nil
			}
			continue
		}
		return nil
	}
}

func (p *turtleParser) parsePredicate() (Term, error) {
	p.skipWS()
	if p.peek() == '<' {
		iri, err := p.parseIRIRef()
		if err != nil {
			return Term{}, err
		}
		return IRI(iri), nil
	}
	if p.peek() == 'a' && p.pos+1 <= len(p.src) {
		if p.pos+1 == len(p.src) || isTermBoundary(p.src[p.pos+1]) {
			p.next()
			return IRI(IRIType), nil
		}
	}
	return p.parsePrefixedName()
}

func isTermBoundary(r rune) bool {
	return unicode.IsSpace(r) || r == '<' || r == '"' || r == '\'' || r == '[' || r == '('
}

func (p *turtleParser) parseObject() (Term, error) {
	p.skipWS()
	if p.eof() {
		return Term{}, p.errf("unexpected end of input")
	}
	switch r := p.peek(); {
	case r == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return Term{}, err
		}
		return IRI(iri), nil
	case r == '[':
		return p.parseBlankNodePropertyList()
	case r == '(':
		return p.parseCollection()
	case r == '_':
		return p.parseBlankLabel()
	case r == '"' || r == '\'':
		return p.parseLiteral()
	case r == '+' || r == '-' || unicode.IsDigit(r):
		return p.parseNumber()
	default:
		return p.parseKeywordOrPrefixed()
	}
}

func (p *turtleParser) parseKeywordOrPrefixed() (Term, error) {
	start := p.pos
	t, err := p.parsePrefixedName()
	if err != nil {
		word := strings.TrimRight(string(p.src[start:p.pos]), " \t")
		switch word {
		case "true", "false":
			return TypedLiteral(word, XSDBoolean), nil
		}
		return Term{}, err
	}
	return t, nil
}

func (p *turtleParser) parseIRIRef() (string, error) {
	if err := p.expect('<'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errf("unterminated IRI")
		}
		r := p.next()
		if r == '>' {
			break
		}
		if r == '\n' {
			return "", p.errf("newline inside IRI")
		}
		b.WriteRune(r)
	}
	iri := b.String()
	if p.base != "" && !strings.Contains(iri, ":") {
		iri = p.base + iri
	}
	return iri, nil
}

func (p *turtleParser) parseBlankLabel() (Term, error) {
	// consume "_:"
	p.next()
	if p.eof() || p.peek() != ':' {
		return Term{}, p.errf("malformed blank node label")
	}
	p.next()
	var b strings.Builder
	for !p.eof() && isPNChar(p.peek()) {
		b.WriteRune(p.next())
	}
	if b.Len() == 0 {
		return Term{}, p.errf("empty blank node label")
	}
	return Blank(b.String()), nil
}

func isPNChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'
}

func (p *turtleParser) parsePrefixedName() (Term, error) {
	var runes []rune
	for !p.eof() {
		r := p.peek()
		if !isPNChar(r) && r != ':' && r != '%' {
			break
		}
		runes = append(runes, p.next())
	}
	name := strings.TrimSuffix(string(runes), ".")
	// put back a consumed trailing dot (statement terminator)
	if trimmed := len(runes) - len([]rune(name)); trimmed > 0 {
		p.pos -= trimmed
		p.col -= trimmed
	}
	if name == "" {
		return Term{}, p.errf("expected term")
	}
	idx := strings.Index(name, ":")
	if idx < 0 {
		return Term{}, p.errf("expected prefixed name, got %q", name)
	}
	prefix, local := name[:idx], name[idx+1:]
	ns, ok := p.prefixes[prefix]
	if !ok {
		return Term{}, p.errf("undefined prefix %q", prefix)
	}
	return IRI(ns + local), nil
}

func (p *turtleParser) parseBlankNodePropertyList() (Term, error) {
	p.next() // '['
	node := p.newBlank()
	p.skipWS()
	if p.peek() == ']' {
		p.next()
		return node, nil
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return Term{}, err
	}
	if err := p.expect(']'); err != nil {
		return Term{}, err
	}
	return node, nil
}

func (p *turtleParser) parseCollection() (Term, error) {
	p.next() // '('
	var items []Term
	for {
		p.skipWS()
		if p.eof() {
			return Term{}, p.errf("unterminated collection")
		}
		if p.peek() == ')' {
			p.next()
			break
		}
		item, err := p.parseObject()
		if err != nil {
			return Term{}, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return IRI(IRINil), nil
	}
	head := p.newBlank()
	node := head
	for i, item := range items {
		p.graph.AddTriple(node, IRI(IRIFirst), item)
		if i == len(items)-1 {
			p.graph.AddTriple(node, IRI(IRIRest), IRI(IRINil))
			break
		}
		next := p.newBlank()
		p.graph.AddTriple(node, IRI(IRIRest), next)
		node = next
	}
	return head, nil
}

func (p *turtleParser) parseLiteral() (Term, error) {
	quote := p.next()
	var b strings.Builder
	for {
		if p.eof() {
			return Term{}, p.errf("unterminated string literal")
		}
		r := p.next()
		if r == quote {
			break
		}
		if r == '\\' {
			if p.eof() {
				return Term{}, p.errf("unterminated escape")
			}
			esc := p.next()
			switch esc {
			case 't':
				b.WriteRune('\t')
			case 'n':
				b.WriteRune('\n')
			case 'r':
				b.WriteRune('\r')
			case '"', '\'', '\\':
				b.WriteRune(esc)
			case 'u', 'U':
				width := 4
				if esc == 'U' {
					width = 8
				}
				if p.pos+width > len(p.src) {
					return Term{}, p.errf("truncated unicode escape")
				}
				hex := string(p.src[p.pos : p.pos+width])
				code, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return Term{}, p.errf("invalid unicode escape %q", hex)
				}
				for i := 0; i < width; i++ {
					p.next()
				}
				b.WriteRune(rune(code))
			default:
				return Term{}, p.errf("unknown escape \\%c", esc)
			}
			continue
		}
		b.WriteRune(r)
	}
	lex := b.String()

	if !p.eof() && p.peek() == '@' {
		p.next()
		var lang strings.Builder
		for !p.eof() && (unicode.IsLetter(p.peek()) || unicode.IsDigit(p.peek()) || p.peek() == '-') {
			lang.WriteRune(p.next())
		}
		if lang.Len() == 0 {
			return Term{}, p.errf("empty language tag")
		}
		return LangLiteral(lex, lang.String()), nil
	}
	if p.pos+1 < len(p.src) && p.peek() == '^' && p.src[p.pos+1] == '^' {
		p.next()
		p.next()
		p.skipWS()
		var dt Term
		var err error
		if p.peek() == '<' {
			var iri string
			iri, err = p.parseIRIRef()
			dt = IRI(iri)
		} else {
			dt, err = p.parsePrefixedName()
		}
		if err != nil {
			return Term{}, err
		}
		return TypedLiteral(lex, dt.Value), nil
	}
	return Literal(lex), nil
}

func (p *turtleParser) parseNumber() (Term, error) {
	var b strings.Builder
	if p.peek() == '+' || p.peek() == '-' {
		b.WriteRune(p.next())
	}
	sawDot := false
	sawExp := false
	for !p.eof() {
		r := p.peek()
		if unicode.IsDigit(r) {
			b.WriteRune(p.next())
			continue
		}
		if r == '.' && !sawDot && !sawExp {
			// a dot not followed by a digit terminates the statement instead
			if p.pos+1 >= len(p.src) || !unicode.IsDigit(p.src[p.pos+1]) {
				break
			}
			sawDot = true
			b.WriteRune(p.next())
			continue
		}
		if (r == 'e' || r == 'E') && !sawExp {
			sawExp = true
			b.WriteRune(p.next())
			if !p.eof() && (p.peek() == '+' || p.peek() == '-') {
				b.WriteRune(p.next())
			}
			continue
		}
		break
	}
	lex := b.String()
	if _, err := strconv.ParseFloat(lex, 64); err != nil {
		return Term{}, p.errf("malformed number %q", lex)
	}
	switch {
	case sawExp:
		return TypedLiteral(lex, XSDDouble), nil
	case sawDot:
		return TypedLiteral(lex, XSDDecimal), nil
	default:
		return TypedLiteral(lex, XSDInteger), nil
	}
}
