package rdf

import "sort"

// Graph is an in-memory triple set indexed by subject. Insertion order is
// preserved; duplicate triples are dropped.
type Graph struct {
	quads     []Quad
	bySubject map[Term][]int
	seen      map[Quad]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		bySubject: make(map[Term][]int),
		seen:      make(map[Quad]struct{}),
	}
}

func (g *Graph) Add(q Quad) {
	if _, dup := g.seen[q]; dup {
		return
	}
	g.seen[q] = struct{}{}
	g.bySubject[q.Subject] = append(g.bySubject[q.Subject], len(g.quads))
	g.quads = append(g.quads, q)
}

func (g *Graph) AddTriple(s, p, o Term) {
	g.Add(Quad{Subject: s, Predicate: p, Object: o})
}

func (g *Graph) Len() int { return len(g.quads) }

// Quads returns the triples in insertion order. The slice is shared; callers
// must not mutate it.
func (g *Graph) Quads() []Quad { return g.quads }

// Objects returns all objects of (s, p) triples, in insertion order.
func (g *Graph) Objects(s, p Term) []Term {
	var out []Term
	for _, i := range g.bySubject[s] {
		if g.quads[i].Predicate == p {
			out = append(out, g.quads[i].Object)
		}
	}
	return out
}

// Object returns the first object of (s, p), if any.
func (g *Graph) Object(s, p Term) (Term, bool) {
	for _, i := range g.bySubject[s] {
		if g.quads[i].Predicate == p {
			return g.quads[i].Object, true
		}
	}
	return Term{}, false
}

// Subjects returns the distinct subjects of (p, o) triples.
func (g *Graph) Subjects(p, o Term) []Term {
	var out []Term
	seen := make(map[Term]struct{})
	for _, q := range g.quads {
		if q.Predicate == p && q.Object == o {
			if _, dup := seen[q.Subject]; dup {
				continue
			}
			seen[q.Subject] = struct{}{}
			out = append(out, q.Subject)
		}
	}
	return out
}

// SubjectsWithType returns the distinct subjects carrying rdf:type class.
func (g *Graph) SubjectsWithType(class Term) []Term {
	return g.Subjects(IRI(IRIType), class)
}

// AllSubjects returns every distinct subject, sorted for stable iteration.
func (g *Graph) AllSubjects() []Term {
	out := make([]Term, 0, len(g.bySubject))
	for s := range g.bySubject {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// PredicatesOf returns the distinct predicates appearing on subject s.
func (g *Graph) PredicatesOf(s Term) []Term {
	var out []Term
	seen := make(map[Term]struct{})
	for _, i := range g.bySubject[s] {
		p := g.quads[i].Predicate
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Incoming returns all quads whose object is o.
func (g *Graph) Incoming(o Term) []Quad {
	var out []Quad
	for _, q := range g.quads {
		if q.Object == o {
			out = append(out, q)
		}
	}
	return out
}

// List traverses an rdf:first/rdf:rest chain starting at head. Returns
// false when head is not a well-formed list.
func (g *Graph) List(head Term) ([]Term, bool) {
	var items []Term
	node := head
	for i := 0; i <= g.Len(); i++ {
		if node == IRI(IRINil) {
			return items, true
		}
		first, ok := g.Object(node, IRI(IRIFirst))
		if !ok {
			return nil, false
		}
		items = append(items, first)
		rest, ok := g.Object(node, IRI(IRIRest))
		if !ok {
			return nil, false
		}
		node = rest
	}
	// cycle guard exhausted
	return nil, false
}
