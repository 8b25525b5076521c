// Package execution runs individual pipeline steps and threads the working
// dataset/graph state between them.
package execution

import (
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

// State is the implicit context threaded from one step's output to the next
// step's input. SOURCE and TRANSFORM steps work on Dataset; CUBE produces
// Quads; VALIDATION and OUTPUT consume Quads.
type State struct {
	Dataset *tabular.Dataset
	Quads   []rdf.Quad
}

// GraphView materializes the in-flight quads as a queryable graph.
func (s *State) GraphView() *rdf.Graph {
	g := rdf.NewGraph()
	for _, q := range s.Quads {
		g.Add(q)
	}
	return g
}

// LogFunc receives step-emitted log entries. The runner persists them as
// JobLog rows in emission order.
type LogFunc func(level domain.LogLevel, message string, details domain.Variables)

func nopLog(domain.LogLevel, string, domain.Variables) {}

// expandTemplate substitutes ${name} references using the lookup. Unknown
// references expand to the empty string; a lone '$' passes through.
func expandTemplate(tmpl string, lookup func(name string) (domain.Value, bool)) string {
	var b strings.Builder
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '$' && i+1 < len(tmpl) && tmpl[i+1] == '{' {
			end := strings.IndexByte(tmpl[i+2:], '}')
			if end >= 0 {
				name := tmpl[i+2 : i+2+end]
				if v, ok := lookup(name); ok {
					b.WriteString(v.Render())
				}
				i += end + 3
				continue
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String()
}
