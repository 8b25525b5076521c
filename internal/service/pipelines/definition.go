package pipelines

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
)

// definitionDoc is the wire shape shared by the YAML and JSON definition
// formats.
type definitionDoc struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description"`
	Variables   map[string]any `yaml:"variables" json:"variables"`
	Tags        []string       `yaml:"tags" json:"tags"`
	Steps       []stepDoc      `yaml:"steps" json:"steps"`
}

type stepDoc struct {
	ID             string         `yaml:"id" json:"id"`
	Name           string         `yaml:"name" json:"name"`
	Type           string         `yaml:"type" json:"type"`
	Operation      string         `yaml:"operation" json:"operation"`
	Params         map[string]any `yaml:"params" json:"params"`
	TimeoutSeconds int            `yaml:"timeoutSeconds" json:"timeoutSeconds"`
}

// ParseDefinition decodes a pipeline definition in the given format into
// the common pipeline shape. Identity and version fields stay unset; the
// caller assigns them.
func ParseDefinition(definition string, format domain.DefinitionFormat) (domain.Pipeline, error) {
	switch format {
	case domain.FormatYAML:
		var doc definitionDoc
		if err := yaml.Unmarshal([]byte(definition), &doc); err != nil {
			return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, "parse yaml definition")
		}
		return docToPipeline(doc)
	case domain.FormatJSON:
		var doc definitionDoc
		if err := json.Unmarshal([]byte(definition), &doc); err != nil {
			return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, "parse json definition")
		}
		return docToPipeline(doc)
	case domain.FormatTurtle:
		return parseTurtleDefinition(definition)
	default:
		return domain.Pipeline{}, domain.Errf(domain.ErrKindValidation, "unknown definition format %q", format)
	}
}

func docToPipeline(doc definitionDoc) (domain.Pipeline, error) {
	vars, err := domain.VariablesFromAny(doc.Variables)
	if err != nil {
		return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, "definition variables")
	}
	p := domain.Pipeline{
		Name:        doc.Name,
		Description: doc.Description,
		Variables:   vars,
		Tags:        doc.Tags,
		Steps:       make([]domain.Step, 0, len(doc.Steps)),
	}
	for i, sd := range doc.Steps {
		opType, err := domain.ParseOperationType(sd.Type)
		if err != nil {
			return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, fmt.Sprintf("step[%d]", i))
		}
		params, err := domain.VariablesFromAny(sd.Params)
		if err != nil {
			return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, fmt.Sprintf("step[%d] params", i))
		}
		id := sd.ID
		if id == "" {
			id = fmt.Sprintf("step-%d", i+1)
		}
		p.Steps = append(p.Steps, domain.Step{
			ID:             id,
			Name:           sd.Name,
			OperationType:  opType,
			OperationName:  sd.Operation,
			Params:         params,
			TimeoutSeconds: sd.TimeoutSeconds,
		})
	}
	return p, nil
}

// Pipeline definition vocabulary for the TURTLE format.
const (
	nsQF            = "https://vocab.quadflow.dev/pipeline#"
	iriPipeline     = nsQF + "Pipeline"
	iriName         = nsQF + "name"
	iriDescription  = nsQF + "description"
	iriSteps        = nsQF + "steps"
	iriStepID       = nsQF + "stepId"
	iriStepType     = nsQF + "stepType"
	iriOperation    = nsQF + "operation"
	iriParam        = nsQF + "param"
	iriParamName    = nsQF + "paramName"
	iriParamValue   = nsQF + "paramValue"
	iriVariable     = nsQF + "variable"
	iriVariableName = nsQF + "variableName"
	iriTag          = nsQF + "tag"
	iriTimeout      = nsQF + "timeoutSeconds"
)

// parseTurtleDefinition reads a pipeline described as a qf:Pipeline node
// whose qf:steps is an ordered rdf:List of step nodes.
func parseTurtleDefinition(definition string) (domain.Pipeline, error) {
	g, err := rdf.ParseTurtle(definition)
	if err != nil {
		return domain.Pipeline{}, domain.WrapErr(domain.ErrKindValidation, err, "parse turtle definition")
	}
	roots := g.SubjectsWithType(rdf.IRI(iriPipeline))
	if len(roots) != 1 {
		return domain.Pipeline{}, domain.Errf(domain.ErrKindValidation,
			"definition must contain exactly one pipeline node, found %d", len(roots))
	}
	root := roots[0]

	p := domain.Pipeline{
		Variables: domain.Variables{},
	}
	if t, ok := g.Object(root, rdf.IRI(iriName)); ok {
		p.Name = t.Value
	}
	if t, ok := g.Object(root, rdf.IRI(iriDescription)); ok {
		p.Description = t.Value
	}
	for _, t := range g.Objects(root, rdf.IRI(iriTag)) {
		p.Tags = append(p.Tags, t.Value)
	}
	for _, v := range g.Objects(root, rdf.IRI(iriVariable)) {
		name, ok := g.Object(v, rdf.IRI(iriVariableName))
		if !ok {
			return domain.Pipeline{}, domain.Errf(domain.ErrKindValidation, "pipeline variable without a name")
		}
		value, _ := g.Object(v, rdf.IRI(iriParamValue))
		p.Variables[name.Value] = literalValue(value)
	}

	head, ok := g.Object(root, rdf.IRI(iriSteps))
	if !ok {
		return p, nil
	}
	stepNodes, ok := g.List(head)
	if !ok {
		return domain.Pipeline{}, domain.Errf(domain.ErrKindValidation, "pipeline steps must form a well-formed list")
	}
	for i, node := range stepNodes {
		step, err := parseTurtleStep(g, node, i)
		if err != nil {
			return domain.Pipeline{}, err
		}
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func parseTurtleStep(g *rdf.Graph, node rdf.Term, i int) (domain.Step, error) {
	step := domain.Step{Params: domain.Variables{}}
	if t, ok := g.Object(node, rdf.IRI(iriStepID)); ok {
		step.ID = t.Value
	} else {
		step.ID = fmt.Sprintf("step-%d", i+1)
	}
	if t, ok := g.Object(node, rdf.IRI(iriName)); ok {
		step.Name = t.Value
	}
	rawType, ok := g.Object(node, rdf.IRI(iriStepType))
	if !ok {
		return domain.Step{}, domain.Errf(domain.ErrKindValidation, "step[%d] has no type", i)
	}
	opType, err := domain.ParseOperationType(rawType.Value)
	if err != nil {
		return domain.Step{}, domain.WrapErr(domain.ErrKindValidation, err, fmt.Sprintf("step[%d]", i))
	}
	step.OperationType = opType
	if t, ok := g.Object(node, rdf.IRI(iriOperation)); ok {
		step.OperationName = t.Value
	}
	if t, ok := g.Object(node, rdf.IRI(iriTimeout)); ok {
		var secs int
		if _, err := fmt.Sscanf(t.Value, "%d", &secs); err == nil {
			step.TimeoutSeconds = secs
		}
	}
	for _, pn := range g.Objects(node, rdf.IRI(iriParam)) {
		name, ok := g.Object(pn, rdf.IRI(iriParamName))
		if !ok {
			return domain.Step{}, domain.Errf(domain.ErrKindValidation, "step[%d]: param without a name", i)
		}
		value, _ := g.Object(pn, rdf.IRI(iriParamValue))
		step.Params[name.Value] = literalValue(value)
	}
	return step, nil
}

// literalValue maps an RDF term to a param value, honoring numeric and
// boolean datatypes.
func literalValue(t rdf.Term) domain.Value {
	if t.IsZero() {
		return domain.Null()
	}
	if t.IsIRI() {
		return domain.String(t.Value)
	}
	switch t.Datatype {
	case rdf.XSDInteger, rdf.XSDDecimal, rdf.XSDDouble:
		var f float64
		if _, err := fmt.Sscanf(t.Value, "%g", &f); err == nil {
			return domain.Number(f)
		}
	case rdf.XSDBoolean:
		return domain.Bool(strings.EqualFold(t.Value, "true"))
	}
	return domain.String(t.Value)
}
