// Package operation holds the static catalog of built-in step operations
// and the parameter schema check applied once per step before execution.
package operation

import (
	"sort"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
)

// Built-in operation names.
const (
	LoadCSV       = "load_csv"
	RenameColumn  = "rename_column"
	DeriveColumn  = "derive_column"
	FilterRows    = "filter_rows"
	CastColumn    = "cast_column"
	MapCube       = "map_cube"
	SHACLValidate = "shacl_validate"
	WriteGraph    = "write_graph"
)

// Catalog is the read-only registry of built-in operations.
type Catalog struct {
	ops map[string]domain.Operation
}

// Builtin returns the full catalog of operations the executor implements.
func Builtin() *Catalog {
	ops := []domain.Operation{
		{
			Name:        LoadCSV,
			Type:        domain.OpSource,
			Description: "Read a registered tabular data source into the working dataset.",
			Parameters: map[string]domain.ParamSpec{
				"sourceId":  {Type: domain.ParamString, Required: true},
				"delimiter": {Type: domain.ParamString},
				"hasHeader": {Type: domain.ParamBool, Default: domain.Bool(true)},
				"limit":     {Type: domain.ParamNumber},
			},
		},
		{
			Name:        RenameColumn,
			Type:        domain.OpTransform,
			Description: "Rename one column of the working dataset.",
			Parameters: map[string]domain.ParamSpec{
				"from": {Type: domain.ParamString, Required: true},
				"to":   {Type: domain.ParamString, Required: true},
			},
		},
		{
			Name:        DeriveColumn,
			Type:        domain.OpTransform,
			Description: "Append a column rendered from a template over existing columns.",
			Parameters: map[string]domain.ParamSpec{
				"name":     {Type: domain.ParamString, Required: true},
				"template": {Type: domain.ParamString, Required: true},
			},
		},
		{
			Name:        FilterRows,
			Type:        domain.OpTransform,
			Description: "Keep only rows whose column satisfies the comparison.",
			Parameters: map[string]domain.ParamSpec{
				"column":   {Type: domain.ParamString, Required: true},
				"operator": {Type: domain.ParamString, Required: true},
				"value":    {Type: domain.ParamString, Required: true},
			},
		},
		{
			Name:        CastColumn,
			Type:        domain.OpTransform,
			Description: "Cast a column to a declared type, tolerating malformed cells up to the error-rate threshold.",
			Parameters: map[string]domain.ParamSpec{
				"column":       {Type: domain.ParamString, Required: true},
				"type":         {Type: domain.ParamString, Required: true},
				"maxErrorRate": {Type: domain.ParamNumber, Default: domain.Number(0)},
			},
		},
		{
			Name:        MapCube,
			Type:        domain.OpCube,
			Description: "Map dataset rows to RDF observation quads per a dimension/measure mapping.",
			Parameters: map[string]domain.ParamSpec{
				"cube":         {Type: domain.ParamString, Required: true},
				"dimensions":   {Type: domain.ParamMap, Required: true},
				"measures":     {Type: domain.ParamMap, Required: true},
				"maxErrorRate": {Type: domain.ParamNumber, Default: domain.Number(0)},
			},
		},
		{
			Name:        SHACLValidate,
			Type:        domain.OpValidation,
			Description: "Validate the in-flight graph against a registered shape.",
			Parameters: map[string]domain.ParamSpec{
				"shapeId":         {Type: domain.ParamString, Required: true},
				"failOnViolation": {Type: domain.ParamBool, Default: domain.Bool(true)},
			},
		},
		{
			Name:        WriteGraph,
			Type:        domain.OpOutput,
			Description: "Write the in-flight quads to a triplestore graph.",
			Parameters: map[string]domain.ParamSpec{
				"graph":        {Type: domain.ParamString, Required: true},
				"mode":         {Type: domain.ParamString, Default: domain.String("replace")},
				"connectionId": {Type: domain.ParamString},
			},
		},
	}
	byName := make(map[string]domain.Operation, len(ops))
	for _, op := range ops {
		byName[op.Name] = op
	}
	return &Catalog{ops: byName}
}

func (c *Catalog) Get(name string) (domain.Operation, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// List returns all operations sorted by name.
func (c *Catalog) List() []domain.Operation {
	out := make([]domain.Operation, 0, len(c.ops))
	for _, op := range c.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveParams checks a step's params against the operation schema and
// returns the effective params with defaults applied. The check runs once
// per step; all failures carry the parameter error kind.
func (c *Catalog) ResolveParams(step domain.Step) (domain.Variables, error) {
	op, ok := c.Get(step.OperationName)
	if !ok {
		return nil, domain.Errf(domain.ErrKindParameter, "unknown operation %q", step.OperationName)
	}
	if op.Type != step.OperationType {
		return nil, domain.Errf(domain.ErrKindParameter,
			"operation %q has type %s, step %q declares %s",
			op.Name, op.Type, step.ID, step.OperationType)
	}

	resolved := make(domain.Variables, len(op.Parameters))
	for name, spec := range op.Parameters {
		v, present := step.Params[name]
		if !present || v.IsNull() {
			if spec.Required {
				return nil, domain.Errf(domain.ErrKindParameter,
					"operation %q: missing required parameter %q", op.Name, name)
			}
			if !spec.Default.IsNull() {
				resolved[name] = spec.Default
			}
			continue
		}
		if !spec.Type.Matches(v) {
			return nil, domain.Errf(domain.ErrKindParameter,
				"operation %q: parameter %q expects %s, got %s", op.Name, name, spec.Type, v.Kind())
		}
		resolved[name] = v
	}
	for name := range step.Params {
		if _, declared := op.Parameters[name]; !declared {
			return nil, domain.Errf(domain.ErrKindParameter,
				"operation %q: unknown parameter %q", op.Name, name)
		}
	}
	return resolved, nil
}
