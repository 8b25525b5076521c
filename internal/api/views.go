package api

import (
	"time"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/tabular"
)

type stepView struct {
	ID             string               `json:"id"`
	Name           string               `json:"name,omitempty"`
	Type           domain.OperationType `json:"type"`
	Operation      string               `json:"operation"`
	Params         domain.Variables     `json:"params,omitempty"`
	TimeoutSeconds int                  `json:"timeoutSeconds,omitempty"`
}

type pipelineView struct {
	ID          string           `json:"id"`
	Version     int64            `json:"version"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Steps       []stepView       `json:"steps"`
	Variables   domain.Variables `json:"variables,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func pipelineToView(p domain.Pipeline) pipelineView {
	steps := make([]stepView, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, stepView{
			ID:             s.ID,
			Name:           s.Name,
			Type:           s.OperationType,
			Operation:      s.OperationName,
			Params:         s.Params,
			TimeoutSeconds: s.TimeoutSeconds,
		})
	}
	return pipelineView{
		ID:          p.ID,
		Version:     p.Version,
		Name:        p.Name,
		Description: p.Description,
		Steps:       steps,
		Variables:   p.Variables,
		Tags:        p.Tags,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}

func pipelinesToViews(ps []domain.Pipeline) []pipelineView {
	out := make([]pipelineView, 0, len(ps))
	for _, p := range ps {
		out = append(out, pipelineToView(p))
	}
	return out
}

type jobStepView struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Status     domain.StepStatus `json:"status"`
	DurationMs int64             `json:"durationMs"`
	Metrics    domain.JobMetrics `json:"metrics"`
	Error      string            `json:"error,omitempty"`
}

type jobView struct {
	ID              string               `json:"id"`
	PipelineID      string               `json:"pipelineId"`
	PipelineVersion int64                `json:"pipelineVersion"`
	Status          domain.JobStatus     `json:"status"`
	Priority        int                  `json:"priority"`
	Progress        int                  `json:"progress"`
	Variables       domain.Variables     `json:"variables,omitempty"`
	TriggeredBy     domain.TriggerKind   `json:"triggeredBy"`
	ScheduleID      string               `json:"scheduleId,omitempty"`
	RetryOf         string               `json:"retryOf,omitempty"`
	StartedAt       *time.Time           `json:"startedAt,omitempty"`
	CompletedAt     *time.Time           `json:"completedAt,omitempty"`
	Metrics         domain.JobMetrics    `json:"metrics"`
	ErrorMessage    string               `json:"errorMessage,omitempty"`
	ErrorDetails    *domain.ErrorDetails `json:"errorDetails,omitempty"`
	OutputGraph     string               `json:"outputGraph,omitempty"`
	Steps           []jobStepView        `json:"steps"`
	CreatedBy       string               `json:"createdBy"`
	CreatedAt       time.Time            `json:"createdAt"`
}

func jobToView(j domain.Job) jobView {
	steps := make([]jobStepView, 0, len(j.Steps))
	for _, s := range j.Steps {
		steps = append(steps, jobStepView{
			ID:         s.ID,
			Name:       s.Name,
			Status:     s.Status,
			DurationMs: s.Duration.Milliseconds(),
			Metrics:    s.Metrics,
			Error:      s.Error,
		})
	}
	return jobView{
		ID:              j.ID,
		PipelineID:      j.PipelineID,
		PipelineVersion: j.PipelineVersion,
		Status:          j.Status,
		Priority:        j.Priority,
		Progress:        j.Progress,
		Variables:       j.Variables,
		TriggeredBy:     j.TriggeredBy,
		ScheduleID:      j.ScheduleID,
		RetryOf:         j.RetryOf,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		Metrics:         j.Metrics,
		ErrorMessage:    j.ErrorMessage,
		ErrorDetails:    j.ErrorDetails,
		OutputGraph:     j.OutputGraph,
		Steps:           steps,
		CreatedBy:       j.CreatedBy,
		CreatedAt:       j.CreatedAt,
	}
}

type jobLogView struct {
	Timestamp time.Time        `json:"timestamp"`
	Level     domain.LogLevel  `json:"level"`
	Step      string           `json:"step,omitempty"`
	Message   string           `json:"message"`
	Details   domain.Variables `json:"details,omitempty"`
}

func jobLogToView(l domain.JobLog) jobLogView {
	return jobLogView{
		Timestamp: l.Timestamp,
		Level:     l.Level,
		Step:      l.Step,
		Message:   l.Message,
		Details:   l.Details,
	}
}

type scheduleView struct {
	ID             string           `json:"id"`
	PipelineID     string           `json:"pipelineId"`
	CronExpression string           `json:"cronExpression"`
	Variables      domain.Variables `json:"variables,omitempty"`
	IsActive       bool             `json:"isActive"`
	LastRun        *time.Time       `json:"lastRun,omitempty"`
	NextRun        *time.Time       `json:"nextRun,omitempty"`
	CreatedBy      string           `json:"createdBy"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func scheduleToView(s domain.JobSchedule) scheduleView {
	return scheduleView{
		ID:             s.ID,
		PipelineID:     s.PipelineID,
		CronExpression: s.CronExpression,
		Variables:      s.Variables,
		IsActive:       s.IsActive,
		LastRun:        s.LastRun,
		NextRun:        s.NextRun,
		CreatedBy:      s.CreatedBy,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type shapeView struct {
	ID            string                 `json:"id"`
	URI           string                 `json:"uri"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Content       string                 `json:"content,omitempty"`
	ContentFormat domain.ContentFormat   `json:"contentFormat,omitempty"`
	TargetClass   string                 `json:"targetClass,omitempty"`
	Category      string                 `json:"category,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	IsTemplate    bool                   `json:"isTemplate"`
	Properties    []domain.PropertyShape `json:"properties,omitempty"`
	Version       int64                  `json:"version"`
	CreatedBy     string                 `json:"createdBy"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func shapeToView(s domain.Shape) shapeView {
	return shapeView{
		ID:            s.ID,
		URI:           s.URI,
		Name:          s.Name,
		Description:   s.Description,
		Content:       s.Content,
		ContentFormat: s.ContentFormat,
		TargetClass:   s.TargetClass,
		Category:      s.Category,
		Tags:          s.Tags,
		IsTemplate:    s.IsTemplate,
		Properties:    s.Properties,
		Version:       s.Version,
		CreatedBy:     s.CreatedBy,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func shapesToViews(ss []domain.Shape) []shapeView {
	out := make([]shapeView, 0, len(ss))
	for _, s := range ss {
		out = append(out, shapeToView(s))
	}
	return out
}

type dataSourceView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Format      domain.SourceFormat `json:"format"`
	SizeBytes   int64               `json:"sizeBytes"`
	RowCount    int64               `json:"rowCount"`
	ColumnCount int                 `json:"columnCount"`
	Schema      []domain.ColumnInfo `json:"schema,omitempty"`
	Encoding    string              `json:"encoding,omitempty"`
	Delimiter   string              `json:"delimiter,omitempty"`
	HasHeader   bool                `json:"hasHeader"`
	AnalyzedAt  *time.Time          `json:"analyzedAt,omitempty"`
	CreatedBy   string              `json:"createdBy"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func dataSourceToView(d domain.DataSource) dataSourceView {
	return dataSourceView{
		ID:          d.ID,
		Name:        d.Name,
		Format:      d.Format,
		SizeBytes:   d.SizeBytes,
		RowCount:    d.RowCount,
		ColumnCount: d.ColumnCount,
		Schema:      d.Schema,
		Encoding:    d.Encoding,
		Delimiter:   d.Delimiter,
		HasHeader:   d.HasHeader,
		AnalyzedAt:  d.AnalyzedAt,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt,
	}
}

// connectionView never carries the password.
type connectionView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	QueryEndpoint  string    `json:"queryEndpoint"`
	UpdateEndpoint string    `json:"updateEndpoint,omitempty"`
	Username       string    `json:"username,omitempty"`
	IsDefault      bool      `json:"isDefault"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

func connectionToView(c domain.TriplestoreConnection) connectionView {
	return connectionView{
		ID:             c.ID,
		Name:           c.Name,
		QueryEndpoint:  c.QueryEndpoint,
		UpdateEndpoint: c.UpdateEndpoint,
		Username:       c.Username,
		IsDefault:      c.IsDefault,
		CreatedBy:      c.CreatedBy,
		CreatedAt:      c.CreatedAt,
	}
}

type paramSpecView struct {
	Type     domain.ParamType `json:"type"`
	Required bool             `json:"required"`
	Default  *domain.Value    `json:"default,omitempty"`
}

type operationView struct {
	Name        string                   `json:"name"`
	Type        domain.OperationType     `json:"type"`
	Description string                   `json:"description,omitempty"`
	Parameters  map[string]paramSpecView `json:"parameters"`
}

func operationToView(op domain.Operation) operationView {
	params := make(map[string]paramSpecView, len(op.Parameters))
	for name, spec := range op.Parameters {
		view := paramSpecView{Type: spec.Type, Required: spec.Required}
		if !spec.Default.IsNull() {
			def := spec.Default
			view.Default = &def
		}
		params[name] = view
	}
	return operationView{
		Name:        op.Name,
		Type:        op.Type,
		Description: op.Description,
		Parameters:  params,
	}
}

type previewColumn struct {
	Name string            `json:"name"`
	Type domain.ColumnType `json:"type"`
}

type previewView struct {
	Columns []previewColumn  `json:"columns"`
	Rows    [][]domain.Value `json:"rows"`
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
}

func previewColumns(cols []tabular.Column) []previewColumn {
	out := make([]previewColumn, 0, len(cols))
	for _, c := range cols {
		out = append(out, previewColumn{Name: c.Name, Type: c.Type})
	}
	return out
}
