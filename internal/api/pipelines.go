package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/scheduler"
	"github.com/quadflow-labs/quadflow-go/internal/service/pipelines"
)

type pipelineAPI struct {
	svc *pipelines.Service
}

func newPipelineAPI(svc *pipelines.Service) *pipelineAPI {
	return &pipelineAPI{svc: svc}
}

func (api *pipelineAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /pipelines", api.handleList)
	mux.HandleFunc("POST /pipelines", api.handleCreate)
	mux.HandleFunc("GET /pipelines/operations", api.handleOperations)
	mux.HandleFunc("POST /pipelines/validate", api.handleValidate)
	mux.HandleFunc("GET /pipelines/{pipeline_id}", api.handleGet)
	mux.HandleFunc("PUT /pipelines/{pipeline_id}", api.handleUpdate)
	mux.HandleFunc("DELETE /pipelines/{pipeline_id}", api.handleDelete)
	mux.HandleFunc("POST /pipelines/{pipeline_id}/duplicate", api.handleDuplicate)
	mux.HandleFunc("POST /pipelines/{pipeline_id}/run", api.handleRun)
	mux.HandleFunc("GET /pipelines/{pipeline_id}/versions", api.handleListVersions)
	mux.HandleFunc("GET /pipelines/{pipeline_id}/versions/{version}", api.handleGetVersion)
}

type pipelineRequest struct {
	Name             string         `json:"name"`
	Definition       string         `json:"definition"`
	DefinitionFormat string         `json:"definitionFormat"`
	Variables        map[string]any `json:"variables,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
}

func (req pipelineRequest) toDefinition(createdBy string) (pipelines.DefinitionRequest, error) {
	format := domain.FormatYAML
	if strings.TrimSpace(req.DefinitionFormat) != "" {
		parsed, err := domain.ParseDefinitionFormat(req.DefinitionFormat)
		if err != nil {
			return pipelines.DefinitionRequest{}, err
		}
		format = parsed
	}
	vars, err := domain.VariablesFromAny(req.Variables)
	if err != nil {
		return pipelines.DefinitionRequest{}, err
	}
	return pipelines.DefinitionRequest{
		Name:             req.Name,
		Definition:       req.Definition,
		DefinitionFormat: format,
		Variables:        vars,
		Tags:             req.Tags,
		CreatedBy:        createdBy,
	}, nil
}

func (api *pipelineAPI) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageQuery(r)
	filter := repo.PipelineFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Tag:    strings.TrimSpace(r.URL.Query().Get("tag")),
		Limit:  limit,
		Offset: offset,
	}
	out, err := api.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pipelines": pipelinesToViews(out)})
}

func (api *pipelineAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	def, err := req.toDefinition(actor(r))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := api.svc.Create(r.Context(), def)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/pipelines/"+p.ID)
	writeJSON(w, http.StatusCreated, pipelineToView(p))
}

func (api *pipelineAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	p, err := api.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineToView(p))
}

func (api *pipelineAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	var req pipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	def, err := req.toDefinition(actor(r))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	p, err := api.svc.Update(r.Context(), id, def)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineToView(p))
}

func (api *pipelineAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	if err := api.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *pipelineAPI) handleDuplicate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	p, err := api.svc.Duplicate(r.Context(), id, actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/pipelines/"+p.ID)
	writeJSON(w, http.StatusCreated, pipelineToView(p))
}

type validateDefinitionRequest struct {
	Definition       string `json:"definition"`
	DefinitionFormat string `json:"definitionFormat"`
}

func (api *pipelineAPI) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateDefinitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	format := domain.FormatYAML
	if strings.TrimSpace(req.DefinitionFormat) != "" {
		parsed, err := domain.ParseDefinitionFormat(req.DefinitionFormat)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		format = parsed
	}
	issues := api.svc.ValidateDefinition(req.Definition, format)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

type runPipelineRequest struct {
	Variables map[string]any `json:"variables,omitempty"`
	Priority  int            `json:"priority,omitempty"`
}

func (api *pipelineAPI) handleRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	req := runPipelineRequest{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
	}
	vars, err := domain.VariablesFromAny(req.Variables)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	job, err := api.svc.Run(r.Context(), id, scheduler.TriggerRequest{
		Variables:   vars,
		Priority:    req.Priority,
		TriggeredBy: domain.TriggerManual,
		CreatedBy:   actor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, jobToView(job))
}

func (api *pipelineAPI) handleOperations(w http.ResponseWriter, r *http.Request) {
	ops := api.svc.Operations()
	out := make([]operationView, 0, len(ops))
	for _, op := range ops {
		out = append(out, operationToView(op))
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": out})
}

func (api *pipelineAPI) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	versions, err := api.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (api *pipelineAPI) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("pipeline_id"))
	version, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("version")), 10, 64)
	if id == "" || err != nil || version < 1 {
		writeError(w, r, http.StatusBadRequest, "invalid_version", "")
		return
	}
	p, err := api.svc.GetVersion(r.Context(), id, version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineToView(p))
}
