package api

import (
	"net/http"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/jobs"
)

type jobAPI struct {
	svc *jobs.Service
}

func newJobAPI(svc *jobs.Service) *jobAPI {
	return &jobAPI{svc: svc}
}

func (api *jobAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /jobs", api.handleList)
	mux.HandleFunc("POST /jobs", api.handleCreate)
	mux.HandleFunc("GET /jobs/{job_id}", api.handleGet)
	mux.HandleFunc("POST /jobs/{job_id}/cancel", api.handleCancel)
	mux.HandleFunc("POST /jobs/{job_id}/retry", api.handleRetry)
	mux.HandleFunc("GET /jobs/{job_id}/logs", api.handleLogs)
	mux.HandleFunc("GET /jobs/{job_id}/metrics", api.handleMetrics)
}

func (api *jobAPI) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageQuery(r)
	filter := repo.JobFilter{
		Status:     domain.JobStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))),
		PipelineID: strings.TrimSpace(r.URL.Query().Get("pipelineId")),
		Limit:      limit,
		Offset:     offset,
	}
	out, err := api.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views := make([]jobView, 0, len(out))
	for _, j := range out {
		views = append(views, jobToView(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

type createJobRequest struct {
	PipelineID string         `json:"pipelineId"`
	Variables  map[string]any `json:"variables,omitempty"`
	Priority   int            `json:"priority,omitempty"`
}

func (api *jobAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.PipelineID) == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	vars, err := domain.VariablesFromAny(req.Variables)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	job, err := api.svc.Create(r.Context(), req.PipelineID, vars, req.Priority, actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusCreated, jobToView(job))
}

func (api *jobAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("job_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "job_id_required", "")
		return
	}
	job, err := api.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToView(job))
}

func (api *jobAPI) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("job_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "job_id_required", "")
		return
	}
	job, err := api.svc.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToView(job))
}

func (api *jobAPI) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("job_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "job_id_required", "")
		return
	}
	job, err := api.svc.Retry(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/jobs/"+job.ID)
	writeJSON(w, http.StatusCreated, jobToView(job))
}

func (api *jobAPI) handleLogs(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("job_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "job_id_required", "")
		return
	}
	limit, offset := pageQuery(r)
	filter := repo.LogFilter{
		Level:  domain.LogLevel(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("level")))),
		Limit:  limit,
		Offset: offset,
	}
	logs, err := api.svc.Logs(r.Context(), id, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views := make([]jobLogView, 0, len(logs))
	for _, l := range logs {
		views = append(views, jobLogToView(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": views})
}

func (api *jobAPI) handleMetrics(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("job_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "job_id_required", "")
		return
	}
	metrics, err := api.svc.Metrics(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
