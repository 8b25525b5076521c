package api

import (
	"net/http"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/schedules"
)

type scheduleAPI struct {
	svc *schedules.Service
}

func newScheduleAPI(svc *schedules.Service) *scheduleAPI {
	return &scheduleAPI{svc: svc}
}

func (api *scheduleAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /schedules", api.handleList)
	mux.HandleFunc("POST /schedules", api.handleCreate)
	mux.HandleFunc("GET /schedules/{schedule_id}", api.handleGet)
	mux.HandleFunc("PUT /schedules/{schedule_id}", api.handleUpdate)
	mux.HandleFunc("DELETE /schedules/{schedule_id}", api.handleDelete)
}

func (api *scheduleAPI) handleList(w http.ResponseWriter, r *http.Request) {
	filter := repo.ScheduleFilter{
		PipelineID: strings.TrimSpace(r.URL.Query().Get("pipelineId")),
		ActiveOnly: strings.TrimSpace(r.URL.Query().Get("active")) == "true",
	}
	out, err := api.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views := make([]scheduleView, 0, len(out))
	for _, s := range out {
		views = append(views, scheduleToView(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": views})
}

type createScheduleRequest struct {
	PipelineID     string         `json:"pipelineId"`
	CronExpression string         `json:"cronExpression"`
	Variables      map[string]any `json:"variables,omitempty"`
}

func (api *scheduleAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.PipelineID) == "" {
		writeError(w, r, http.StatusBadRequest, "pipeline_id_required", "")
		return
	}
	if strings.TrimSpace(req.CronExpression) == "" {
		writeError(w, r, http.StatusBadRequest, "cron_expression_required", "")
		return
	}
	vars, err := domain.VariablesFromAny(req.Variables)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	sched, err := api.svc.Create(r.Context(), req.PipelineID, req.CronExpression, vars, actor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/schedules/"+sched.ID)
	writeJSON(w, http.StatusCreated, scheduleToView(sched))
}

func (api *scheduleAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("schedule_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "schedule_id_required", "")
		return
	}
	sched, err := api.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToView(sched))
}

type updateScheduleRequest struct {
	CronExpression *string        `json:"cronExpression,omitempty"`
	Variables      map[string]any `json:"variables,omitempty"`
	IsActive       *bool          `json:"isActive,omitempty"`
}

func (api *scheduleAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("schedule_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "schedule_id_required", "")
		return
	}
	var req updateScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	update := schedules.UpdateRequest{
		CronExpression: req.CronExpression,
		IsActive:       req.IsActive,
	}
	if req.Variables != nil {
		vars, err := domain.VariablesFromAny(req.Variables)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		update.Variables = vars
	}
	sched, err := api.svc.Update(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToView(sched))
}

func (api *scheduleAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("schedule_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "schedule_id_required", "")
		return
	}
	if err := api.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
