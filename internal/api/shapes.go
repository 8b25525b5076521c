package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/connections"
	"github.com/quadflow-labs/quadflow-go/internal/service/shapes"
	"github.com/quadflow-labs/quadflow-go/internal/service/validation"
)

type shapeAPI struct {
	svc       *shapes.Service
	validator *validation.Service
}

func newShapeAPI(svc *shapes.Service, validator *validation.Service) *shapeAPI {
	return &shapeAPI{svc: svc, validator: validator}
}

func (api *shapeAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /shapes", api.handleList)
	mux.HandleFunc("POST /shapes", api.handleCreate)
	mux.HandleFunc("GET /shapes/templates", api.handleTemplates)
	mux.HandleFunc("POST /shapes/validate-syntax", api.handleValidateSyntax)
	mux.HandleFunc("POST /shapes/infer", api.handleInfer)
	mux.HandleFunc("GET /shapes/{shape_id}", api.handleGet)
	mux.HandleFunc("PUT /shapes/{shape_id}", api.handleUpdate)
	mux.HandleFunc("DELETE /shapes/{shape_id}", api.handleDelete)
	mux.HandleFunc("GET /shapes/{shape_id}/turtle", api.handleGenerateTurtle)
	mux.HandleFunc("GET /shapes/{shape_id}/versions", api.handleListVersions)
	mux.HandleFunc("GET /shapes/{shape_id}/versions/{version}", api.handleGetVersion)
	mux.HandleFunc("POST /shapes/{shape_id}/validate", api.handleRunValidation)
}

func (api *shapeAPI) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageQuery(r)
	filter := repo.ShapeFilter{
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Limit:    limit,
		Offset:   offset,
	}
	if v := strings.TrimSpace(r.URL.Query().Get("isTemplate")); v != "" {
		isTemplate := v == "true"
		filter.IsTemplate = &isTemplate
	}
	out, err := api.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shapes": shapesToViews(out)})
}

func (api *shapeAPI) handleTemplates(w http.ResponseWriter, r *http.Request) {
	out, err := api.svc.Templates(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": shapesToViews(out)})
}

type shapeRequest struct {
	URI           string                 `json:"uri"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Content       string                 `json:"content,omitempty"`
	ContentFormat string                 `json:"contentFormat,omitempty"`
	TargetClass   string                 `json:"targetClass,omitempty"`
	Category      string                 `json:"category,omitempty"`
	Tags          []string               `json:"tags,omitempty"`
	IsTemplate    bool                   `json:"isTemplate,omitempty"`
	Properties    []domain.PropertyShape `json:"properties,omitempty"`
}

func (req shapeRequest) toShape(createdBy string) (domain.Shape, error) {
	sh := domain.Shape{
		URI:         req.URI,
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		TargetClass: req.TargetClass,
		Category:    req.Category,
		Tags:        req.Tags,
		IsTemplate:  req.IsTemplate,
		Properties:  req.Properties,
		CreatedBy:   createdBy,
	}
	if req.Content != "" {
		format := domain.ContentTurtle
		if strings.TrimSpace(req.ContentFormat) != "" {
			parsed, err := domain.ParseContentFormat(req.ContentFormat)
			if err != nil {
				return domain.Shape{}, err
			}
			format = parsed
		}
		sh.ContentFormat = format
	}
	return sh, nil
}

func (api *shapeAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	sh, err := req.toShape(actor(r))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	created, err := api.svc.Create(r.Context(), sh)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/shapes/"+created.ID)
	writeJSON(w, http.StatusCreated, shapeToView(created))
}

func (api *shapeAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "shape_id_required", "")
		return
	}
	sh, err := api.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shapeToView(sh))
}

func (api *shapeAPI) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "shape_id_required", "")
		return
	}
	var req shapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	sh, err := req.toShape(actor(r))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	updated, err := api.svc.Update(r.Context(), id, sh)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shapeToView(updated))
}

func (api *shapeAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "shape_id_required", "")
		return
	}
	if err := api.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateSyntaxRequest struct {
	Content       string `json:"content"`
	ContentFormat string `json:"contentFormat,omitempty"`
}

func (api *shapeAPI) handleValidateSyntax(w http.ResponseWriter, r *http.Request) {
	var req validateSyntaxRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	format := domain.ContentTurtle
	if strings.TrimSpace(req.ContentFormat) != "" {
		parsed, err := domain.ParseContentFormat(req.ContentFormat)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		format = parsed
	}
	issues := api.svc.ValidateSyntax(req.Content, format)
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

type graphSourceRequest struct {
	Content       string `json:"content,omitempty"`
	ContentFormat string `json:"contentFormat,omitempty"`
	TriplestoreID string `json:"triplestoreId,omitempty"`
	GraphURI      string `json:"graphUri,omitempty"`
}

func (req graphSourceRequest) toSource() (connections.GraphSource, error) {
	src := connections.GraphSource{
		Content:       req.Content,
		TriplestoreID: req.TriplestoreID,
		GraphURI:      req.GraphURI,
	}
	if req.Content != "" {
		format := domain.ContentTurtle
		if strings.TrimSpace(req.ContentFormat) != "" {
			parsed, err := domain.ParseContentFormat(req.ContentFormat)
			if err != nil {
				return connections.GraphSource{}, err
			}
			format = parsed
		}
		src.ContentFormat = format
	}
	return src, nil
}

type inferRequest struct {
	TargetClass string             `json:"targetClass"`
	Data        graphSourceRequest `json:"data"`
}

func (api *shapeAPI) handleInfer(w http.ResponseWriter, r *http.Request) {
	var req inferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.TargetClass) == "" {
		writeError(w, r, http.StatusBadRequest, "target_class_required", "")
		return
	}
	src, err := req.Data.toSource()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	props, err := api.svc.InferFromData(r.Context(), req.TargetClass, src)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": props})
}

func (api *shapeAPI) handleGenerateTurtle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "shape_id_required", "")
		return
	}
	sh, err := api.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	turtle, err := api.svc.GenerateTurtle(sh)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/turtle; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(turtle))
}

func (api *shapeAPI) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "shape_id_required", "")
		return
	}
	versions, err := api.svc.ListVersions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (api *shapeAPI) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	version, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("version")), 10, 64)
	if id == "" || err != nil || version < 1 {
		writeError(w, r, http.StatusBadRequest, "invalid_version", "")
		return
	}
	sh, err := api.svc.GetVersion(r.Context(), id, version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shapeToView(sh))
}

type runValidationRequest struct {
	ShapeVersion int64              `json:"shapeVersion,omitempty"`
	Data         graphSourceRequest `json:"data"`
}

func (api *shapeAPI) handleRunValidation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("shape_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "shape_id_required", "")
		return
	}
	var req runValidationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	src, err := req.Data.toSource()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	result, err := api.validator.Run(r.Context(), validation.Request{
		ShapeID:      id,
		ShapeVersion: req.ShapeVersion,
		Data:         src,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
