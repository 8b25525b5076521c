package api

import (
	"net/http"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/rdf"
	"github.com/quadflow-labs/quadflow-go/internal/service/connections"
	"github.com/quadflow-labs/quadflow-go/internal/triplestore"
)

type triplestoreAPI struct {
	svc *connections.Service
}

func newTriplestoreAPI(svc *connections.Service) *triplestoreAPI {
	return &triplestoreAPI{svc: svc}
}

func (api *triplestoreAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /triplestore/connections", api.handleList)
	mux.HandleFunc("POST /triplestore/connections", api.handleCreate)
	mux.HandleFunc("DELETE /triplestore/connections/{connection_id}", api.handleDelete)
	mux.HandleFunc("POST /triplestore/connections/{connection_id}/test", api.handleTest)
	mux.HandleFunc("GET /triplestore/graphs", api.handleGraphs)
	mux.HandleFunc("POST /triplestore/query", api.handleQuery)
	mux.HandleFunc("GET /triplestore/resource", api.handleResource)
	mux.HandleFunc("GET /triplestore/export", api.handleExport)
}

func (api *triplestoreAPI) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := api.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views := make([]connectionView, 0, len(out))
	for _, c := range out {
		views = append(views, connectionToView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": views})
}

type createConnectionRequest struct {
	Name           string `json:"name"`
	QueryEndpoint  string `json:"queryEndpoint"`
	UpdateEndpoint string `json:"updateEndpoint,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	IsDefault      bool   `json:"isDefault,omitempty"`
}

func (api *triplestoreAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createConnectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	conn, err := api.svc.Create(r.Context(), domain.TriplestoreConnection{
		Name:           req.Name,
		QueryEndpoint:  req.QueryEndpoint,
		UpdateEndpoint: req.UpdateEndpoint,
		Username:       req.Username,
		Password:       req.Password,
		IsDefault:      req.IsDefault,
		CreatedBy:      actor(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/triplestore/connections/"+conn.ID)
	writeJSON(w, http.StatusCreated, connectionToView(conn))
}

func (api *triplestoreAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("connection_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "connection_id_required", "")
		return
	}
	if err := api.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *triplestoreAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("connection_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "connection_id_required", "")
		return
	}
	result, err := api.svc.Test(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (api *triplestoreAPI) handleGraphs(w http.ResponseWriter, r *http.Request) {
	connectionID := strings.TrimSpace(r.URL.Query().Get("connectionId"))
	graphs, err := api.svc.Graphs(r.Context(), connectionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": graphs})
}

type queryRequest struct {
	ConnectionID string `json:"connectionId,omitempty"`
	Query        string `json:"query"`
}

func (api *triplestoreAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "query_required", "")
		return
	}
	result, err := api.svc.Query(r.Context(), req.ConnectionID, req.Query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (api *triplestoreAPI) handleResource(w http.ResponseWriter, r *http.Request) {
	uri := strings.TrimSpace(r.URL.Query().Get("uri"))
	if uri == "" {
		writeError(w, r, http.StatusBadRequest, "uri_required", "")
		return
	}
	connectionID := strings.TrimSpace(r.URL.Query().Get("connectionId"))
	view, err := api.svc.Browse(r.Context(), connectionID, uri)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resourceToView(view))
}

func (api *triplestoreAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	graphURI := strings.TrimSpace(r.URL.Query().Get("graph"))
	if graphURI == "" {
		writeError(w, r, http.StatusBadRequest, "graph_required", "")
		return
	}
	connectionID := strings.TrimSpace(r.URL.Query().Get("connectionId"))
	g, err := api.svc.ResolveGraph(r.Context(), connections.GraphSource{
		TriplestoreID: connectionID,
		GraphURI:      graphURI,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/n-quads")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rdf.WriteNQuads(g.Quads())))
}

type termView struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

func termToView(t rdf.Term) termView {
	view := termView{Value: t.Value, Datatype: t.Datatype, Lang: t.Lang}
	switch {
	case t.IsIRI():
		view.Type = "uri"
	case t.IsBlank():
		view.Type = "bnode"
	default:
		view.Type = "literal"
	}
	return view
}

type statementView struct {
	Subject   termView `json:"subject"`
	Predicate termView `json:"predicate"`
	Object    termView `json:"object"`
}

type resourceView struct {
	URI      string          `json:"uri"`
	Outgoing []statementView `json:"outgoing"`
	Incoming []statementView `json:"incoming"`
}

func resourceToView(res *triplestore.ResourceView) resourceView {
	toStatements := func(quads []rdf.Quad) []statementView {
		out := make([]statementView, 0, len(quads))
		for _, q := range quads {
			out = append(out, statementView{
				Subject:   termToView(q.Subject),
				Predicate: termToView(q.Predicate),
				Object:    termToView(q.Object),
			})
		}
		return out
	}
	return resourceView{
		URI:      res.URI,
		Outgoing: toStatements(res.Outgoing),
		Incoming: toStatements(res.Incoming),
	}
}
