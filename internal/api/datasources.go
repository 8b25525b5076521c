package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/quadflow-labs/quadflow-go/internal/domain"
	"github.com/quadflow-labs/quadflow-go/internal/repo"
	"github.com/quadflow-labs/quadflow-go/internal/service/datasources"
)

// maxUploadBytes bounds a single source upload.
const maxUploadBytes = 512 << 20

type dataSourceAPI struct {
	svc *datasources.Service
}

func newDataSourceAPI(svc *datasources.Service) *dataSourceAPI {
	return &dataSourceAPI{svc: svc}
}

func (api *dataSourceAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /data-sources", api.handleList)
	mux.HandleFunc("POST /data-sources", api.handleUpload)
	mux.HandleFunc("GET /data-sources/{source_id}", api.handleGet)
	mux.HandleFunc("DELETE /data-sources/{source_id}", api.handleDelete)
	mux.HandleFunc("GET /data-sources/{source_id}/preview", api.handlePreview)
	mux.HandleFunc("GET /data-sources/{source_id}/download", api.handleDownload)
	mux.HandleFunc("POST /data-sources/{source_id}/analyze", api.handleAnalyze)
	mux.HandleFunc("GET /data-sources/{source_id}/detect-format", api.handleDetectFormat)
}

func (api *dataSourceAPI) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageQuery(r)
	filter := repo.DataSourceFilter{
		Format: domain.SourceFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Limit:  limit,
		Offset: offset,
	}
	out, err := api.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	views := make([]dataSourceView, 0, len(out))
	for _, d := range out {
		views = append(views, dataSourceToView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dataSources": views})
}

func (api *dataSourceAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_multipart", err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file_required", "")
		return
	}
	defer file.Close()

	req := datasources.UploadRequest{
		Filename:  header.Filename,
		Body:      file,
		Size:      header.Size,
		Encoding:  strings.TrimSpace(r.FormValue("encoding")),
		Delimiter: r.FormValue("delimiter"),
		HasHeader: r.FormValue("hasHeader") != "false",
		Analyze:   r.FormValue("analyze") == "true",
		CreatedBy: actor(r),
	}
	ds, err := api.svc.Upload(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/data-sources/"+ds.ID)
	writeJSON(w, http.StatusCreated, dataSourceToView(ds))
}

func (api *dataSourceAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("source_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "source_id_required", "")
		return
	}
	ds, err := api.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataSourceToView(ds))
}

func (api *dataSourceAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("source_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "source_id_required", "")
		return
	}
	if err := api.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *dataSourceAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("source_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "source_id_required", "")
		return
	}
	rows := clampInt(parseIntQuery(r, "rows", 50), 1, 1000)
	offset := clampInt(parseIntQuery(r, "offset", 0), 0, 1<<30)

	ds, page, err := api.svc.Preview(r.Context(), id, rows, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewView{
		Columns: previewColumns(ds.Columns),
		Rows:    page,
		Total:   ds.RowCount(),
		Offset:  offset,
	})
}

func (api *dataSourceAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("source_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "source_id_required", "")
		return
	}
	ds, body, err := api.svc.Download(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ds.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func (api *dataSourceAPI) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("source_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "source_id_required", "")
		return
	}
	ds, err := api.svc.Analyze(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataSourceToView(ds))
}

func (api *dataSourceAPI) handleDetectFormat(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("source_id"))
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "source_id_required", "")
		return
	}
	format, err := api.svc.DetectFormat(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"format": format})
}
