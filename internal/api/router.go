package api

import (
	"log/slog"
	"net/http"

	"github.com/quadflow-labs/quadflow-go/internal/platform/audit"
	"github.com/quadflow-labs/quadflow-go/internal/platform/httpserver"
	"github.com/quadflow-labs/quadflow-go/internal/service/connections"
	"github.com/quadflow-labs/quadflow-go/internal/service/datasources"
	"github.com/quadflow-labs/quadflow-go/internal/service/jobs"
	"github.com/quadflow-labs/quadflow-go/internal/service/pipelines"
	"github.com/quadflow-labs/quadflow-go/internal/service/schedules"
	"github.com/quadflow-labs/quadflow-go/internal/service/shapes"
	"github.com/quadflow-labs/quadflow-go/internal/service/validation"
)

// Services bundles the service layer the HTTP surface is built from.
type Services struct {
	Pipelines   *pipelines.Service
	Jobs        *jobs.Service
	Schedules   *schedules.Service
	Shapes      *shapes.Service
	Validation  *validation.Service
	DataSources *datasources.Service
	Connections *connections.Service

	// Audit receives one event per mutating request; nil disables the
	// trail.
	Audit *audit.Recorder
}

// auditMutations records every state-changing request before it is served.
func auditMutations(recorder *audit.Recorder, next http.Handler) http.Handler {
	if recorder == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
			requestID, _ := httpserver.RequestIDFromContext(r.Context())
			recorder.Record(r.Context(), audit.Event{
				Actor:     actor(r),
				Action:    r.Method,
				Resource:  r.URL.Path,
				RequestID: requestID,
			})
		}
		next.ServeHTTP(w, r)
	})
}

// Handler assembles the full route table and wraps it in the standard
// middleware stack.
func Handler(logger *slog.Logger, service string, svcs Services, checks ...httpserver.ReadinessCheck) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", httpserver.Healthz(service))
	mux.HandleFunc("GET /readyz", httpserver.ReadyzWithChecks(service, checks...))

	newPipelineAPI(svcs.Pipelines).register(mux)
	newJobAPI(svcs.Jobs).register(mux)
	newScheduleAPI(svcs.Schedules).register(mux)
	newShapeAPI(svcs.Shapes, svcs.Validation).register(mux)
	newDataSourceAPI(svcs.DataSources).register(mux)
	newTriplestoreAPI(svcs.Connections).register(mux)

	return httpserver.Wrap(logger, service, auditMutations(svcs.Audit, mux))
}
