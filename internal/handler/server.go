// Package handler implements the HTTP API of the registration admin backend.
// All handlers are methods on Server. Methods are split into resource files
// (registrant.go, upload.go, view.go, ...) but share the same Server struct
// so they can reach its dependencies.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
	"github.com/xinlong-d2/signup-admin/internal/middleware"
	"github.com/xinlong-d2/signup-admin/internal/service"
)

// RegistrantServicer defines the registrant operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching a store.
type RegistrantServicer interface {
	List(ctx context.Context, p domain.CursorParams, q string) ([]domain.Registrant, domain.Cursor, error)
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, id string) (domain.RegistrantWithHistory, error)
	History(ctx context.Context, id string) ([]domain.Registration, error)
	Create(ctx context.Context, r domain.Registrant) (domain.Registrant, error)
}

// RegistrationServicer defines the history listing operations.
type RegistrationServicer interface {
	List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error)
	Count(ctx context.Context) (int64, error)
}

// IngestServicer runs the ingestion pipeline over an upload or a sheet.
type IngestServicer interface {
	Upload(ctx context.Context, filename string, r io.Reader) (ingest.Summary, error)
	ImportSheet(ctx context.Context, spreadsheetID, readRange string) (ingest.Summary, error)
}

// ExportServicer returns the flattened registrant/registration table.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// ViewServicer manages server-side listing views.
type ViewServicer interface {
	Create(kind service.ViewKind, pageSize int) (service.ViewSnapshot, error)
	Get(id string) (service.ViewSnapshot, error)
	Delete(id string) error
	Page(ctx context.Context, id string, n int) (service.ViewPage, error)
	Search(id, raw string, immediate bool) (service.ViewSnapshot, error)
	Refresh(id string) (service.ViewSnapshot, error)
}

// Server holds the services behind every endpoint.
type Server struct {
	registrants   RegistrantServicer
	registrations RegistrationServicer
	ingest        IngestServicer
	export        ExportServicer
	views         ViewServicer

	// maxUpload bounds upload request bodies; 0 disables the limit.
	maxUpload int64
}

// NewServer constructs the Server with all its dependencies.
func NewServer(
	registrants RegistrantServicer,
	registrations RegistrationServicer,
	ingest IngestServicer,
	export ExportServicer,
	views ViewServicer,
) *Server {
	return &Server{
		registrants:   registrants,
		registrations: registrations,
		ingest:        ingest,
		export:        export,
		views:         views,
	}
}

// WithMaxUpload sets the body limit applied to the upload routes.
func (s *Server) WithMaxUpload(limit int64) *Server {
	s.maxUpload = limit
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, nil)
}

// Routes returns the API route table. Cross-cutting middleware (request ids,
// logging, CORS, recovery) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(notFound)

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/registrants", func(r chi.Router) {
		r.Get("/", s.ListRegistrants)
		r.Post("/", s.CreateRegistrant)
		r.Get("/count", s.CountRegistrants)
		r.Get("/{id}", s.GetRegistrant)
		r.Get("/{id}/history", s.GetRegistrantHistory)
	})

	r.Route("/registrations", func(r chi.Router) {
		r.Get("/", s.ListRegistrations)
		r.Get("/count", s.CountRegistrations)
	})

	r.Route("/uploads", func(r chi.Router) {
		if s.maxUpload > 0 {
			r.Use(middleware.NewMaxBodySizeHandler(s.maxUpload))
		}
		r.Post("/", s.PostUpload)
		r.Post("/sheets", s.PostSheetImport)
	})

	r.Get("/export", s.GetExport)

	r.Route("/views", func(r chi.Router) {
		r.Post("/", s.CreateView)
		r.Get("/{id}", s.GetView)
		r.Delete("/{id}", s.DeleteView)
		r.Get("/{id}/pages/{page}", s.GetViewPage)
		r.Put("/{id}/search", s.PutViewSearch)
		r.Post("/{id}/refresh", s.RefreshView)
	})

	return r
}

// notFound answers unknown routes with the API error shape.
func notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundBody("route not found"))
}
