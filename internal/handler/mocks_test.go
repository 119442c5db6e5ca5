package handler_test

import (
	"context"
	"io"
	"net/http"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/handler"
	"github.com/xinlong-d2/signup-admin/internal/ingest"
	"github.com/xinlong-d2/signup-admin/internal/service"
)

// ---- mock RegistrantServicer -----------------------------------------------

type mockRegistrantServicer struct {
	list    func(ctx context.Context, p domain.CursorParams, q string) ([]domain.Registrant, domain.Cursor, error)
	count   func(ctx context.Context) (int64, error)
	get     func(ctx context.Context, id string) (domain.RegistrantWithHistory, error)
	history func(ctx context.Context, id string) ([]domain.Registration, error)
	create  func(ctx context.Context, r domain.Registrant) (domain.Registrant, error)
}

func (m *mockRegistrantServicer) List(ctx context.Context, p domain.CursorParams, q string) ([]domain.Registrant, domain.Cursor, error) {
	return m.list(ctx, p, q)
}

func (m *mockRegistrantServicer) Count(ctx context.Context) (int64, error) {
	return m.count(ctx)
}

func (m *mockRegistrantServicer) Get(ctx context.Context, id string) (domain.RegistrantWithHistory, error) {
	return m.get(ctx, id)
}

func (m *mockRegistrantServicer) History(ctx context.Context, id string) ([]domain.Registration, error) {
	return m.history(ctx, id)
}

func (m *mockRegistrantServicer) Create(ctx context.Context, r domain.Registrant) (domain.Registrant, error) {
	return m.create(ctx, r)
}

var _ handler.RegistrantServicer = (*mockRegistrantServicer)(nil)

// ---- mock RegistrationServicer ---------------------------------------------

type mockRegistrationServicer struct {
	list  func(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error)
	count func(ctx context.Context) (int64, error)
}

func (m *mockRegistrationServicer) List(ctx context.Context, p domain.CursorParams) ([]domain.Registration, domain.Cursor, error) {
	return m.list(ctx, p)
}

func (m *mockRegistrationServicer) Count(ctx context.Context) (int64, error) {
	return m.count(ctx)
}

var _ handler.RegistrationServicer = (*mockRegistrationServicer)(nil)

// ---- mock IngestServicer ---------------------------------------------------

type mockIngestServicer struct {
	upload      func(ctx context.Context, filename string, r io.Reader) (ingest.Summary, error)
	importSheet func(ctx context.Context, spreadsheetID, readRange string) (ingest.Summary, error)
}

func (m *mockIngestServicer) Upload(ctx context.Context, filename string, r io.Reader) (ingest.Summary, error) {
	return m.upload(ctx, filename, r)
}

func (m *mockIngestServicer) ImportSheet(ctx context.Context, spreadsheetID, readRange string) (ingest.Summary, error) {
	return m.importSheet(ctx, spreadsheetID, readRange)
}

var _ handler.IngestServicer = (*mockIngestServicer)(nil)

// ---- mock ExportServicer ---------------------------------------------------

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- mock ViewServicer -----------------------------------------------------

type mockViewServicer struct {
	create  func(kind service.ViewKind, pageSize int) (service.ViewSnapshot, error)
	get     func(id string) (service.ViewSnapshot, error)
	delete  func(id string) error
	page    func(ctx context.Context, id string, n int) (service.ViewPage, error)
	search  func(id, raw string, immediate bool) (service.ViewSnapshot, error)
	refresh func(id string) (service.ViewSnapshot, error)
}

func (m *mockViewServicer) Create(kind service.ViewKind, pageSize int) (service.ViewSnapshot, error) {
	return m.create(kind, pageSize)
}

func (m *mockViewServicer) Get(id string) (service.ViewSnapshot, error) { return m.get(id) }

func (m *mockViewServicer) Delete(id string) error { return m.delete(id) }

func (m *mockViewServicer) Page(ctx context.Context, id string, n int) (service.ViewPage, error) {
	return m.page(ctx, id, n)
}

func (m *mockViewServicer) Search(id, raw string, immediate bool) (service.ViewSnapshot, error) {
	return m.search(id, raw, immediate)
}

func (m *mockViewServicer) Refresh(id string) (service.ViewSnapshot, error) { return m.refresh(id) }

var _ handler.ViewServicer = (*mockViewServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// services bundles the mocks a test wants wired; nil fields stay nil.
type services struct {
	registrants   handler.RegistrantServicer
	registrations handler.RegistrationServicer
	ingest        handler.IngestServicer
	export        handler.ExportServicer
	views         handler.ViewServicer
	maxUpload     int64
}

// newHTTPHandler wires a Server around the given mocks.
func newHTTPHandler(s services) http.Handler {
	return handler.NewServer(s.registrants, s.registrations, s.ingest, s.export, s.views).
		WithMaxUpload(s.maxUpload).
		Routes()
}
