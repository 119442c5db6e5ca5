package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xinlong-d2/signup-admin/internal/service"
)

// CreateViewRequest is the body of POST /views.
type CreateViewRequest struct {
	Kind     string `json:"kind"`
	PageSize int    `json:"page_size"`
}

// ViewSearchRequest is the body of PUT /views/{id}/search. Immediate skips
// the debounce period, as pressing enter does in the dashboard.
type ViewSearchRequest struct {
	Query     string `json:"q"`
	Immediate bool   `json:"immediate"`
}

// ViewResponse describes a listing view.
type ViewResponse struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	PageSize        int    `json:"page_size"`
	RawSearch       string `json:"raw_search"`
	CommittedSearch string `json:"committed_search"`
	SearchPending   bool   `json:"search_pending"`
	CurrentPage     int    `json:"current_page"`
	KnownPages      int    `json:"known_pages"`
	LastPage        *int   `json:"last_page"`
}

// ViewPageResponse is one page of a view. Data holds registrants or
// registrations, matching the view's kind.
type ViewPageResponse struct {
	View    ViewResponse `json:"view"`
	Page    int          `json:"page"`
	HasNext bool         `json:"has_next"`
	Data    any          `json:"data"`
}

// CreateView handles POST /views.
func (s *Server) CreateView(w http.ResponseWriter, r *http.Request) {
	var req CreateViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed JSON body"))
		return
	}
	if req.Kind == "" {
		req.Kind = string(service.ViewRegistrants)
	}

	snap, err := s.views.Create(service.ViewKind(req.Kind), req.PageSize)
	if err != nil {
		writeError(w, r, err, "view")
		return
	}
	writeJSON(w, http.StatusCreated, viewToResponse(snap))
}

// GetView handles GET /views/{id}.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}

	snap, err := s.views.Get(id)
	if err != nil {
		writeError(w, r, err, "view")
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(snap))
}

// DeleteView handles DELETE /views/{id}.
func (s *Server) DeleteView(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}

	if err := s.views.Delete(id); err != nil {
		writeError(w, r, err, "view")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetViewPage handles GET /views/{id}/pages/{page}.
// A page past the end of the listing is 404.
func (s *Server) GetViewPage(w http.ResponseWriter, r *http.Request) {
	var (
		id   string
		page int
	)
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}
	if err := pathParam(r, "page", &page); err != nil {
		badParam(w, err)
		return
	}

	got, err := s.views.Page(r.Context(), id, page)
	if err != nil {
		writeError(w, r, err, "page")
		return
	}

	resp := ViewPageResponse{View: viewToResponse(got.ViewSnapshot), Page: got.Page, HasNext: got.HasNext}
	if got.Kind == service.ViewRegistrations {
		resp.Data = registrationsToResponse(got.Registrations)
	} else {
		resp.Data = registrantsToResponse(got.Registrants)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutViewSearch handles PUT /views/{id}/search.
func (s *Server) PutViewSearch(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}
	var req ViewSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed JSON body"))
		return
	}

	snap, err := s.views.Search(id, req.Query, req.Immediate)
	if err != nil {
		writeError(w, r, err, "view")
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(snap))
}

// RefreshView handles POST /views/{id}/refresh.
func (s *Server) RefreshView(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}

	snap, err := s.views.Refresh(id)
	if err != nil {
		writeError(w, r, err, "view")
		return
	}
	writeJSON(w, http.StatusOK, viewToResponse(snap))
}

func viewToResponse(v service.ViewSnapshot) ViewResponse {
	resp := ViewResponse{
		ID:              v.ID,
		Kind:            string(v.Kind),
		PageSize:        v.PageSize,
		RawSearch:       v.RawSearch,
		CommittedSearch: v.CommittedSearch,
		SearchPending:   v.SearchPending,
		CurrentPage:     v.CurrentPage,
		KnownPages:      v.KnownPages,
	}
	if v.LastPage > 0 {
		last := v.LastPage
		resp.LastPage = &last
	}
	return resp
}
