package handler

import (
	"net/http"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// ListRegistrations handles GET /registrations, newest submission first.
func (s *Server) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	var (
		limit *int
		after *string
	)
	if err := queryParam(r, "limit", &limit); err != nil {
		badParam(w, err)
		return
	}
	if err := queryParam(r, "after", &after); err != nil {
		badParam(w, err)
		return
	}

	items, next, err := s.registrations.List(r.Context(), domain.NewCursorParams(limit, after))
	if err != nil {
		writeError(w, r, err, "registration")
		return
	}
	writeJSON(w, http.StatusOK, RegistrationPage{Data: registrationsToResponse(items), NextCursor: cursorPtr(next)})
}

// CountRegistrations handles GET /registrations/count.
func (s *Server) CountRegistrations(w http.ResponseWriter, r *http.Request) {
	n, err := s.registrations.Count(r.Context())
	if err != nil {
		writeError(w, r, err, "registration")
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}
