package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// ListRegistrants handles GET /registrants.
// Supports ?limit= (default 10, max 100), ?after= (cursor from the previous
// page) and ?q= (name prefix). Searching switches the order to name
// ascending; cursors from one order are rejected by the other.
func (s *Server) ListRegistrants(w http.ResponseWriter, r *http.Request) {
	var (
		limit *int
		after *string
		q     *string
	)
	if err := queryParam(r, "limit", &limit); err != nil {
		badParam(w, err)
		return
	}
	if err := queryParam(r, "after", &after); err != nil {
		badParam(w, err)
		return
	}
	if err := queryParam(r, "q", &q); err != nil {
		badParam(w, err)
		return
	}

	term := ""
	if q != nil {
		term = *q
	}
	items, next, err := s.registrants.List(r.Context(), domain.NewCursorParams(limit, after), term)
	if err != nil {
		writeError(w, r, err, "registrant")
		return
	}
	writeJSON(w, http.StatusOK, RegistrantPage{Data: registrantsToResponse(items), NextCursor: cursorPtr(next)})
}

// CountRegistrants handles GET /registrants/count.
func (s *Server) CountRegistrants(w http.ResponseWriter, r *http.Request) {
	n, err := s.registrants.Count(r.Context())
	if err != nil {
		writeError(w, r, err, "registrant")
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// GetRegistrant handles GET /registrants/{id}.
func (s *Server) GetRegistrant(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}

	got, err := s.registrants.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "registrant")
		return
	}
	writeJSON(w, http.StatusOK, RegistrantDetail{
		RegistrantResponse: registrantToResponse(got.Registrant),
		History:            registrationsToResponse(got.History),
	})
}

// GetRegistrantHistory handles GET /registrants/{id}/history.
func (s *Server) GetRegistrantHistory(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		badParam(w, err)
		return
	}

	history, err := s.registrants.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err, "registrant")
		return
	}
	writeJSON(w, http.StatusOK, registrationsToResponse(history))
}

// CreateRegistrant handles POST /registrants (manual add).
// Answers 409 when the (name, phone) identity is already registered.
func (s *Server) CreateRegistrant(w http.ResponseWriter, r *http.Request) {
	var req CreateRegistrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed JSON body"))
		return
	}

	created, err := s.registrants.Create(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, err, "registrant")
		return
	}
	writeJSON(w, http.StatusCreated, registrantToResponse(created))
}
