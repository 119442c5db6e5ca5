package handler

import (
	"time"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// RegistrantResponse is the JSON form of a registrant.
type RegistrantResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Gender          string    `json:"gender,omitempty"`
	Age             string    `json:"age,omitempty"`
	LineID          string    `json:"line_id,omitempty"`
	ResidentStatus  string    `json:"resident_status"`
	ResidentLabel   string    `json:"resident_label"`
	HousingLocation string    `json:"housing_location,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RegistrationResponse is the JSON form of one history entry.
type RegistrationResponse struct {
	ID               string    `json:"id"`
	RegistrantID     string    `json:"registrant_id"`
	ActivityName     string    `json:"activity_name"`
	SubmittedAt      time.Time `json:"submitted_at"`
	Age              string    `json:"age,omitempty"`
	ChildrenCount    string    `json:"children_count,omitempty"`
	SportsExperience string    `json:"sports_experience,omitempty"`
	InjuryHistory    string    `json:"injury_history,omitempty"`
	InfoSource       string    `json:"info_source,omitempty"`
	Suggestions      string    `json:"suggestions,omitempty"`
	ResidentStatus   string    `json:"resident_status"`
	DedupHash        string    `json:"dedup_hash,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// RegistrantDetail is a registrant with its history, newest first.
type RegistrantDetail struct {
	RegistrantResponse
	History []RegistrationResponse `json:"history"`
}

// RegistrantPage is one keyset page of registrants. NextCursor is null on
// the last page.
type RegistrantPage struct {
	Data       []RegistrantResponse `json:"data"`
	NextCursor *string              `json:"next_cursor"`
}

// RegistrationPage is one keyset page of the registration history.
type RegistrationPage struct {
	Data       []RegistrationResponse `json:"data"`
	NextCursor *string                `json:"next_cursor"`
}

// CountResponse is the body of the count endpoints.
type CountResponse struct {
	Count int64 `json:"count"`
}

// CreateRegistrantRequest is the body of POST /registrants.
type CreateRegistrantRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Gender          string `json:"gender"`
	Age             string `json:"age"`
	LineID          string `json:"line_id"`
	ResidentStatus  string `json:"resident_status"`
	HousingLocation string `json:"housing_location"`
}

func (req CreateRegistrantRequest) toDomain() domain.Registrant {
	return domain.Registrant{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Gender:          req.Gender,
		Age:             req.Age,
		LineID:          req.LineID,
		ResidentStatus:  domain.ResidentStatus(req.ResidentStatus),
		HousingLocation: req.HousingLocation,
	}
}

func registrantToResponse(r domain.Registrant) RegistrantResponse {
	return RegistrantResponse{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		Gender:          r.Gender,
		Age:             r.Age,
		LineID:          r.LineID,
		ResidentStatus:  string(r.ResidentStatus),
		ResidentLabel:   r.ResidentStatus.Label(),
		HousingLocation: r.HousingLocation,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func registrationToResponse(r domain.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:               r.ID,
		RegistrantID:     r.RegistrantID,
		ActivityName:     r.ActivityName,
		SubmittedAt:      r.SubmittedAt.UTC(),
		Age:              r.Age,
		ChildrenCount:    r.ChildrenCount,
		SportsExperience: r.SportsExperience,
		InjuryHistory:    r.InjuryHistory,
		InfoSource:       r.InfoSource,
		Suggestions:      r.Suggestions,
		ResidentStatus:   string(r.ResidentStatus),
		DedupHash:        r.DedupHash,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func registrantsToResponse(rs []domain.Registrant) []RegistrantResponse {
	out := make([]RegistrantResponse, len(rs))
	for i, r := range rs {
		out[i] = registrantToResponse(r)
	}
	return out
}

func registrationsToResponse(rs []domain.Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, len(rs))
	for i, r := range rs {
		out[i] = registrationToResponse(r)
	}
	return out
}

// cursorPtr maps the empty cursor to null.
func cursorPtr(c domain.Cursor) *string {
	if c == "" {
		return nil
	}
	s := string(c)
	return &s
}
