package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/xinlong-d2/signup-admin/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"registrant_id", "name", "email", "phone", "gender", "line_id",
	"resident_status", "activity_name", "submitted_at", "age",
	"info_source", "suggestions",
}

// ExportRow is the JSON form of one export row.
// Registration fields are omitted for a registrant with no history.
type ExportRow struct {
	RegistrantID   string     `json:"registrant_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Gender         *string    `json:"gender,omitempty"`
	LineID         *string    `json:"line_id,omitempty"`
	ResidentStatus string     `json:"resident_status"`
	ActivityName   *string    `json:"activity_name,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	Age            *string    `json:"age,omitempty"`
	InfoSource     *string    `json:"info_source,omitempty"`
	Suggestions    *string    `json:"suggestions,omitempty"`
}

// GetExport implements GET /export.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := queryParam(r, "format", &format); err != nil {
		badParam(w, err)
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("format must be csv or json"))
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		writeError(w, r, err, "export")
		return
	}

	if format != nil && *format == "csv" {
		buf := buildCSV(rows)
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="registrants.csv"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck
		buf.WriteTo(w)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONRows(rows))
}

// buildJSONRows converts domain rows to the JSON response rows.
func buildJSONRows(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, domainRowToJSONRow(r))
	}
	return out
}

// buildCSV encodes domain rows as CSV. The UTF-8 byte order mark makes
// spreadsheet programs pick the right encoding for the Chinese text.
func buildCSV(rows []domain.ExportRow) *bytes.Buffer {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(domainRowToCSVRecord(r))
	}
	w.Flush()
	return &buf
}

// domainRowToJSONRow maps a domain.ExportRow to its JSON form.
// Fields that are empty strings become nil pointers (omitempty in JSON).
func domainRowToJSONRow(r domain.ExportRow) ExportRow {
	return ExportRow{
		RegistrantID:   r.RegistrantID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Gender:         optional(r.Gender),
		LineID:         optional(r.LineID),
		ResidentStatus: string(r.ResidentStatus),
		ActivityName:   optional(r.ActivityName),
		SubmittedAt:    r.SubmittedAt,
		Age:            optional(r.Age),
		InfoSource:     optional(r.InfoSource),
		Suggestions:    optional(r.Suggestions),
	}
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// The resident status is written with its display label.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.RegistrantID,
		r.Name,
		r.Email,
		r.Phone,
		r.Gender,
		r.LineID,
		r.ResidentStatus.Label(),
		r.ActivityName,
		formatOptionalTime(r.SubmittedAt),
		r.Age,
		r.InfoSource,
		r.Suggestions,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
