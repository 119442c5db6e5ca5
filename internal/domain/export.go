package domain

import "time"

// ExportRow is a single row in the full-data export.
// It is a flat, denormalized view: one row per registration, with the
// registrant fields repeated for every registration that person made.
// Registrants with no registrations yield one row with zero values for all
// registration fields.
type ExportRow struct {
	// Registrant fields, repeated for every registration.
	RegistrantID   string
	Name           string
	Email          string
	Phone          string
	Gender         string
	LineID         string
	ResidentStatus ResidentStatus

	// Registration fields, zero values when the person has none.
	ActivityName string
	SubmittedAt  *time.Time
	Age          string
	InfoSource   string
	Suggestions  string
}
