// Package domain contains the core data types for the registration admin
// backend. This package has zero external dependencies and is imported by
// every other internal package (repo, service, handler, ingest).
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Registrant is a deduplicated person. Identity is the (Name, Phone) pair;
// Email is an attribute, not part of the key.
// Optional attributes are empty strings when the survey left them blank.
type Registrant struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	Gender          string
	Age             string
	LineID          string
	ResidentStatus  ResidentStatus
	HousingLocation string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IdentityKey returns the (name, phone) pair used to deduplicate people.
func (r Registrant) IdentityKey() (name, phone string) {
	return r.Name, r.Phone
}

// Validate enforces the fields every registrant must carry.
func (r Registrant) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Phone) == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
	}
	if r.ResidentStatus != "" && !r.ResidentStatus.Valid() {
		return fmt.Errorf("%w: unknown resident status %q", ErrValidation, r.ResidentStatus)
	}
	return nil
}
