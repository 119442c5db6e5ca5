package domain

import "time"

// Registration is one sign-up of one registrant for one activity.
// Registrations are immutable once stored.
//
// DedupHash comes from the upstream survey tool. When it is non-empty the
// store holds at most one Registration with that value.
type Registration struct {
	ID               string
	RegistrantID     string
	ActivityName     string
	SubmittedAt      time.Time
	Age              string
	ChildrenCount    string
	SportsExperience string
	InjuryHistory    string
	InfoSource       string
	Suggestions      string
	ResidentStatus   ResidentStatus
	DedupHash        string
	CreatedAt        time.Time
}

// RegistrantWithHistory is a registrant together with every registration
// that references it, newest first. Used by the export.
type RegistrantWithHistory struct {
	Registrant
	History []Registration
}
