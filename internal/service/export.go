package service

import (
	"context"
	"fmt"

	"github.com/xinlong-d2/signup-admin/internal/domain"
	"github.com/xinlong-d2/signup-admin/internal/repo"
)

// ExportService assembles a full flat export of all registrants and their
// registrations.
type ExportService struct {
	registrants   repo.RegistrantRepo
	registrations repo.RegistrationRepo
}

// NewExportService constructs an ExportService backed by the provided repos.
func NewExportService(registrants repo.RegistrantRepo, registrations repo.RegistrationRepo) *ExportService {
	return &ExportService{registrants: registrants, registrations: registrations}
}

// Export returns one ExportRow per registration across all registrants,
// most recently updated registrant first. Registrants with no registrations
// contribute one row with empty registration fields.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	rows := []domain.ExportRow{}
	p := domain.CursorParams{Limit: domain.MaxPageSize}

	for {
		page, next, err := s.registrants.List(ctx, p, "")
		if err != nil {
			return nil, fmt.Errorf("service.ExportService.Export: list registrants: %w", err)
		}
		for _, r := range page {
			history, err := s.registrations.ListByRegistrant(ctx, r.ID)
			if err != nil {
				return nil, fmt.Errorf("service.ExportService.Export: history of %s: %w", r.ID, err)
			}
			rows = append(rows, exportRows(r, history)...)
		}
		if next == "" {
			return rows, nil
		}
		p.After = next
	}
}

func exportRows(r domain.Registrant, history []domain.Registration) []domain.ExportRow {
	base := domain.ExportRow{
		RegistrantID:   r.ID,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Gender:         r.Gender,
		LineID:         r.LineID,
		ResidentStatus: r.ResidentStatus,
	}
	if len(history) == 0 {
		return []domain.ExportRow{base}
	}

	out := make([]domain.ExportRow, 0, len(history))
	for _, h := range history {
		row := base
		submitted := h.SubmittedAt
		row.ActivityName = h.ActivityName
		row.SubmittedAt = &submitted
		row.Age = h.Age
		row.InfoSource = h.InfoSource
		row.Suggestions = h.Suggestions
		out = append(out, row)
	}
	return out
}
